package merge

import (
	"fmt"

	"github.com/heesms/carizon/internal/models"
)

// ChachachaAdapter maps KB Chachacha raw rows. This platform publishes
// the canonical taxonomy codes directly, which is why it doubles as the
// reference source for plate-based resolution.
type ChachachaAdapter struct{}

func (ChachachaAdapter) Source() string { return "CHACHACHA" }

func (ChachachaAdapter) Map(raw models.RawListing) (models.Listing, error) {
	doc, err := parsePayload(raw.Payload)
	if err != nil {
		return models.Listing{}, err
	}
	key := raw.SourceKey
	if key == "" {
		key = doc.str("car_seq")
	}
	if key == "" {
		return models.Listing{}, fmt.Errorf("%w: missing car_seq", ErrBadRow)
	}
	price, err := doc.price("sell_amt")
	if err != nil {
		return models.Listing{}, err
	}
	detail := fmt.Sprintf("https://www.kbchachacha.com/public/car/detail.kbc?carSeq=%s", key)

	return models.Listing{
		SourceKey: key,
		PlateNo:   coalescePtr(raw.PlateNo, doc.strPtr("car_no")),

		MakerCode:      doc.strPtr("maker_code"),
		ModelGroupCode: doc.strPtr("class_code"),
		ModelCode:      doc.strPtr("car_code"),
		TrimCode:       doc.strPtr("model_code"),
		GradeCode:      doc.strPtr("grade_code"),
		MakerName:      doc.strPtr("maker_name"),
		ModelGroupName: doc.strPtr("class_name"),
		ModelName:      doc.strPtr("car_name"),
		TrimName:       doc.strPtr("model_name"),
		GradeName:      doc.strPtr("grade_name"),

		Price:        price,
		Status:       models.ListingOnSale,
		Mileage:      doc.intPtr("km"),
		Year:         doc.intPtr("yymm"),
		Color:        doc.strPtr("color"),
		Fuel:         doc.strPtr("gas_name"),
		Transmission: doc.strPtr("auto_gbn_name"),
		BodyType:     doc.strPtr("use_code_name"),
		Region:       doc.strPtr("region"),
		DetailURL:    &detail,
	}, nil
}

func coalescePtr(a, b *string) *string {
	if a != nil && *a != "" {
		return a
	}
	return b
}
