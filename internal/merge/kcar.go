package merge

import (
	"fmt"

	"github.com/heesms/carizon/internal/models"
)

// KcarAdapter maps K Car raw rows.
type KcarAdapter struct{}

func (KcarAdapter) Source() string { return "KCAR" }

func (KcarAdapter) Map(raw models.RawListing) (models.Listing, error) {
	doc, err := parsePayload(raw.Payload)
	if err != nil {
		return models.Listing{}, err
	}
	key := raw.SourceKey
	if key == "" {
		key = doc.str("car_cd")
	}
	if key == "" {
		return models.Listing{}, fmt.Errorf("%w: missing car_cd", ErrBadRow)
	}
	price, err := doc.price("price")
	if err != nil {
		return models.Listing{}, err
	}
	detail := fmt.Sprintf("https://www.kcar.com/bc/detail/carInfoDtl?i_sCarCd=%s", key)

	return models.Listing{
		SourceKey: key,
		PlateNo:   coalescePtr(raw.PlateNo, doc.strPtr("cno")),

		MakerCode:      doc.strPtr("maker_code"),
		ModelGroupCode: doc.strPtr("model_group_code"),
		ModelCode:      doc.strPtr("model_code"),
		TrimCode:       doc.strPtr("grade_code"),
		GradeCode:      doc.strPtr("grade_detail_code"),
		MakerName:      doc.strPtr("maker_name"),
		ModelGroupName: doc.strPtr("model_group_name"),
		ModelName:      doc.strPtr("model_name"),
		TrimName:       doc.strPtr("grade_name"),
		GradeName:      doc.strPtr("grade_detail_name"),

		Price:        price,
		Status:       models.ListingOnSale,
		Mileage:      doc.intPtr("mileage"),
		Year:         doc.intPtr("yymm"),
		Color:        doc.strPtr("color"),
		Fuel:         doc.strPtr("fuel"),
		Transmission: doc.strPtr("transmission"),
		BodyType:     doc.strPtr("body_type"),
		Region:       doc.strPtr("region"),
		DetailURL:    &detail,
	}, nil
}
