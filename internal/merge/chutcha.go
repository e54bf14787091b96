package merge

import (
	"fmt"

	"github.com/heesms/carizon/internal/models"
)

// ChutchaAdapter maps Chutcha raw rows. Chutcha publishes names only,
// no taxonomy codes, so its listings depend entirely on fuzzy
// resolution.
type ChutchaAdapter struct{}

func (ChutchaAdapter) Source() string { return "CHUTCHA" }

func (ChutchaAdapter) Map(raw models.RawListing) (models.Listing, error) {
	doc, err := parsePayload(raw.Payload)
	if err != nil {
		return models.Listing{}, err
	}
	key := raw.SourceKey
	if key == "" {
		key = doc.str("car_id")
	}
	if key == "" {
		return models.Listing{}, fmt.Errorf("%w: missing car_id", ErrBadRow)
	}
	price, err := doc.price("price")
	if err != nil {
		return models.Listing{}, err
	}

	var detail *string
	if hash := doc.str("detail_link_hash"); hash != "" {
		u := fmt.Sprintf("https://web.chutcha.net/bmc/detail/%s", hash)
		detail = &u
	}

	return models.Listing{
		SourceKey: key,
		PlateNo:   coalescePtr(raw.PlateNo, doc.strPtr("number_plate")),

		MakerName:      doc.strPtr("brand_name"),
		ModelGroupName: doc.strPtr("model_name"),
		ModelName:      doc.strPtr("sub_model_name"),
		TrimName:       doc.strPtr("grade_name"),
		GradeName:      doc.strPtr("sub_grade_name"),

		Price:        price,
		Status:       models.ListingOnSale,
		Mileage:      doc.intPtr("mileage"),
		Year:         doc.intPtr("first_reg_year"),
		Color:        doc.strPtr("color"),
		Fuel:         doc.strPtr("fuel_name"),
		Transmission: doc.strPtr("transmission_name"),
		BodyType:     doc.strPtr("car_type"),
		Region:       doc.strPtr("shop_addr_short"),
		DetailURL:    detail,
	}, nil
}
