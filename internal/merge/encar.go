package merge

import (
	"fmt"

	"github.com/heesms/carizon/internal/models"
)

// EncarAdapter maps Encar raw rows. Encar nests the live advertisement
// state under "advertisement" and is the one platform whose status is
// passed through instead of defaulted.
type EncarAdapter struct{}

func (EncarAdapter) Source() string { return "ENCAR" }

func (EncarAdapter) Map(raw models.RawListing) (models.Listing, error) {
	doc, err := parsePayload(raw.Payload)
	if err != nil {
		return models.Listing{}, err
	}
	key := raw.SourceKey
	if key == "" {
		key = doc.str("vehicle_id")
	}
	if key == "" {
		return models.Listing{}, fmt.Errorf("%w: missing vehicle_id", ErrBadRow)
	}

	ad := doc.nested("advertisement")
	price, err := ad.price("price")
	if err != nil {
		price, err = doc.price("price")
		if err != nil {
			return models.Listing{}, err
		}
	}
	status := ad.str("status")
	if status == "" {
		status = models.ListingOnSale
	}
	detail := fmt.Sprintf("https://fem.encar.com/cars/detail/%s", key)

	return models.Listing{
		SourceKey: key,
		PlateNo:   coalescePtr(raw.PlateNo, doc.strPtr("vehicle_no")),

		MakerCode:      doc.strPtr("manufacturer_code"),
		ModelGroupCode: doc.strPtr("model_group_code"),
		ModelCode:      doc.strPtr("model_code"),
		TrimCode:       doc.strPtr("grade_code"),
		GradeCode:      doc.strPtr("grade_detail_code"),
		MakerName:      doc.strPtr("manufacturer_name"),
		ModelGroupName: doc.strPtr("model_group_name"),
		ModelName:      doc.strPtr("model_name"),
		TrimName:       doc.strPtr("grade_name"),
		GradeName:      doc.strPtr("grade_detail_name"),

		Price:        price,
		Status:       status,
		Mileage:      doc.intPtr("mileage"),
		Year:         doc.intPtr("form_year"),
		Color:        doc.strPtr("color"),
		Fuel:         doc.strPtr("fuel"),
		Transmission: doc.strPtr("transmission"),
		BodyType:     doc.strPtr("body_type"),
		Region:       doc.strPtr("region"),
		DetailURL:    &detail,
	}, nil
}
