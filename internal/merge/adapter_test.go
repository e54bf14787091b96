package merge

import (
	"errors"
	"testing"

	"gorm.io/datatypes"

	"github.com/heesms/carizon/internal/models"
)

func rawRow(source, key string, payload string) models.RawListing {
	return models.RawListing{
		ID:        1,
		Source:    source,
		SourceKey: key,
		Payload:   datatypes.JSON([]byte(payload)),
	}
}

func TestChachachaAdapterMap(t *testing.T) {
	raw := rawRow("CHACHACHA", "12345", `{
		"car_seq": "12345",
		"car_no": "12가 3456",
		"maker_code": "HD", "class_code": "SN", "car_code": "SN1", "model_code": "T1", "grade_code": "G1",
		"maker_name": "현대", "class_name": "쏘나타", "car_name": "쏘나타 DN8", "model_name": "프리미엄", "grade_name": "플러스",
		"sell_amt": "2,150",
		"km": 41200, "yymm": "2021.03",
		"color": "흰색", "gas_name": "가솔린", "auto_gbn_name": "오토", "use_code_name": "승용차", "region": "서울"
	}`)

	l, err := ChachachaAdapter{}.Map(raw)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if l.SourceKey != "12345" {
		t.Fatalf("source key = %s", l.SourceKey)
	}
	if l.Price.String() != "2150" {
		t.Fatalf("price = %s, want 2150", l.Price.String())
	}
	if l.Mileage == nil || *l.Mileage != 41200 {
		t.Fatalf("mileage = %v, want 41200", l.Mileage)
	}
	if l.Year == nil || *l.Year != 2021 {
		t.Fatalf("year = %v, want 2021", l.Year)
	}
	if l.ModelGroupCode == nil || *l.ModelGroupCode != "SN" {
		t.Fatalf("model group code = %v, want SN", l.ModelGroupCode)
	}
	if l.Status != models.ListingOnSale {
		t.Fatalf("status = %s, want %s", l.Status, models.ListingOnSale)
	}
	if l.DetailURL == nil || *l.DetailURL != "https://www.kbchachacha.com/public/car/detail.kbc?carSeq=12345" {
		t.Fatalf("detail url = %v", l.DetailURL)
	}
}

func TestEncarAdapterStatusPassthrough(t *testing.T) {
	raw := rawRow("ENCAR", "987", `{
		"vehicle_id": "987",
		"vehicle_no": "34나5678",
		"manufacturer_name": "기아",
		"advertisement": {"status": "WAIT", "price": "1,490"}
	}`)

	l, err := EncarAdapter{}.Map(raw)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if l.Status != "WAIT" {
		t.Fatalf("status = %s, want WAIT", l.Status)
	}
	if l.Price.String() != "1490" {
		t.Fatalf("price = %s, want 1490", l.Price.String())
	}
}

func TestEncarAdapterDefaultsStatus(t *testing.T) {
	raw := rawRow("ENCAR", "987", `{"vehicle_id": "987", "price": 1500}`)
	l, err := EncarAdapter{}.Map(raw)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if l.Status != models.ListingOnSale {
		t.Fatalf("status = %s, want %s", l.Status, models.ListingOnSale)
	}
}

func TestChutchaAdapterNamesOnly(t *testing.T) {
	raw := rawRow("CHUTCHA", "c-1", `{
		"car_id": "c-1",
		"number_plate": "56다7890",
		"brand_name": "현대", "model_name": "그랜저", "sub_model_name": "그랜저 IG",
		"price": 2890, "mileage": "18,000", "first_reg_year": 2022,
		"detail_link_hash": "abc123"
	}`)

	l, err := ChutchaAdapter{}.Map(raw)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if l.MakerCode != nil {
		t.Fatalf("maker code = %v, want nil", l.MakerCode)
	}
	if l.MakerName == nil || *l.MakerName != "현대" {
		t.Fatalf("maker name = %v", l.MakerName)
	}
	if l.Mileage == nil || *l.Mileage != 18000 {
		t.Fatalf("mileage = %v, want 18000", l.Mileage)
	}
	if l.DetailURL == nil || *l.DetailURL != "https://web.chutcha.net/bmc/detail/abc123" {
		t.Fatalf("detail url = %v", l.DetailURL)
	}
}

func TestAdapterRejectsMissingPrice(t *testing.T) {
	raw := rawRow("KCAR", "k-1", `{"car_cd": "k-1"}`)
	_, err := KcarAdapter{}.Map(raw)
	if !errors.Is(err, ErrBadRow) {
		t.Fatalf("err = %v, want ErrBadRow", err)
	}
}

func TestAdapterRejectsBrokenPayload(t *testing.T) {
	raw := rawRow("KCAR", "k-1", `{broken`)
	_, err := KcarAdapter{}.Map(raw)
	if !errors.Is(err, ErrBadRow) {
		t.Fatalf("err = %v, want ErrBadRow", err)
	}
}
