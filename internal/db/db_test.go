package db

import (
	"strings"
	"testing"
)

func TestSetTimezoneRejectsUnknownName(t *testing.T) {
	err := SetTimezone(&DB{}, "Asia/Seoul'; DROP TABLE listings; --")
	if err == nil {
		t.Fatalf("expected error for unknown timezone name")
	}
	if !strings.Contains(err.Error(), "timezone") {
		t.Fatalf("err = %v", err)
	}
}

func TestSetTimezoneEmptyIsNoop(t *testing.T) {
	if err := SetTimezone(&DB{}, ""); err != nil {
		t.Fatalf("SetTimezone: %v", err)
	}
}
