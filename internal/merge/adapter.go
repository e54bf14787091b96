// Package merge turns raw crawler rows into normalized listings, one
// adapter per platform over a shared chunking and locking substrate.
package merge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/heesms/carizon/internal/models"
)

// ErrBadRow marks a raw row whose payload cannot produce a listing.
// The merger skips such rows instead of aborting the chunk.
var ErrBadRow = errors.New("merge: malformed raw row")

// SourceAdapter maps one platform's raw payload shape onto listing
// fields. Map must not touch Source, Payload or LastSeenDate; the
// merger owns those.
type SourceAdapter interface {
	Source() string
	Map(raw models.RawListing) (models.Listing, error)
}

// payload wraps the scraped JSON document. Crawled fields arrive with
// unstable types (numbers as strings, amounts with thousand
// separators), so accessors coerce instead of type-asserting.
type payload map[string]any

func parsePayload(raw []byte) (payload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrBadRow)
	}
	var doc payload
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRow, err)
	}
	return doc, nil
}

func (p payload) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (p payload) strPtr(key string) *string {
	s := p.str(key)
	if s == "" {
		return nil
	}
	return &s
}

func (p payload) intPtr(key string) *int {
	s := strings.ReplaceAll(p.str(key), ",", "")
	if s == "" {
		return nil
	}
	// "2021.03" style year-month fields keep the leading integer.
	if i := strings.IndexAny(s, "./-"); i > 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func (p payload) price(key string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(p.str(key), ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: missing %s", ErrBadRow, key)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad %s %q", ErrBadRow, key, s)
	}
	return d, nil
}

// nested walks an object path like "advertisement.status".
func (p payload) nested(path string) payload {
	doc := p
	for _, part := range strings.Split(path, ".") {
		child, ok := doc[part].(map[string]any)
		if !ok {
			return nil
		}
		doc = child
	}
	return doc
}
