package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is an optional amount. It decodes leniently: numbers and numeric
// strings are accepted, anything else (null, "", "n/a", objects) leaves it
// undefined. It always encodes as a JSON number or null.
type Price struct {
	Decimal decimal.Decimal
	Valid   bool
}

// NewPrice returns a defined Price.
func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: d, Valid: true}
}

// ParsePrice parses s as a decimal amount. Blank or non-numeric input
// returns an undefined Price.
func ParsePrice(s string) Price {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Price{}
	}
	return NewPrice(d)
}

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*p = Price{}
	if len(b) == 0 {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*p = ParsePrice(s)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*p = ParsePrice(string(b))
	}
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return []byte(p.Decimal.String()), nil
}
