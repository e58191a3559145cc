package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotObject is returned when a product entry is not a JSON object.
var ErrNotObject = errors.New("product is not a JSON object")

// PriceType selects which price fields of a Product are authoritative.
type PriceType string

const (
	PriceFixed PriceType = "fixed"
	PriceRange PriceType = "range"
)

// Product is a catalog entry as served by GET /products. The core never
// mutates a Product once it has been decoded into a snapshot.
//
// Decoding is lenient field by field: a mistyped value falls back to its
// zero value (or an undefined Price) instead of rejecting the product.
type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	PriceType      PriceType `json:"priceType"`
	Price          Price     `json:"price"`
	PriceMin       Price     `json:"priceMin"`
	PriceMax       Price     `json:"priceMax"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	WhatsApp       string    `json:"whatsapp,omitempty"`
	ContactMethods []string  `json:"contactMethods,omitempty"`
	UploaderID     int64     `json:"uploader_id,omitempty"`
	UploaderName   string    `json:"uploader_name,omitempty"`
	CreatedAt      Timestamp `json:"createdAt"`
}

func (p *Product) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if fields == nil {
		return ErrNotObject
	}

	*p = Product{
		ID:             looseInt(fields["id"]),
		Name:           looseString(fields["name"]),
		Description:    looseString(fields["description"]),
		Category:       looseString(fields["category"]),
		PriceType:      PriceType(looseString(fields["priceType"])),
		Email:          looseString(fields["email"]),
		Phone:          looseString(fields["phone"]),
		WhatsApp:       looseString(fields["whatsapp"]),
		ContactMethods: looseStrings(fields["contactMethods"]),
		UploaderID:     looseInt(fields["uploader_id"]),
		UploaderName:   looseString(fields["uploader_name"]),
	}
	_ = p.Price.UnmarshalJSON(fields["price"])
	_ = p.PriceMin.UnmarshalJSON(fields["priceMin"])
	_ = p.PriceMax.UnmarshalJSON(fields["priceMax"])
	_ = p.CreatedAt.UnmarshalJSON(fields["createdAt"])
	return nil
}

// IsFixed reports whether Price is the authoritative price. The backend
// defaults priceType to fixed, so an absent value counts as fixed.
func (p *Product) IsFixed() bool {
	return p.PriceType == PriceFixed || p.PriceType == ""
}

// LowPrice is the effective price used for ascending price order:
// Price for fixed products, PriceMin for ranges. ok is false when the
// authoritative field is missing.
func (p *Product) LowPrice() (price decimal.Decimal, ok bool) {
	if p.IsFixed() {
		return p.Price.Decimal, p.Price.Valid
	}
	return p.PriceMin.Decimal, p.PriceMin.Valid
}

// HighPrice is the effective price used for descending price order:
// Price for fixed products, PriceMax for ranges falling back to Price.
func (p *Product) HighPrice() (price decimal.Decimal, ok bool) {
	if p.IsFixed() {
		return p.Price.Decimal, p.Price.Valid
	}
	if p.PriceMax.Valid {
		return p.PriceMax.Decimal, true
	}
	return p.Price.Decimal, p.Price.Valid
}
