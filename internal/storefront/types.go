package storefront

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
)

// User is the account record returned by the auth endpoints.
type User struct {
	ID              int64            `json:"id"`
	Username        string           `json:"username"`
	Email           string           `json:"email"`
	FullName        string           `json:"full_name"`
	Phone           string           `json:"phone"`
	Role            string           `json:"role"`
	ShopName        string           `json:"shop_name"`
	ShopDescription string           `json:"shop_description"`
	Status          string           `json:"status"`
	CanUploadStock  bool             `json:"canUploadStock"`
	CreatedAt       domain.Timestamp `json:"created_at"`
}

// Credentials log a user in.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration creates a new account.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// CartItem is a product as it sits in a cart.
type CartItem struct {
	domain.Product
	Quantity   int   `json:"quantity"`
	CartItemID int64 `json:"cartItemId"`
}

// UnmarshalJSON decodes the product leniently and then the cart fields,
// which the embedded Product decoder would otherwise drop.
func (c *CartItem) UnmarshalJSON(b []byte) error {
	if err := c.Product.UnmarshalJSON(b); err != nil {
		return err
	}
	var line struct {
		Quantity   int   `json:"quantity"`
		CartItemID int64 `json:"cartItemId"`
	}
	if err := json.Unmarshal(b, &line); err != nil {
		return fmt.Errorf("decode cart item: %w", err)
	}
	c.Quantity = line.Quantity
	c.CartItemID = line.CartItemID
	return nil
}

// OrderLine is one product of a placed order, priced at checkout time.
type OrderLine struct {
	Name     string       `json:"name"`
	Quantity int          `json:"quantity"`
	Price    domain.Price `json:"price"`
}

// Order is a placed order. DiscountApplied holds the coupon code, if any.
type Order struct {
	ID              int64            `json:"id"`
	Items           []OrderLine      `json:"items"`
	Total           decimal.Decimal  `json:"total"`
	Status          string           `json:"status"`
	Date            domain.Timestamp `json:"date"`
	DiscountApplied *string          `json:"discountApplied"`
}

// Rating is a single product review.
type Rating struct {
	ID        int64            `json:"id"`
	Rating    int              `json:"rating"`
	Review    string           `json:"review"`
	CreatedAt domain.Timestamp `json:"createdAt"`
}

// Coupon is the answer to a coupon validation. Discount is a percentage.
type Coupon struct {
	Discount int    `json:"discount"`
	Message  string `json:"message"`
}

// Stats are the dashboard counters.
type Stats struct {
	Products  int `json:"products"`
	CartItems int `json:"cart_items"`
	Orders    int `json:"orders"`
}
