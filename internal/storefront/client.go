// Package storefront offers typed operations over the backend for the parts
// of the shop outside the catalog: accounts, cart, orders, ratings and
// coupons. Every operation returns the gateway Result alongside its payload;
// callers branch on Result.Success, and the gateway has already notified the
// user about failures.
package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/pkg/logger"
)

// Caller is the part of *gateway.Gateway the client needs.
type Caller interface {
	Call(ctx context.Context, endpoint string, opts gateway.CallOptions) gateway.Result
}

// Client issues storefront operations through a Caller.
type Client struct {
	caller Caller
	logger *slog.Logger
}

// NewClient creates a storefront client.
func NewClient(caller Caller, logger *slog.Logger) *Client {
	return &Client{caller: caller, logger: logger}
}

func post(body any) gateway.CallOptions {
	return gateway.CallOptions{Method: http.MethodPost, Body: body}
}

func withUser(path string, userID int64) string {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	return path + "?" + q.Encode()
}

// field decodes key of a successful result into dst. A missing key leaves
// dst untouched; a key that does not decode is logged and reported as false.
func (c *Client) field(ctx context.Context, res gateway.Result, key string, dst any) bool {
	if !res.Success() {
		return false
	}
	found, err := res.Field(key, dst)
	if err != nil {
		logger.WithContext(ctx, c.logger).WarnContext(ctx, "undecodable response field",
			slog.String("field", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return found
}

// --- Auth ---

// Login checks credentials. A rejected login is a normal outcome and is not
// notified.
func (c *Client) Login(ctx context.Context, creds Credentials) (*User, gateway.Result) {
	return c.user(ctx, "/auth/login", creds)
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, reg Registration) (*User, gateway.Result) {
	return c.user(ctx, "/auth/signup", reg)
}

// CheckSession confirms that userID still belongs to an active account.
func (c *Client) CheckSession(ctx context.Context, userID int64) (*User, gateway.Result) {
	return c.user(ctx, "/auth/check", map[string]int64{"user_id": userID})
}

func (c *Client) user(ctx context.Context, endpoint string, body any) (*User, gateway.Result) {
	res := c.caller.Call(ctx, endpoint, post(body))
	var u User
	if !c.field(ctx, res, "user", &u) {
		return nil, res
	}
	return &u, res
}

// --- Cart ---

// AddToCart adds quantity units of productID to the user's cart.
func (c *Client) AddToCart(ctx context.Context, userID, productID int64, quantity int) gateway.Result {
	if quantity < 1 {
		quantity = 1
	}
	return c.caller.Call(ctx, "/cart", post(map[string]any{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	}))
}

// Cart lists the user's cart.
func (c *Client) Cart(ctx context.Context, userID int64) ([]CartItem, gateway.Result) {
	res := c.caller.Call(ctx, withUser("/cart", userID), gateway.CallOptions{})
	items := []CartItem{}
	c.field(ctx, res, "items", &items)
	return items, res
}

// RemoveFromCart deletes one cart line by its cart item ID.
func (c *Client) RemoveFromCart(ctx context.Context, cartItemID int64) gateway.Result {
	return c.caller.Call(ctx, fmt.Sprintf("/cart/%d", cartItemID), gateway.CallOptions{
		Method: http.MethodDelete,
	})
}

// --- Orders ---

// PlaceOrder turns the user's cart into an order, applying discountCode
// when it is not empty.
func (c *Client) PlaceOrder(ctx context.Context, userID int64, discountCode string) (*Order, gateway.Result) {
	body := map[string]any{"user_id": userID}
	if discountCode != "" {
		body["discountCode"] = discountCode
	}

	res := c.caller.Call(ctx, "/orders", post(body))
	var o Order
	if !c.field(ctx, res, "order", &o) {
		return nil, res
	}
	return &o, res
}

// Orders lists the user's orders.
func (c *Client) Orders(ctx context.Context, userID int64) ([]Order, gateway.Result) {
	res := c.caller.Call(ctx, withUser("/orders", userID), gateway.CallOptions{})
	orders := []Order{}
	c.field(ctx, res, "orders", &orders)
	return orders, res
}

// --- Ratings ---

// Ratings lists the reviews of a product.
func (c *Client) Ratings(ctx context.Context, productID int64) ([]Rating, gateway.Result) {
	res := c.caller.Call(ctx, fmt.Sprintf("/ratings/%d", productID), gateway.CallOptions{})
	ratings := []Rating{}
	c.field(ctx, res, "ratings", &ratings)
	return ratings, res
}

// AddRating reviews a product on behalf of userID.
func (c *Client) AddRating(ctx context.Context, userID, productID int64, rating int, review string) (*Rating, gateway.Result) {
	res := c.caller.Call(ctx, "/ratings", post(map[string]any{
		"product_id": productID,
		"user_id":    userID,
		"rating":     rating,
		"review":     review,
	}))
	var r Rating
	if !c.field(ctx, res, "rating", &r) {
		return nil, res
	}
	return &r, res
}

// AverageRating is the mean score rounded to one decimal; zero without
// ratings.
func AverageRating(ratings []Rating) decimal.Decimal {
	if len(ratings) == 0 {
		return decimal.Zero
	}
	var sum int64
	for _, r := range ratings {
		sum += int64(r.Rating)
	}
	return decimal.NewFromInt(sum).
		Div(decimal.NewFromInt(int64(len(ratings)))).
		Round(1)
}

// --- Coupons ---

// ValidateCoupon looks up an active coupon. The backend matches codes
// case-insensitively.
func (c *Client) ValidateCoupon(ctx context.Context, code string) (*Coupon, gateway.Result) {
	res := c.caller.Call(ctx, "/validate-coupon", post(map[string]string{"code": code}))
	if !res.Success() {
		return nil, res
	}
	var cp Coupon
	if err := res.Decode(&cp); err != nil {
		logger.WithContext(ctx, c.logger).WarnContext(ctx, "undecodable coupon",
			slog.String("error", err.Error()),
		)
		return nil, res
	}
	return &cp, res
}

// --- Stats ---

// Stats counts products, cart lines and orders for userID. The three calls
// run concurrently; a list missing from its answer counts as zero.
func (c *Client) Stats(ctx context.Context, userID int64) Stats {
	var st Stats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st.Products = c.count(gctx, "/products", "products")
		return nil
	})
	g.Go(func() error {
		st.CartItems = c.count(gctx, withUser("/cart", userID), "items")
		return nil
	})
	g.Go(func() error {
		st.Orders = c.count(gctx, withUser("/orders", userID), "orders")
		return nil
	})
	_ = g.Wait()

	return st
}

// count is the length of the list under key, whatever the call's outcome.
func (c *Client) count(ctx context.Context, endpoint, key string) int {
	res := c.caller.Call(ctx, endpoint, gateway.CallOptions{})
	var items []json.RawMessage
	if found, err := res.Field(key, &items); !found || err != nil {
		return 0
	}
	return len(items)
}
