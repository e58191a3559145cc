// Package catalog holds the product snapshot and derives filtered, sorted
// views from it.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/slug"
)

// ProductsEndpoint is fetched by Refresh.
const ProductsEndpoint = "/products"

// ErrNoProducts is returned by Refresh when the backend answered without a
// product list.
var ErrNoProducts = errors.New("response carries no product list")

// Caller is the part of *gateway.Gateway the engine needs.
type Caller interface {
	Call(ctx context.Context, endpoint string, opts gateway.CallOptions) gateway.Result
}

// Snapshot is an immutable copy of the product list. Version 0 is the empty
// snapshot the engine starts with.
type Snapshot struct {
	Products  []domain.Product
	Version   uint64
	FetchedAt time.Time
}

// Info describes a snapshot without exposing its products.
type Info struct {
	Version   uint64    `json:"version"`
	FetchedAt time.Time `json:"fetched_at"`
	Size      int       `json:"size"`
}

// Engine owns the product snapshot. Query runs lock-free against whichever
// snapshot is current; Refresh replaces it wholesale.
type Engine struct {
	caller Caller
	logger *slog.Logger

	snapshot atomic.Pointer[Snapshot]
	seq      atomic.Uint64
}

// NewEngine creates an engine with an empty snapshot.
func NewEngine(caller Caller, logger *slog.Logger) *Engine {
	e := &Engine{
		caller: caller,
		logger: logger,
	}
	e.snapshot.Store(&Snapshot{Products: []domain.Product{}})
	return e
}

// Refresh fetches the product list and swaps it in. On any failure the
// current snapshot stays in place and the error is returned for logging;
// the gateway has already notified the user.
//
// Overlapping refreshes are ordered by the time they started: a refresh that
// completes after a newer one has committed is discarded.
func (e *Engine) Refresh(ctx context.Context) error {
	seq := e.seq.Add(1)
	log := logger.WithContext(ctx, e.logger)

	res := e.caller.Call(ctx, ProductsEndpoint, gateway.CallOptions{})
	if err := res.Err(); err != nil {
		return fmt.Errorf("refresh products: %w", err)
	}

	products, err := e.decodeProducts(ctx, res)
	if err != nil {
		return fmt.Errorf("refresh products: %w", err)
	}

	next := &Snapshot{
		Products:  products,
		Version:   seq,
		FetchedAt: time.Now().UTC(),
	}

	for {
		cur := e.snapshot.Load()
		if cur.Version >= seq {
			log.DebugContext(ctx, "discarding stale product refresh",
				slog.Uint64("refresh", seq),
				slog.Uint64("current", cur.Version),
			)
			return nil
		}
		if e.snapshot.CompareAndSwap(cur, next) {
			break
		}
	}

	log.InfoContext(ctx, "product snapshot refreshed",
		slog.Uint64("version", seq),
		slog.Int("products", len(products)),
	)
	return nil
}

// decodeProducts reads the products list one entry at a time. Mistyped
// fields fall back inside domain.Product; only entries that are not JSON
// objects are skipped.
func (e *Engine) decodeProducts(ctx context.Context, res gateway.Result) ([]domain.Product, error) {
	var raw []json.RawMessage
	found, err := res.Field("products", &raw)
	if err != nil {
		return nil, err
	}
	if !found || raw == nil {
		return nil, ErrNoProducts
	}

	products := make([]domain.Product, 0, len(raw))
	for i, item := range raw {
		var p domain.Product
		if err := json.Unmarshal(item, &p); err != nil {
			logger.WithContext(ctx, e.logger).WarnContext(ctx, "skipping product entry that is not an object",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// Query returns the view of the current snapshot described by c.
func (e *Engine) Query(c domain.Criteria) []domain.Product {
	return Apply(e.snapshot.Load().Products, c)
}

// Snapshot returns the current snapshot metadata.
func (e *Engine) Snapshot() Info {
	s := e.snapshot.Load()
	return Info{
		Version:   s.Version,
		FetchedAt: s.FetchedAt,
		Size:      len(s.Products),
	}
}

// Ready reports whether at least one refresh has committed.
func (e *Engine) Ready() bool {
	return e.snapshot.Load().Version > 0
}

// Categories returns the distinct categories of the current snapshot.
func (e *Engine) Categories() []string {
	return Categories(e.snapshot.Load().Products)
}

// Favorites returns the products whose ID is in ids, in snapshot order.
// Unknown IDs are ignored.
func (e *Engine) Favorites(ids []int64) []domain.Product {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	out := make([]domain.Product, 0, len(ids))
	for _, p := range e.snapshot.Load().Products {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Product returns the product with the given ID from the current snapshot.
func (e *Engine) Product(id int64) (domain.Product, bool) {
	for _, p := range e.snapshot.Load().Products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// RefreshEvery refreshes the snapshot every interval until ctx is done.
// Failures are logged and the previous snapshot stays in place.
func (e *Engine) RefreshEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Refresh(ctx); err != nil && ctx.Err() == nil {
				e.logger.WarnContext(ctx, "scheduled product refresh failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// ProductBySlug returns the first product of the current snapshot whose name
// slugs to s.
func (e *Engine) ProductBySlug(s string) (domain.Product, bool) {
	for _, p := range e.snapshot.Load().Products {
		if slug.Generate(p.Name) == s {
			return p, true
		}
	}
	return domain.Product{}, false
}
