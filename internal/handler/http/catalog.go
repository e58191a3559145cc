package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

const refreshTimeout = 30 * time.Second

// CatalogHandler serves views of the product snapshot.
type CatalogHandler struct {
	engine  *catalog.Engine
	logger  *slog.Logger
	refresh singleflight.Group
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(engine *catalog.Engine, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		engine: engine,
		logger: logger,
	}
}

// --- Request DTOs ---

// ListProductsQuery is the query string of GET /api/v1/products.
type ListProductsQuery struct {
	Search   string `query:"q" validate:"max=200"`
	Category string `query:"category" validate:"max=100"`
	Sort     string `query:"sort" validate:"omitempty,oneof=newest price-low price-high"`
}

// FavoritesQuery is the query string of GET /api/v1/favorites.
type FavoritesQuery struct {
	IDs string `query:"ids" validate:"required,idlist"`
}

// listMeta is the meta block of a product list.
type listMeta struct {
	pagination.Meta
	SnapshotVersion uint64 `json:"snapshot_version"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListProductsQuery{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	products := h.engine.Query(domain.Criteria{
		SearchTerm: req.Search,
		Category:   req.Category,
		SortKey:    domain.SortKey(req.Sort),
	})
	page, meta := pagination.Paginate(products, pagination.FromQuery(q))

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: page,
		Meta: listMeta{Meta: meta, SnapshotVersion: h.engine.Snapshot().Version},
	})
}

// GetProduct handles GET /api/v1/products/{idOrSlug}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	param := chi.URLParam(r, "idOrSlug")

	var (
		p     domain.Product
		found bool
	)
	if id, err := strconv.ParseInt(param, 10, 64); err == nil && id > 0 {
		p, found = h.engine.Product(id)
	} else {
		p, found = h.engine.ProductBySlug(param)
	}
	if !found {
		httputil.WriteError(w, r, apperrors.NotFound("product", param), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.engine.Categories()})
}

// ListFavorites handles GET /api/v1/favorites
func (h *CatalogHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	req := FavoritesQuery{IDs: r.URL.Query().Get("ids")}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	parts := strings.Split(req.IDs, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		// Already checked by the idlist validation.
		id, _ := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		ids = append(ids, id)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.engine.Favorites(ids)})
}

// Refresh handles POST /api/v1/products/refresh. Concurrent requests share
// one backend fetch.
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	_, err, shared := h.refresh.Do("refresh", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), refreshTimeout)
		defer cancel()
		return nil, h.engine.Refresh(ctx)
	})
	if err != nil {
		if errors.Is(err, catalog.ErrNoProducts) {
			err = apperrors.Malformed(err.Error())
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.logger.DebugContext(r.Context(), "catalog refresh requested", slog.Bool("shared", shared))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.engine.Snapshot()})
}
