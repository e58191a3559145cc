package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/storefront"
	"github.com/utafrali/storefront/pkg/httputil"
)

// StatsSource computes dashboard counters, e.g. *storefront.Client.
type StatsSource interface {
	Stats(ctx context.Context, userID int64) storefront.Stats
}

// UserStats returns a handler for GET /api/v1/users/{id}/stats.
func UserStats(src StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
		if !ok {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: src.Stats(r.Context(), id)})
	}
}
