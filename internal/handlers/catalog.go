package handlers

import (
	"log/slog"
	"net/http"

	"github.com/crucial707/cinebrowse/internal/catalog"
	"github.com/crucial707/cinebrowse/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// CatalogHandler proxies catalog listings so the API key stays on the server.
type CatalogHandler struct {
	Catalog *catalog.Client
}

// List returns one listing: GET /catalog/{list} where list is trending, top_rated or popular.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalog.ParseListKind(chi.URLParam(r, "list"))
	if !ok {
		JSONError(w, "unknown list", http.StatusNotFound)
		return
	}

	movies, err := h.Catalog.List(r.Context(), kind)
	if err != nil {
		username, _ := middleware.GetUsername(r.Context())
		slog.ErrorContext(r.Context(), "catalog fetch failed",
			"request_id", chimw.GetReqID(r.Context()),
			"username", username,
			"list", kind,
			"error", err)
		JSONError(w, "catalog unavailable", http.StatusBadGateway)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"results": movies})
}
