package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/flag-practice/pkg/http/errors"
)

// HTTPHandler serves read-only catalog routes.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger.With().Str("component", "catalog_http").Logger()}
}

// Routes mounts GET / and GET /{key}.
func (h *HTTPHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Get("/{key}", h.HandleGet)
}

type listResponse struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

// HandleList serves GET /v1/flags with optional ?type= and ?category= filters.
func (h *HTTPHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		items []Item
		err   error
	)
	switch {
	case q.Get("type") != "":
		t, perr := ParseType(q.Get("type"))
		if perr != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, perr.Error(), "type")
			return
		}
		items, err = h.svc.ListByType(ctx, t)
	case q.Get("category") != "":
		items, err = h.svc.ListByCategory(ctx, q.Get("category"))
	default:
		items, err = h.svc.List(ctx)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("list catalog failed")
		httperrors.RespondInternalError(w, "Failed to load flags")
		return
	}

	writeJSON(w, listResponse{Items: items, Total: len(items)})
}

// HandleGet serves GET /v1/flags/{key}.
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	item, err := h.svc.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeFlagNotFound, "Flag not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("get flag failed")
		httperrors.RespondInternalError(w, "Failed to load flag")
		return
	}
	writeJSON(w, item)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
	}
}
