package places

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-mobility/internal/respond"
	"campus-mobility/pkg/jwt"
)

// Handler exposes the place search proxy.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the places service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes registers the place endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth)
		r.Post("/places/autocomplete", h.Autocomplete)
		r.Post("/places/details", h.Details)
	})
}

type autocompleteRequest struct {
	Query string `json:"query"`
}

type autocompleteResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type detailsRequest struct {
	PlaceID string `json:"place_id"`
}

func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	var req autocompleteRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	list, err := h.svc.Autocomplete(r.Context(), req.Query)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, autocompleteResponse{Suggestions: list})
}

func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	d, err := h.svc.Details(r.Context(), req.PlaceID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}
