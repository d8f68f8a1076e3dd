package pricing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/respond"
	"campus-mobility/pkg/jwt"
	"campus-mobility/pkg/validation"
)

// Handler exposes the fare and route proxies. Provider outages are answered
// with 200 and an unavailable body, not an error status.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the pricing service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes registers the pricing endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth)
		r.Post("/price-estimate", h.EstimatePrice)
		r.Post("/route-info", h.RouteInfo)
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !respond.Decode(w, r, dst) {
		return false
	}
	if err := validation.Struct(dst); err != nil {
		respond.Error(w, r, apperr.Validation(err.Error()))
		return false
	}
	return true
}

func (h *Handler) EstimatePrice(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.EstimatePrice(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) RouteInfo(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.GetRouteInfo(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
