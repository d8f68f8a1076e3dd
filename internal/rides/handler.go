package rides

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/respond"
	"campus-mobility/pkg/jwt"
	"campus-mobility/pkg/validation"
)

// Handler exposes ride request endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the ride service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes registers the ride endpoints on r. All of them need auth.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth)

		r.Post("/ride-request", h.Create)
		r.Get("/ride-requests", h.List)
		r.Get("/ride-request/{id}", h.Get)
		r.Delete("/ride-request/{id}", h.Delete)
		r.Post("/ride-request/{id}/join", h.Join)
		r.Post("/ride-request/{id}/leave", h.Leave)
		r.Get("/my-rides", h.MyRides)
	})
}

func caller(r *http.Request) string { return jwt.GetClaims(r.Context()).Email }

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if err := validation.Struct(&req); err != nil {
		respond.Error(w, r, apperr.Validation(err.Error()))
		return
	}
	ride, err := h.svc.Create(r.Context(), caller(r), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, ride)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), caller(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ride, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, ride)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Ride deleted"})
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	ride, err := h.svc.Join(r.Context(), chi.URLParam(r, "id"), caller(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, ride)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Leave(r.Context(), chi.URLParam(r, "id"), caller(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) MyRides(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.MyRides(r.Context(), caller(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}
