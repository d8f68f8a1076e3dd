package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/respond"
	"campus-mobility/pkg/jwt"
	"campus-mobility/pkg/validation"
)

// Handler exposes account, profile and community endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the user service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes registers the user endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	// Public
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Post("/verify-email", h.VerifyEmail)
	r.Post("/resend-verification", h.ResendVerification)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth)
		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)
		r.Post("/profile/picture", h.UpdatePicture)
		r.Delete("/delete-account", h.DeleteAccount)
		r.Post("/delete-account", h.DeleteAccount)
		r.Get("/community-options", h.CommunityOptions)
		r.Get("/nearby-universities/{name}", h.NearbyUniversities)
		r.Post("/refresh-university-info", h.RefreshUniversityInfo)
	})
}

// decode reads and tag-validates a request body.
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

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.VerifyEmail(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.ResendVerification(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	resp, _ := h.svc.ForgotPassword(r.Context(), req)
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.ResetPassword(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetProfile(r.Context(), jwt.GetClaims(r.Context()).Email)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdate
	if !respond.Decode(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), jwt.GetClaims(r.Context()).Email, req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) UpdatePicture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	var req PictureRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.UpdatePicture(r.Context(), jwt.GetClaims(r.Context()).Email, req.ProfilePicture)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req DeleteAccountRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.DeleteAccount(r.Context(), jwt.GetClaims(r.Context()).Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) CommunityOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.CommunityOptions(r.Context(), jwt.GetClaims(r.Context()).Email)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, opts)
}

func (h *Handler) NearbyUniversities(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.NearbyUniversities(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) RefreshUniversityInfo(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.RefreshUniversityInfo(r.Context(), jwt.GetClaims(r.Context()).Email)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}
