package stats

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/respond"
	"campus-mobility/internal/rides"
	"campus-mobility/internal/users"
	"campus-mobility/pkg/jwt"
	"campus-mobility/pkg/logger"
)

// History lists the rides a user belongs to.
type History interface {
	MyRides(ctx context.Context, email string) ([]*rides.Ride, error)
}

// Profiles resolves co-rider names.
type Profiles interface {
	Profiles(ctx context.Context, emails []string) (map[string]users.Profile, error)
}

// Service computes stats on request.
type Service struct {
	history  History
	profiles Profiles
	now      func() time.Time
}

// NewService wires the stats service. profiles may be nil.
func NewService(history History, profiles Profiles) *Service {
	return &Service{history: history, profiles: profiles, now: time.Now}
}

// For returns the caller's stats over the trailing windowDays.
func (s *Service) For(ctx context.Context, email string, windowDays int) (*Stats, error) {
	list, err := s.history.MyRides(ctx, email)
	if err != nil {
		return nil, err
	}
	st := Compute(list, email, s.now(), windowDays)
	if s.profiles == nil || len(st.TopCoRiders) == 0 {
		return st, nil
	}

	emails := make([]string, 0, len(st.TopCoRiders))
	for _, c := range st.TopCoRiders {
		emails = append(emails, c.Email)
	}
	names, err := s.profiles.Profiles(ctx, emails)
	if err != nil {
		logger.Warn(ctx, "co-rider lookup failed", zap.Error(err))
		return st, nil
	}
	for i := range st.TopCoRiders {
		st.TopCoRiders[i].Name = names[st.TopCoRiders[i].Email].Name
	}
	return st, nil
}

// Handler exposes GET /profile/stats.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the stats service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes registers the stats endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.With(jwt.RequireAuth).Get("/profile/stats", h.Get)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	days := DefaultWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxWindowDays {
			respond.Error(w, r, apperr.Validation("days must be between 1 and 365"))
			return
		}
		days = n
	}
	st, err := h.svc.For(r.Context(), jwt.GetClaims(r.Context()).Email, days)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}
