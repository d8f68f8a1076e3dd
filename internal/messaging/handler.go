package messaging

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/respond"
	"campus-mobility/pkg/jwt"
	"campus-mobility/pkg/validation"
)

// Handler exposes chat, Q&A and the live feed socket.
type Handler struct {
	svc *Service
	hub *Hub
}

// NewHandler wires a handler to the messaging service. hub may be nil, in
// which case the websocket route is not registered.
func NewHandler(svc *Service, hub *Hub) *Handler { return &Handler{svc: svc, hub: hub} }

// Routes registers the messaging endpoints on r. All of them need auth.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth)

		r.Post("/ride/{id}/message", h.SendMessage)
		r.Get("/ride/{id}/messages", h.GetMessages)
		r.Post("/ride/{id}/question", h.AskQuestion)
		r.Get("/ride/{id}/questions", h.GetQuestions)
		r.Get("/ride/{id}/chat-info", h.ChatInfo)
		r.Post("/question/{id}/respond", h.Respond)
		r.Get("/question/{id}/responses", h.GetResponses)
		r.Get("/my-questions", h.MyQuestions)
		r.Get("/my-ride-chats", h.MyRideChats)

		if h.hub != nil {
			r.Get("/ws/ride/{id}", h.Subscribe)
		}
	})
}

func caller(r *http.Request) string { return jwt.GetClaims(r.Context()).Email }

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

// reply writes v, or the error when err is set.
func reply(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, status, v)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.SendMessage(r.Context(), chi.URLParam(r, "id"), caller(r), req.Content)
	reply(w, r, http.StatusCreated, res, err)
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	feed, err := h.svc.GetMessages(r.Context(), chi.URLParam(r, "id"), caller(r))
	reply(w, r, http.StatusOK, feed, err)
}

func (h *Handler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.AskQuestion(r.Context(), chi.URLParam(r, "id"), caller(r), req.Question)
	reply(w, r, http.StatusCreated, res, err)
}

func (h *Handler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetQuestions(r.Context(), chi.URLParam(r, "id"), caller(r))
	reply(w, r, http.StatusOK, list, err)
}

func (h *Handler) ChatInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.ChatInfo(r.Context(), chi.URLParam(r, "id"), caller(r))
	reply(w, r, http.StatusOK, info, err)
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.RespondToQuestion(r.Context(), chi.URLParam(r, "id"), caller(r), req.Response)
	reply(w, r, http.StatusCreated, res, err)
}

func (h *Handler) GetResponses(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetResponses(r.Context(), chi.URLParam(r, "id"), caller(r))
	reply(w, r, http.StatusOK, list, err)
}

func (h *Handler) MyQuestions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.MyQuestions(r.Context(), caller(r))
	reply(w, r, http.StatusOK, list, err)
}

func (h *Handler) MyRideChats(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.MyRideChats(r.Context(), caller(r))
	reply(w, r, http.StatusOK, list, err)
}

// Subscribe upgrades to a websocket carrying new feed entries of the ride.
// Browsers cannot set headers on the handshake, so the token may come as
// ?token=.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	id, email := chi.URLParam(r, "id"), caller(r)
	if err := h.svc.CanSubscribe(r.Context(), id, email); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.hub.Serve(w, r, id, email)
}
