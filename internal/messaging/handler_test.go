package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-mobility/pkg/jwt"
)

type server struct {
	t      *testing.T
	f      *fixture
	tokens *jwt.Service
	hub    *Hub
	ts     *httptest.Server
}

func newServer(t *testing.T) *server {
	t.Helper()
	f := newFixture(t)
	hub := NewHub()
	f.svc.notify = hub
	tokens, err := jwt.NewService("test-secret", 0)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(tokens.OptionalAuth)
	NewHandler(f.svc, hub).Routes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return &server{t: t, f: f, tokens: tokens, hub: hub, ts: ts}
}

func (s *server) token(email string) string {
	tok, err := s.tokens.Generate("id-"+email, email, "Pomona College")
	require.NoError(s.t, err)
	return tok
}

func (s *server) do(method, path, as string, body any) (int, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	require.NoError(s.t, err)
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(as))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var out any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if m, ok := out.(map[string]any); ok {
		return resp.StatusCode, m
	}
	return resp.StatusCode, map[string]any{"list": out}
}

func TestHandlerChatFlow(t *testing.T) {
	s := newServer(t)
	ride := s.f.ride.ID

	status, _ := s.do(http.MethodGet, "/ride/"+ride+"/messages", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.do(http.MethodPost, "/ride/"+ride+"/message", alice, map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["message_id"])

	status, body = s.do(http.MethodPost, "/ride/"+ride+"/message", alice, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, body = s.do(http.MethodPost, "/ride/"+ride+"/message", carol, map[string]string{"content": "let me in"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NOT_MEMBER", body["code"])

	status, body = s.do(http.MethodPost, "/ride/"+ride+"/question", carol, map[string]string{"question": "room?"})
	require.Equal(t, http.StatusCreated, status)
	qid, _ := body["question_id"].(string)
	require.NotEmpty(t, qid)

	status, body = s.do(http.MethodPost, "/ride/"+ride+"/question", bob, map[string]string{"question": "room?"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_MEMBER", body["code"])

	status, _ = s.do(http.MethodPost, "/question/"+qid+"/respond", bob, map[string]string{"response": "yes"})
	assert.Equal(t, http.StatusCreated, status)

	status, body = s.do(http.MethodGet, "/question/"+qid+"/responses", carol, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["list"], 1)

	status, _ = s.do(http.MethodGet, "/question/"+qid+"/responses", dave, nil)
	assert.Equal(t, http.StatusForbidden, status)

	for _, member := range []string{alice, bob} {
		status, body = s.do(http.MethodGet, "/ride/"+ride+"/messages", member, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["messages"], 3)
	}

	status, body = s.do(http.MethodGet, "/question/"+qid+"/responses", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["list"], 1)

	status, body = s.do(http.MethodGet, "/ride/"+ride+"/chat-info", carol, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["can_ask_questions"])
	assert.Equal(t, float64(0), body["message_count"])

	status, body = s.do(http.MethodGet, "/my-questions", carol, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["list"], 1)

	status, body = s.do(http.MethodGet, "/my-ride-chats", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["list"], 1)

	status, _ = s.do(http.MethodGet, "/question/not-a-uuid/responses", carol, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWebsocketPush(t *testing.T) {
	s := newServer(t)
	ride := s.f.ride.ID
	wsURL := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws/ride/" + ride

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+s.token(carol), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+s.token(bob), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.Subscribers(ride) == 1 }, time.Second, 10*time.Millisecond)

	status, _ := s.do(http.MethodPost, "/ride/"+ride+"/message", alice, map[string]string{"content": "on my way"})
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var entry MessageView
	require.NoError(t, conn.ReadJSON(&entry))
	assert.Equal(t, "on my way", entry.Content)
	assert.Equal(t, "Alice Chen", entry.SenderName)
	assert.Equal(t, TypeText, entry.Type)

	conn.Close()
	require.Eventually(t, func() bool { return s.hub.Subscribers(ride) == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebsocketDropsFormerMembers(t *testing.T) {
	s := newServer(t)
	ride := s.f.ride.ID
	wsURL := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws/ride/" + ride

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+s.token(bob), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.Subscribers(ride) == 1 }, time.Second, 10*time.Millisecond)

	_, err = s.f.ridesv.Leave(context.Background(), ride, bob)
	require.NoError(t, err)

	status, _ := s.do(http.MethodPost, "/ride/"+ride+"/message", alice, map[string]string{"content": "members only"})
	require.Equal(t, http.StatusCreated, status)
	assert.Zero(t, s.hub.Subscribers(ride))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(500*time.Millisecond)))
	var entry MessageView
	assert.Error(t, conn.ReadJSON(&entry))
	assert.Empty(t, entry.Content)
}
