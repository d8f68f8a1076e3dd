package messaging

import (
	"context"
	"slices"
	"sync"

	"campus-mobility/internal/apperr"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu        sync.Mutex
	messages  []Message
	questions []Question
	responses []Response
}

func newMemStore() *memStore { return &memStore{} }

func (m *memStore) AddMessage(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memStore) ListMessages(_ context.Context, rideID string) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Message{}
	for i := range m.messages {
		if m.messages[i].RideID == rideID {
			c := m.messages[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) FeedStats(_ context.Context, rideID string) (FeedStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st FeedStats
	for _, msg := range m.messages {
		if msg.RideID != rideID {
			continue
		}
		st.Count++
		if st.LastAt == nil || msg.CreatedAt.After(*st.LastAt) {
			t := msg.CreatedAt
			st.LastAt = &t
		}
	}
	return st, nil
}

func (m *memStore) AddQuestion(_ context.Context, q *Question, entry *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, *q)
	m.messages = append(m.messages, *entry)
	return nil
}

func (m *memStore) GetQuestion(_ context.Context, id string) (*Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, apperr.ErrQuestionNotFound
}

func (m *memStore) filterQuestions(keep func(Question) bool) []*Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Question{}
	for _, q := range m.questions {
		if keep(q) {
			c := q
			out = append(out, &c)
		}
	}
	return out
}

func (m *memStore) ListQuestions(_ context.Context, rideID string) ([]*Question, error) {
	return m.filterQuestions(func(q Question) bool { return q.RideID == rideID }), nil
}

func (m *memStore) ListQuestionsByAsker(_ context.Context, email string) ([]*Question, error) {
	out := m.filterQuestions(func(q Question) bool { return q.AskerEmail == email })
	slices.Reverse(out)
	return out, nil
}

func (m *memStore) CountQuestions(ctx context.Context, rideID string) (int, error) {
	qs, _ := m.ListQuestions(ctx, rideID)
	return len(qs), nil
}

func (m *memStore) AddResponse(_ context.Context, resp *Response, entry *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, *resp)
	for i := range m.questions {
		if m.questions[i].ID == resp.QuestionID {
			m.questions[i].IsAnswered = true
		}
	}
	m.messages = append(m.messages, *entry)
	return nil
}

func (m *memStore) ListResponses(_ context.Context, questionID string) ([]*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Response{}
	for _, r := range m.responses {
		if r.QuestionID == questionID {
			c := r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) CountResponses(_ context.Context, ids []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, r := range m.responses {
		if slices.Contains(ids, r.QuestionID) {
			out[r.QuestionID]++
		}
	}
	return out, nil
}

func (m *memStore) DeleteForRide(_ context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = slices.DeleteFunc(m.messages, func(x Message) bool { return x.RideID == rideID })
	m.questions = slices.DeleteFunc(m.questions, func(x Question) bool { return x.RideID == rideID })
	m.responses = slices.DeleteFunc(m.responses, func(x Response) bool { return x.RideID == rideID })
	return nil
}
