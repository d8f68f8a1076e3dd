package messaging

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus-mobility/internal/apperr"
)

// Store persists ride feeds, questions and responses. ride_id is a soft
// reference, so rows may outlive their ride.
type Store interface {
	AddMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, rideID string) ([]*Message, error)
	FeedStats(ctx context.Context, rideID string) (FeedStats, error)

	// AddQuestion stores q together with its feed entry.
	AddQuestion(ctx context.Context, q *Question, entry *Message) error
	GetQuestion(ctx context.Context, id string) (*Question, error)
	ListQuestions(ctx context.Context, rideID string) ([]*Question, error)
	ListQuestionsByAsker(ctx context.Context, email string) ([]*Question, error)
	CountQuestions(ctx context.Context, rideID string) (int, error)

	// AddResponse stores resp, marks its question answered and appends entry.
	AddResponse(ctx context.Context, resp *Response, entry *Message) error
	ListResponses(ctx context.Context, questionID string) ([]*Response, error)
	CountResponses(ctx context.Context, questionIDs []string) (map[string]int, error)

	DeleteForRide(ctx context.Context, rideID string) error
}

// PGStore is the Postgres-backed Store.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a messaging store backed by the given pool.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertMessage(ctx context.Context, tx execer, m *Message) error {
	var qid *string
	if m.QuestionID != "" {
		qid = &m.QuestionID
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO ride_messages (id, ride_id, sender_email, content, message_type, question_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.RideID, m.SenderEmail, m.Content, m.Type, qid, m.CreatedAt)
	return err
}

func (s *PGStore) AddMessage(ctx context.Context, m *Message) error {
	return insertMessage(ctx, s.db, m)
}

func (s *PGStore) ListMessages(ctx context.Context, rideID string) ([]*Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, ride_id, sender_email, content, message_type, COALESCE(question_id::text, ''), created_at
		FROM ride_messages WHERE ride_id=$1 ORDER BY seq`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RideID, &m.SenderEmail, &m.Content, &m.Type, &m.QuestionID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *PGStore) FeedStats(ctx context.Context, rideID string) (FeedStats, error) {
	var st FeedStats
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM ride_messages WHERE ride_id=$1`, rideID).Scan(&st.Count, &st.LastAt)
	return st, err
}

func (s *PGStore) AddQuestion(ctx context.Context, q *Question, entry *Message) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO ride_questions (id, ride_id, asker_email, question, is_answered, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			q.ID, q.RideID, q.AskerEmail, q.Question, q.IsAnswered, q.CreatedAt)
		if err != nil {
			return err
		}
		return insertMessage(ctx, tx, entry)
	})
}

const questionColumns = `id, ride_id, asker_email, question, is_answered, created_at`

func scanQuestions(rows pgx.Rows, err error) ([]*Question, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*Question{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.RideID, &q.AskerEmail, &q.Question, &q.IsAnswered, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

func (s *PGStore) GetQuestion(ctx context.Context, id string) (*Question, error) {
	var q Question
	err := s.db.QueryRow(ctx, `SELECT `+questionColumns+` FROM ride_questions WHERE id=$1`, id).
		Scan(&q.ID, &q.RideID, &q.AskerEmail, &q.Question, &q.IsAnswered, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *PGStore) ListQuestions(ctx context.Context, rideID string) ([]*Question, error) {
	return scanQuestions(s.db.Query(ctx,
		`SELECT `+questionColumns+` FROM ride_questions WHERE ride_id=$1 ORDER BY seq`, rideID))
}

func (s *PGStore) ListQuestionsByAsker(ctx context.Context, email string) ([]*Question, error) {
	return scanQuestions(s.db.Query(ctx,
		`SELECT `+questionColumns+` FROM ride_questions WHERE asker_email=$1 ORDER BY seq DESC`, email))
}

func (s *PGStore) CountQuestions(ctx context.Context, rideID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM ride_questions WHERE ride_id=$1`, rideID).Scan(&n)
	return n, err
}

func (s *PGStore) AddResponse(ctx context.Context, resp *Response, entry *Message) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO question_responses (id, question_id, ride_id, responder_email, asker_email, response, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			resp.ID, resp.QuestionID, resp.RideID, resp.ResponderEmail, resp.AskerEmail, resp.Response, resp.CreatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE ride_questions SET is_answered=TRUE WHERE id=$1`, resp.QuestionID); err != nil {
			return err
		}
		return insertMessage(ctx, tx, entry)
	})
}

func (s *PGStore) ListResponses(ctx context.Context, questionID string) ([]*Response, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, question_id, ride_id, responder_email, asker_email, response, created_at
		FROM question_responses WHERE question_id=$1 ORDER BY seq`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*Response{}
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.RideID, &r.ResponderEmail, &r.AskerEmail, &r.Response, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PGStore) CountResponses(ctx context.Context, questionIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT question_id::text, COUNT(*) FROM question_responses
		WHERE question_id = ANY($1::uuid[]) GROUP BY question_id`, questionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// DeleteForRide removes every feed entry, question and response of a ride.
func (s *PGStore) DeleteForRide(ctx context.Context, rideID string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM question_responses WHERE ride_id=$1`,
			`DELETE FROM ride_questions WHERE ride_id=$1`,
			`DELETE FROM ride_messages WHERE ride_id=$1`,
		} {
			if _, err := tx.Exec(ctx, stmt, rideID); err != nil {
				return err
			}
		}
		return nil
	})
}
