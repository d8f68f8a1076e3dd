package rides

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus-mobility/internal/apperr"
)

// ErrNotApplied means a conditional update matched no row; the caller
// re-reads the ride to find out why.
var ErrNotApplied = errors.New("conditional update not applied")

// Store persists rides. Every mutation is a single-row conditional statement.
type Store interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id string) (*Ride, error)
	ListForCommunities(ctx context.Context, communities []string) ([]*Ride, error)
	ListForMember(ctx context.Context, email string) ([]*Ride, error)
	// AddParticipant appends email while it is absent and capacity remains.
	AddParticipant(ctx context.Context, id, email string) (*Ride, error)
	// RemoveParticipant drops a non-creator member and re-opens the ride.
	RemoveParticipant(ctx context.Context, id, email string) (*Ride, error)
	// TransferOwnership drops the creator and promotes the earliest remaining member.
	TransferOwnership(ctx context.Context, id, creator string) (*Ride, error)
	// Delete removes the ride when creator still owns it.
	Delete(ctx context.Context, id, creator string) error
}

// PGStore is the Postgres-backed Store.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a ride store backed by the given pool.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const rideColumns = `id, origin, destination, departure_date, earliest_time, latest_time,
	communities, creator_email, max_participants, user_ids, status, created_at`

func scanRide(row pgx.Row) (*Ride, error) {
	var r Ride
	err := row.Scan(&r.ID, &r.Origin, &r.Destination, &r.DepartureDate, &r.EarliestTime, &r.LatestTime,
		&r.Communities, &r.CreatorEmail, &r.MaxParticipants, &r.UserIDs, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collect(rows pgx.Rows, err error) ([]*Ride, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*Ride{}
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// applied maps pgx.ErrNoRows from a RETURNING update to ErrNotApplied.
func applied(r *Ride, err error) (*Ride, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotApplied
	}
	return r, err
}

func (s *PGStore) Create(ctx context.Context, r *Ride) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ride_requests (id, origin, destination, departure_date, earliest_time, latest_time,
			communities, creator_email, max_participants, user_ids, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.Origin, r.Destination, r.DepartureDate, r.EarliestTime, r.LatestTime,
		r.Communities, r.CreatorEmail, r.MaxParticipants, r.UserIDs, r.Status, r.CreatedAt)
	return err
}

func (s *PGStore) Get(ctx context.Context, id string) (*Ride, error) {
	r, err := scanRide(s.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM ride_requests WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrRideNotFound
	}
	return r, err
}

func (s *PGStore) ListForCommunities(ctx context.Context, communities []string) ([]*Ride, error) {
	return collect(s.db.Query(ctx,
		`SELECT `+rideColumns+` FROM ride_requests WHERE communities && $1 ORDER BY seq`, communities))
}

func (s *PGStore) ListForMember(ctx context.Context, email string) ([]*Ride, error) {
	return collect(s.db.Query(ctx,
		`SELECT `+rideColumns+` FROM ride_requests
		 WHERE creator_email=$1 OR $1 = ANY(user_ids) ORDER BY seq`, email))
}

func (s *PGStore) AddParticipant(ctx context.Context, id, email string) (*Ride, error) {
	return applied(scanRide(s.db.QueryRow(ctx, `
		UPDATE ride_requests
		SET user_ids = array_append(user_ids, $2),
		    status   = CASE WHEN cardinality(user_ids) + 1 >= max_participants THEN 'full' ELSE 'active' END
		WHERE id=$1
		  AND creator_email <> $2
		  AND NOT ($2 = ANY(user_ids))
		  AND cardinality(user_ids) < max_participants
		RETURNING `+rideColumns, id, email)))
}

func (s *PGStore) RemoveParticipant(ctx context.Context, id, email string) (*Ride, error) {
	return applied(scanRide(s.db.QueryRow(ctx, `
		UPDATE ride_requests
		SET user_ids = array_remove(user_ids, $2),
		    status   = 'active'
		WHERE id=$1
		  AND creator_email <> $2
		  AND $2 = ANY(user_ids)
		RETURNING `+rideColumns, id, email)))
}

func (s *PGStore) TransferOwnership(ctx context.Context, id, creator string) (*Ride, error) {
	return applied(scanRide(s.db.QueryRow(ctx, `
		UPDATE ride_requests
		SET user_ids      = array_remove(user_ids, $2),
		    creator_email = (array_remove(user_ids, $2))[1],
		    status        = 'active'
		WHERE id=$1
		  AND creator_email = $2
		  AND cardinality(array_remove(user_ids, $2)) > 0
		RETURNING `+rideColumns, id, creator)))
}

func (s *PGStore) Delete(ctx context.Context, id, creator string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM ride_requests WHERE id=$1 AND creator_email=$2`, id, creator)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotApplied
	}
	return nil
}
