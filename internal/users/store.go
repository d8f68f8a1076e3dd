package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus-mobility/internal/apperr"
)

// Store persists users.
type Store interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByEmails(ctx context.Context, emails []string) ([]*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, email string) error
}

// PGStore is the Postgres-backed Store.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a user store backed by the given pool.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, email, password_hash, college, university_info, verified,
	COALESCE(verification_code_hash, ''), verification_expires_at,
	COALESCE(reset_code_hash, ''), reset_expires_at,
	first_name, last_name, year, major, bio, profile_picture, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.College, &u.UniversityInfo, &u.Verified,
		&u.VerificationCodeHash, &u.VerificationExpiresAt,
		&u.ResetCodeHash, &u.ResetExpiresAt,
		&u.FirstName, &u.LastName, &u.Year, &u.Major, &u.Bio, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrUserNotFound
	}
	return u, err
}

func (s *PGStore) ListByEmails(ctx context.Context, emails []string) ([]*User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE email = ANY($1)`, emails)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, college, university_info, verified,
			verification_code_hash, verification_expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9,$9)`,
		u.ID, u.Email, u.PasswordHash, u.College, u.UniversityInfo, u.Verified,
		u.VerificationCodeHash, u.VerificationExpiresAt, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.ErrAlreadyExists
	}
	return err
}

func (s *PGStore) Update(ctx context.Context, u *User) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET
			password_hash=$2, college=$3, university_info=$4, verified=$5,
			verification_code_hash=NULLIF($6,''), verification_expires_at=$7,
			reset_code_hash=NULLIF($8,''), reset_expires_at=$9,
			first_name=$10, last_name=$11, year=$12, major=$13, bio=$14, profile_picture=$15,
			updated_at=$16
		WHERE email=$1`,
		u.Email, u.PasswordHash, u.College, u.UniversityInfo, u.Verified,
		u.VerificationCodeHash, u.VerificationExpiresAt,
		u.ResetCodeHash, u.ResetExpiresAt,
		u.FirstName, u.LastName, u.Year, u.Major, u.Bio, u.ProfilePicture,
		u.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, email string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE email=$1`, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}
