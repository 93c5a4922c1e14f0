// Package postgres implements the UserStore on PostgreSQL via pgx. The
// users table carries a unique index on email, so duplicate-email
// registration races are settled by the database in a single insert.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/panyam/authgate"
)

// uniqueViolation is the PostgreSQL error code for a unique-constraint
// conflict.
const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects a pool for dsn and returns a store over it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*authgate.User, error) {
	query := `
		SELECT id, email, password_hash, profile, created_at, updated_at
		FROM users
		WHERE email = $1`

	var (
		user    authgate.User
		profile []byte
	)
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &profile, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authgate.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &user.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*authgate.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, profile)
		VALUES ($1, $2, $3, '{}'::jsonb)
		RETURNING created_at, updated_at`

	user := &authgate.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Profile:      map[string]string{},
	}
	err := s.pool.QueryRow(ctx, query, user.ID, email, passwordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, authgate.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (s *Store) UpdateProfile(ctx context.Context, email string, fields map[string]string) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	query := `
		UPDATE users
		SET profile = profile || $2::jsonb, updated_at = $3
		WHERE email = $1`

	tag, err := s.pool.Exec(ctx, query, email, patch, time.Now())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authgate.ErrUserNotFound
	}
	return nil
}
