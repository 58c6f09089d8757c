package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// User is a platform user row as needed by login.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	VenueID      string
	PasswordHash string
}

// UserByEmail fetches login credentials for an active user.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, COALESCE(name, ''), COALESCE(role, 'staff'),
		       COALESCE(venue_id::text, ''), password_hash
		FROM users
		WHERE email = $1 AND active = true
	`

	var u User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.VenueID, &u.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// RecordLogin updates the user's last-login timestamp. Fire-and-forget from
// the login path.
func (s *Store) RecordLogin(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login_at = $1 WHERE id = $2::uuid`,
		time.Now(), userID,
	)
	return err
}
