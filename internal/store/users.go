package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

// CreateUser inserts u. An existing user id is a conflict.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	settings, err := json.Marshal(u.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	now := s.now()

	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (user_id, password_hash, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`), u.UserID, u.PasswordHash, string(settings), now, now)
	if err != nil {
		return appErrors.NewTransient("create user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewConflict("user already exists")
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	var settings string
	err := s.db.QueryRowContext(ctx, s.q(
		"SELECT user_id, password_hash, settings, created_at, updated_at FROM users WHERE user_id = ?",
	), userID).Scan(&u.UserID, &u.PasswordHash, &settings, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFound("user")
	}
	if err != nil {
		return nil, appErrors.NewTransient("get user", err)
	}

	u.Settings = domain.DefaultSettings()
	if err := json.Unmarshal([]byte(settings), &u.Settings); err != nil {
		return nil, appErrors.NewInternal("decode settings", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// UpdateSettings overwrites the user's settings and returns the user.
func (s *Store) UpdateSettings(ctx context.Context, userID string, settings domain.Settings) (*domain.User, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.q(
		"UPDATE users SET settings = ?, updated_at = ? WHERE user_id = ?",
	), string(raw), s.now(), userID)
	if err != nil {
		return nil, appErrors.NewTransient("update settings", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, appErrors.NewNotFound("user")
	}
	return s.GetUser(ctx, userID)
}
