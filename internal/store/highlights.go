package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

// AppendHighlight adds a highlight after the entry's existing ones and
// returns the updated entry together with the new highlight.
func (s *Store) AppendHighlight(ctx context.Context, owner, url, text, note string) (*domain.Entry, domain.Highlight, error) {
	var entry *domain.Entry
	var h domain.Highlight

	err := s.withTx(ctx, "append highlight", func(tx *sql.Tx) error {
		current, err := s.findByURL(ctx, tx, owner, url, true)
		if err != nil {
			return err
		}

		var seq int
		if err := tx.QueryRowContext(ctx, s.q(
			"SELECT COALESCE(MAX(seq), 0) + 1 FROM highlights WHERE entry_id = ?",
		), current.ID).Scan(&seq); err != nil {
			return fmt.Errorf("next highlight seq: %w", err)
		}

		now := s.now()
		h = domain.Highlight{ID: uuid.New().String(), Text: text, Note: note, Timestamp: now}
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO highlights (id, entry_id, seq, text, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`), h.ID, current.ID, seq, h.Text, h.Note, now); err != nil {
			return fmt.Errorf("insert highlight: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(
			"UPDATE entries SET updated_at = ? WHERE id = ?",
		), now, current.ID); err != nil {
			return fmt.Errorf("touch entry: %w", err)
		}

		entry, err = s.findByURL(ctx, tx, owner, url, false)
		return err
	})
	if err != nil {
		return nil, domain.Highlight{}, err
	}
	return entry, h, nil
}

// SetHighlightNote sets the note of the highlight with the given id. An empty
// id addresses the most recently appended highlight of the entry.
func (s *Store) SetHighlightNote(ctx context.Context, owner, url, highlightID, note string) (*domain.Highlight, error) {
	var h domain.Highlight

	err := s.withTx(ctx, "set highlight note", func(tx *sql.Tx) error {
		current, err := s.findByURL(ctx, tx, owner, url, true)
		if err != nil {
			return err
		}

		query := "SELECT id, text, created_at FROM highlights WHERE entry_id = ? AND id = ?"
		args := []any{current.ID, highlightID}
		if highlightID == "" {
			query = "SELECT id, text, created_at FROM highlights WHERE entry_id = ? ORDER BY seq DESC LIMIT 1"
			args = args[:1]
		}
		err = tx.QueryRowContext(ctx, s.q(query), args...).Scan(&h.ID, &h.Text, &h.Timestamp)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewNotFound("highlight")
		}
		if err != nil {
			return fmt.Errorf("find highlight: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(
			"UPDATE highlights SET note = ? WHERE id = ?",
		), note, h.ID); err != nil {
			return fmt.Errorf("update highlight note: %w", err)
		}
		h.Note = note
		h.Timestamp = h.Timestamp.UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}
