package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

const tagColumns = "owner, name, category, count, created_at, updated_at"

// Reconcile applies ledger deltas: every removed name is decremented
// (floored at zero) and every added name incremented, creating it with
// category when absent. Each delta is a single atomic statement.
func (s *Store) Reconcile(ctx context.Context, owner string, removed, added []string, category string) error {
	return s.withTx(ctx, "reconcile tags", func(tx *sql.Tx) error {
		return s.reconcile(ctx, tx, owner, removed, added, category)
	})
}

func (s *Store) reconcile(ctx context.Context, q querier, owner string, removed, added []string, category string) error {
	now := s.now()
	for _, name := range removed {
		name = domain.NormalizeTag(name)
		if name == "" {
			continue
		}
		if _, err := q.ExecContext(ctx, s.q(`
			UPDATE tags SET count = CASE WHEN count > 0 THEN count - 1 ELSE 0 END, updated_at = ?
			WHERE owner = ? AND name = ?
		`), now, owner, name); err != nil {
			return fmt.Errorf("decrement tag %q: %w", name, err)
		}
	}
	for _, name := range added {
		name = domain.NormalizeTag(name)
		if name == "" {
			continue
		}
		if _, err := q.ExecContext(ctx, s.q(`
			INSERT INTO tags (owner, name, category, count, created_at, updated_at)
			VALUES (?, ?, ?, 1, ?, ?)
			ON CONFLICT (owner, name) DO UPDATE SET
				count = tags.count + 1,
				category = CASE WHEN tags.category = '' THEN excluded.category ELSE tags.category END,
				updated_at = excluded.updated_at
		`), owner, name, category, now, now); err != nil {
			return fmt.Errorf("increment tag %q: %w", name, err)
		}
	}
	return nil
}

// GetTag returns one ledger row.
func (s *Store) GetTag(ctx context.Context, owner, name string) (*domain.Tag, error) {
	tags, err := s.queryTags(ctx, "list tags",
		"SELECT "+tagColumns+" FROM tags WHERE owner = ? AND name = ?",
		owner, domain.NormalizeTag(name))
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, appErrors.NewNotFound("tag")
	}
	return &tags[0], nil
}

// ListTags returns every ledger row of the owner, most used first.
func (s *Store) ListTags(ctx context.Context, owner string) ([]domain.Tag, error) {
	return s.queryTags(ctx, "list tags",
		"SELECT "+tagColumns+" FROM tags WHERE owner = ? ORDER BY count DESC, name",
		owner)
}

// PopularTags returns up to limit live tags, most used first.
func (s *Store) PopularTags(ctx context.Context, owner string, limit int) ([]domain.Tag, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryTags(ctx, "popular tags",
		"SELECT "+tagColumns+" FROM tags WHERE owner = ? AND count > 0 ORDER BY count DESC, name LIMIT ?",
		owner, limit)
}

// TagsByCategory returns the owner's tags filed under category, most used first.
func (s *Store) TagsByCategory(ctx context.Context, owner, category string) ([]domain.Tag, error) {
	return s.queryTags(ctx, "tags by category",
		"SELECT "+tagColumns+" FROM tags WHERE owner = ? AND category = ? ORDER BY count DESC, name",
		owner, category)
}

// SearchTags returns tags whose name contains query, case-insensitively.
func (s *Store) SearchTags(ctx context.Context, owner, query string) ([]domain.Tag, error) {
	return s.queryTags(ctx, "search tags",
		`SELECT `+tagColumns+` FROM tags WHERE owner = ? AND lower(name) LIKE ? ESCAPE '\'
		ORDER BY count DESC, name`,
		owner, likePattern(query))
}

func (s *Store) queryTags(ctx context.Context, op, query string, args ...any) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, appErrors.NewTransient(op, err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.Owner, &t.Name, &t.Category, &t.Count, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, appErrors.NewTransient(op, fmt.Errorf("scan tag: %w", err))
		}
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewTransient(op, err)
	}
	return tags, nil
}

// RebuildTagCounts recomputes the owner's ledger from the entries' tag
// sets. Tags nobody carries drop to zero but are kept. It returns the number
// of live tags.
func (s *Store) RebuildTagCounts(ctx context.Context, owner string) (int, error) {
	live := 0
	err := s.withTx(ctx, "rebuild tag counts", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.q(`
			SELECT et.tag, COUNT(*), MAX(e.category)
			FROM entry_tags et JOIN entries e ON e.id = et.entry_id
			WHERE e.owner = ?
			GROUP BY et.tag
		`), owner)
		if err != nil {
			return fmt.Errorf("count entry tags: %w", err)
		}
		type tally struct {
			name     string
			count    int
			category string
		}
		var tallies []tally
		for rows.Next() {
			var t tally
			if err := rows.Scan(&t.name, &t.count, &t.category); err != nil {
				rows.Close()
				return fmt.Errorf("scan tag count: %w", err)
			}
			tallies = append(tallies, t)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		now := s.now()
		if _, err := tx.ExecContext(ctx, s.q(
			"UPDATE tags SET count = 0, updated_at = ? WHERE owner = ?",
		), now, owner); err != nil {
			return fmt.Errorf("reset tag counts: %w", err)
		}
		for _, t := range tallies {
			if _, err := tx.ExecContext(ctx, s.q(`
				INSERT INTO tags (owner, name, category, count, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (owner, name) DO UPDATE SET
					count = excluded.count,
					category = CASE WHEN tags.category = '' THEN excluded.category ELSE tags.category END,
					updated_at = excluded.updated_at
			`), owner, t.name, t.category, t.count, now, now); err != nil {
				return fmt.Errorf("store tag count %q: %w", t.name, err)
			}
		}
		live = len(tallies)
		return nil
	})
	return live, err
}

// likePattern builds a lower-cased substring pattern with LIKE
// metacharacters escaped by backslash.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}
