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

const entryColumns = `e.id, e.owner, e.url, e.title, e.domain, e.favicon, e.visit_time,
	e.content_text, e.content_summary, e.screenshot, e.category, e.is_private,
	e.enrichment_status, e.created_at, e.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var e domain.Entry
	var status string
	err := row.Scan(
		&e.ID, &e.Owner, &e.URL, &e.Title, &e.Domain, &e.Favicon, &e.VisitTime,
		&e.Content.Text, &e.Content.Summary, &e.Screenshot, &e.Category, &e.IsPrivate,
		&status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.EnrichmentStatus = domain.EnrichmentStatus(status)
	e.VisitTime = e.VisitTime.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

// FindByURL returns the owner's entry for url with its tags and highlights.
func (s *Store) FindByURL(ctx context.Context, owner, url string) (*domain.Entry, error) {
	e, err := s.findByURL(ctx, s.db, owner, url, false)
	if err != nil {
		return nil, storageErr("find entry", err)
	}
	return e, nil
}

func (s *Store) findByURL(ctx context.Context, q querier, owner, url string, lock bool) (*domain.Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries e WHERE e.owner = ? AND e.url = ?"
	if lock {
		query += s.d.forUpdate
	}
	e, err := scanEntry(q.QueryRowContext(ctx, s.q(query), owner, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFound("journal entry")
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if err := s.loadRelations(ctx, q, e); err != nil {
		return nil, err
	}
	return e, nil
}

// loadRelations fills the entry's tags and highlights in stored order.
func (s *Store) loadRelations(ctx context.Context, q querier, e *domain.Entry) error {
	tags, err := s.entryTags(ctx, q, e.ID)
	if err != nil {
		return err
	}
	e.Tags = tags

	rows, err := q.QueryContext(ctx, s.q(
		"SELECT id, text, note, created_at FROM highlights WHERE entry_id = ? ORDER BY seq",
	), e.ID)
	if err != nil {
		return fmt.Errorf("get highlights: %w", err)
	}
	defer rows.Close()

	e.Highlights = []domain.Highlight{}
	for rows.Next() {
		var h domain.Highlight
		if err := rows.Scan(&h.ID, &h.Text, &h.Note, &h.Timestamp); err != nil {
			return fmt.Errorf("scan highlight: %w", err)
		}
		h.Timestamp = h.Timestamp.UTC()
		e.Highlights = append(e.Highlights, h)
	}
	return rows.Err()
}

func (s *Store) entryTags(ctx context.Context, q querier, entryID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.q(
		"SELECT tag FROM entry_tags WHERE entry_id = ? ORDER BY position",
	), entryID)
	if err != nil {
		return nil, fmt.Errorf("get entry tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// UpsertOnVisit creates the owner's entry for v.URL or merges the visit into
// the existing one. The boolean reports whether the entry was created.
// On merge visit time only moves forward and empty fields in v leave stored
// values alone.
func (s *Store) UpsertOnVisit(ctx context.Context, owner string, v domain.Visit) (*domain.Entry, bool, error) {
	var entry *domain.Entry
	var created bool

	err := s.withTx(ctx, "upsert entry", func(tx *sql.Tx) error {
		now := s.now()

		res, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO entries (id, owner, url, title, domain, favicon, visit_time,
				content_text, screenshot, enrichment_status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (owner, url) DO NOTHING
		`), uuid.New().String(), owner, v.URL, v.Title, v.Domain, v.Favicon, now,
			v.Text, v.Screenshot, string(domain.StatusUnenriched), now, now)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		created = n == 1

		if !created {
			_, err = tx.ExecContext(ctx, s.q(`
				UPDATE entries SET
					visit_time = `+s.d.greatest+`(visit_time, ?),
					domain = ?,
					content_text = CASE WHEN ? <> '' THEN ? ELSE content_text END,
					favicon = CASE WHEN ? <> '' THEN ? ELSE favicon END,
					screenshot = CASE WHEN ? <> '' THEN ? ELSE screenshot END,
					updated_at = ?
				WHERE owner = ? AND url = ?
			`), now, v.Domain, v.Text, v.Text, v.Favicon, v.Favicon,
				v.Screenshot, v.Screenshot, now, owner, v.URL)
			if err != nil {
				return fmt.Errorf("merge entry: %w", err)
			}
		}

		entry, err = s.findByURL(ctx, tx, owner, v.URL, false)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return entry, created, nil
}

// MarkEnriching flags the entry as having enrichment in flight.
func (s *Store) MarkEnriching(ctx context.Context, owner, url string) error {
	return s.SetEnrichmentStatus(ctx, owner, url, domain.StatusEnriching)
}

// SetEnrichmentStatus overwrites the entry's enrichment status alone.
func (s *Store) SetEnrichmentStatus(ctx context.Context, owner, url string, status domain.EnrichmentStatus) error {
	res, err := s.db.ExecContext(ctx, s.q(
		"UPDATE entries SET enrichment_status = ? WHERE owner = ? AND url = ?",
	), string(status), owner, url)
	if err != nil {
		return appErrors.NewTransient("set enrichment status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewNotFound("journal entry")
	}
	return nil
}

// ApplyEnrichment stores summary, tags, category and status in one
// transaction and reconciles the tag ledger against the entry's previous tags.
// Visit time is left untouched.
func (s *Store) ApplyEnrichment(ctx context.Context, owner, url string, en domain.Enrichment) (*domain.Entry, error) {
	var entry *domain.Entry
	tags := domain.NormalizeTags(en.Tags)
	status := en.Status
	if status == "" {
		status = domain.StatusEnriched
	}

	err := s.withTx(ctx, "apply enrichment", func(tx *sql.Tx) error {
		current, err := s.findByURL(ctx, tx, owner, url, true)
		if err != nil {
			return err
		}
		now := s.now()

		if _, err := tx.ExecContext(ctx, s.q(`
			UPDATE entries SET content_summary = ?, category = ?, enrichment_status = ?, updated_at = ?
			WHERE id = ?
		`), en.Summary, en.Category, string(status), now, current.ID); err != nil {
			return fmt.Errorf("update enrichment: %w", err)
		}

		removed, added := domain.DiffTags(current.Tags, tags)
		if err := s.writeEntryTags(ctx, tx, current.ID, tags); err != nil {
			return err
		}
		if err := s.reconcile(ctx, tx, owner, removed, added, en.Category); err != nil {
			return err
		}

		entry, err = s.findByURL(ctx, tx, owner, url, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReplaceTags swaps the entry's tag set wholesale and returns the removed and
// added names. The ledger is reconciled in the same transaction.
func (s *Store) ReplaceTags(ctx context.Context, owner, url string, tags []string) (*domain.Entry, []string, []string, error) {
	var entry *domain.Entry
	var removed, added []string
	tags = domain.NormalizeTags(tags)

	err := s.withTx(ctx, "replace tags", func(tx *sql.Tx) error {
		current, err := s.findByURL(ctx, tx, owner, url, true)
		if err != nil {
			return err
		}

		removed, added = domain.DiffTags(current.Tags, tags)
		if err := s.writeEntryTags(ctx, tx, current.ID, tags); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(
			"UPDATE entries SET updated_at = ? WHERE id = ?",
		), s.now(), current.ID); err != nil {
			return fmt.Errorf("touch entry: %w", err)
		}
		if err := s.reconcile(ctx, tx, owner, removed, added, current.Category); err != nil {
			return err
		}

		entry, err = s.findByURL(ctx, tx, owner, url, false)
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return entry, removed, added, nil
}

func (s *Store) writeEntryTags(ctx context.Context, tx *sql.Tx, entryID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, s.q("DELETE FROM entry_tags WHERE entry_id = ?"), entryID); err != nil {
		return fmt.Errorf("clear entry tags: %w", err)
	}
	for i, t := range tags {
		if _, err := tx.ExecContext(ctx, s.q(
			"INSERT INTO entry_tags (entry_id, tag, position) VALUES (?, ?, ?)",
		), entryID, t, i); err != nil {
			return fmt.Errorf("link entry tag: %w", err)
		}
	}
	return nil
}

// Delete removes the entry and releases its tag references. It reports
// whether an entry was removed.
func (s *Store) Delete(ctx context.Context, owner, url string) (bool, error) {
	deleted := false
	err := s.withTx(ctx, "delete entry", func(tx *sql.Tx) error {
		current, err := s.findByURL(ctx, tx, owner, url, true)
		if appErrors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}

		for _, stmt := range []string{
			"DELETE FROM highlights WHERE entry_id = ?",
			"DELETE FROM entry_tags WHERE entry_id = ?",
			"DELETE FROM entries WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, s.q(stmt), current.ID); err != nil {
				return fmt.Errorf("delete entry: %w", err)
			}
		}
		deleted = true
		return s.reconcile(ctx, tx, owner, current.Tags, nil, "")
	})
	return deleted, err
}
