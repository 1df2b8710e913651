package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

// DefaultLimit is the page size used when a filter does not set one.
const DefaultLimit = 50

var sortColumns = map[string]string{
	domain.SortVisitTime: "e.visit_time",
	domain.SortTitle:     "e.title",
	domain.SortDomain:    "e.domain",
	domain.SortCreatedAt: "e.created_at",
}

// Search returns one page of the owner's entries matching every set field
// of f, plus the size of the whole matching set.
func (s *Store) Search(ctx context.Context, owner string, f domain.Filter) (domain.Page, error) {
	where, args := s.filterClause(owner, f)

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}
	page := domain.Page{Entries: []domain.Entry{}, Limit: limit, Skip: skip}

	if err := s.db.QueryRowContext(ctx, s.q(
		"SELECT COUNT(*) FROM entries e WHERE "+where,
	), args...).Scan(&page.Total); err != nil {
		return page, appErrors.NewTransient("count entries", err)
	}

	query := "SELECT " + entryColumns + " FROM entries e WHERE " + where +
		" ORDER BY " + orderBy(f) + " LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, s.q(query), append(args, limit, skip)...)
	if err != nil {
		return page, appErrors.NewTransient("search entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return page, appErrors.NewTransient("search entries", fmt.Errorf("scan entry: %w", err))
		}
		page.Entries = append(page.Entries, *e)
	}
	if err := rows.Err(); err != nil {
		return page, appErrors.NewTransient("search entries", err)
	}
	rows.Close()

	for i := range page.Entries {
		if err := s.loadRelations(ctx, s.db, &page.Entries[i]); err != nil {
			return page, appErrors.NewTransient("search entries", err)
		}
	}
	return page, nil
}

// filterClause ANDs the set constraints of f. Free-text terms match if any
// of them occurs in the title, text, summary, a highlight or a tag.
func (s *Store) filterClause(owner string, f domain.Filter) (string, []any) {
	clauses := []string{"e.owner = ?"}
	args := []any{owner}

	if terms := strings.Fields(f.Query); len(terms) > 0 {
		var alts []string
		for _, term := range terms {
			p := likePattern(term)
			alts = append(alts, `(lower(e.title) LIKE ? ESCAPE '\'
				OR lower(e.content_text) LIKE ? ESCAPE '\'
				OR lower(e.content_summary) LIKE ? ESCAPE '\'
				OR EXISTS (SELECT 1 FROM highlights h WHERE h.entry_id = e.id
					AND (lower(h.text) LIKE ? ESCAPE '\' OR lower(h.note) LIKE ? ESCAPE '\'))
				OR EXISTS (SELECT 1 FROM entry_tags t WHERE t.entry_id = e.id AND t.tag LIKE ? ESCAPE '\'))`)
			args = append(args, p, p, p, p, p, p)
		}
		clauses = append(clauses, "("+strings.Join(alts, " OR ")+")")
	}

	if tags := domain.NormalizeTags(f.Tags); len(tags) > 0 {
		clauses = append(clauses,
			"EXISTS (SELECT 1 FROM entry_tags t WHERE t.entry_id = e.id AND t.tag IN ("+placeholders(len(tags))+"))")
		for _, t := range tags {
			args = append(args, t)
		}
	}
	if f.Category != "" {
		clauses = append(clauses, "e.category = ?")
		args = append(args, f.Category)
	}
	if f.Domain != "" {
		clauses = append(clauses, "e.domain = ?")
		args = append(args, f.Domain)
	}
	if f.Start != nil {
		clauses = append(clauses, "e.visit_time >= ?")
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		clauses = append(clauses, "e.visit_time <= ?")
		args = append(args, f.End.UTC())
	}
	return strings.Join(clauses, " AND "), args
}

func orderBy(f domain.Filter) string {
	col, ok := sortColumns[f.Sort]
	if !ok {
		return "e.visit_time DESC, e.id DESC"
	}
	dir := " ASC"
	if f.Desc {
		dir = " DESC"
	}
	return col + dir + ", e.id" + dir
}

// Stats aggregates the owner's entries: the total, the ten busiest domains,
// every category in use and the thirty most recent visit days.
func (s *Store) Stats(ctx context.Context, owner string) (domain.Stats, error) {
	st := domain.Stats{}

	if err := s.db.QueryRowContext(ctx, s.q(
		"SELECT COUNT(*) FROM entries WHERE owner = ?",
	), owner).Scan(&st.TotalEntries); err != nil {
		return st, appErrors.NewTransient("count entries", err)
	}

	var err error
	st.DomainStats, err = s.countBy(ctx, `
		SELECT domain, COUNT(*) AS n FROM entries WHERE owner = ?
		GROUP BY domain ORDER BY n DESC, domain LIMIT 10`, owner)
	if err != nil {
		return st, err
	}
	st.CategoryStats, err = s.countBy(ctx, `
		SELECT category, COUNT(*) AS n FROM entries WHERE owner = ? AND category <> ''
		GROUP BY category ORDER BY n DESC, category`, owner)
	if err != nil {
		return st, err
	}
	day := fmt.Sprintf(s.d.dayFormat, "visit_time")
	st.DayStats, err = s.countBy(ctx, `
		SELECT d.day, COUNT(*) FROM (SELECT `+day+` AS day FROM entries WHERE owner = ?) d
		GROUP BY d.day ORDER BY d.day DESC LIMIT 30`, owner)
	if err != nil {
		return st, err
	}
	return st, nil
}

func (s *Store) countBy(ctx context.Context, query string, args ...any) ([]domain.CountByKey, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, appErrors.NewTransient("aggregate entries", err)
	}
	defer rows.Close()

	out := []domain.CountByKey{}
	for rows.Next() {
		var c domain.CountByKey
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, appErrors.NewTransient("aggregate entries", fmt.Errorf("scan bucket: %w", err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewTransient("aggregate entries", err)
	}
	return out, nil
}

// Categories lists the distinct non-empty categories of the owner's entries.
func (s *Store) Categories(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		"SELECT DISTINCT category FROM entries WHERE owner = ? AND category <> '' ORDER BY category",
	), owner)
	if err != nil {
		return nil, appErrors.NewTransient("list categories", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, appErrors.NewTransient("list categories", fmt.Errorf("scan category: %w", err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewTransient("list categories", err)
	}
	return out, nil
}
