package journal

import (
	"context"
	"strings"

	"github.com/pbaille/autojournal/internal/domain"
)

// UpdateTags replaces the entry's tags and reconciles the ledger.
func (s *Service) UpdateTags(ctx context.Context, owner, url string, tags []string) (*domain.Entry, error) {
	entry, removed, added, err := s.store.ReplaceTags(ctx, owner, url, tags)
	if err != nil {
		return nil, err
	}
	s.rec.ObserveReconcile(len(removed), len(added))
	return entry, nil
}

// TagQuery selects ledger rows. Query wins over Category, which wins over
// Limit; an empty query lists every tag.
type TagQuery struct {
	Query    string
	Category string
	Limit    int
}

// Tags lists ledger rows, most used first.
func (s *Service) Tags(ctx context.Context, owner string, q TagQuery) ([]domain.Tag, error) {
	switch {
	case strings.TrimSpace(q.Query) != "":
		return s.store.SearchTags(ctx, owner, strings.TrimSpace(q.Query))
	case q.Category != "":
		return s.store.TagsByCategory(ctx, owner, q.Category)
	case q.Limit > 0:
		return s.store.PopularTags(ctx, owner, q.Limit)
	default:
		return s.store.ListTags(ctx, owner)
	}
}

// Categories lists the categories in use.
func (s *Service) Categories(ctx context.Context, owner string) ([]string, error) {
	return s.store.Categories(ctx, owner)
}

// RebuildTags recomputes the ledger from the entries.
func (s *Service) RebuildTags(ctx context.Context, owner string) (int, error) {
	return s.store.RebuildTagCounts(ctx, owner)
}
