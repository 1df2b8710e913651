package journal

import (
	"context"
	"strings"
	"time"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

// SearchParams is a search as received from a client, before validation.
type SearchParams struct {
	Query     string
	Tags      string
	Category  string
	Domain    string
	StartDate string
	EndDate   string
	Sort      string
	Order     string
	Limit     int
	Skip      int
}

const dateOnly = "2006-01-02"

// ParseFilter validates p and builds the store filter.
func ParseFilter(p SearchParams) (domain.Filter, error) {
	f := domain.Filter{
		Query:    strings.TrimSpace(p.Query),
		Category: strings.TrimSpace(p.Category),
		Domain:   strings.ToLower(strings.TrimSpace(p.Domain)),
		Limit:    p.Limit,
		Skip:     p.Skip,
		Desc:     true,
	}
	if p.Limit < 0 || p.Skip < 0 {
		return f, appErrors.NewValidation("limit and skip must not be negative")
	}
	if p.Tags != "" {
		f.Tags = domain.NormalizeTags(strings.Split(p.Tags, ","))
	}

	switch p.Sort {
	case "":
	case domain.SortVisitTime, domain.SortTitle, domain.SortDomain, domain.SortCreatedAt:
		f.Sort = p.Sort
	default:
		return f, appErrors.NewValidation("unknown sort field " + p.Sort)
	}
	switch strings.ToLower(p.Order) {
	case "", "desc":
	case "asc":
		f.Desc = false
	default:
		return f, appErrors.NewValidation("order must be asc or desc")
	}

	var err error
	if f.Start, err = ParseDateBound(p.StartDate, false); err != nil {
		return f, err
	}
	if f.End, err = ParseDateBound(p.EndDate, true); err != nil {
		return f, err
	}
	return f, nil
}

// ParseDateBound parses an RFC 3339 timestamp or a date. A date used as an
// end bound means the end of that day (UTC).
func ParseDateBound(s string, end bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		if end {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, appErrors.NewValidation("invalid date " + s)
	}
	t = t.UTC()
	return &t, nil
}

// Search returns one page of matching entries and the total match count.
func (s *Service) Search(ctx context.Context, owner string, f domain.Filter) (domain.Page, error) {
	return s.store.Search(ctx, owner, f)
}

// Get returns the entry for url.
func (s *Service) Get(ctx context.Context, owner, url string) (*domain.Entry, error) {
	return s.store.FindByURL(ctx, owner, url)
}

// Delete removes the entry for url.
func (s *Service) Delete(ctx context.Context, owner, url string) error {
	ok, err := s.store.Delete(ctx, owner, url)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewNotFound("journal entry")
	}
	return nil
}

// Stats aggregates the owner's journal.
func (s *Service) Stats(ctx context.Context, owner string) (domain.Stats, error) {
	return s.store.Stats(ctx, owner)
}
