package journal

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

// FallbackSummary is stored when the summary cannot be generated.
const FallbackSummary = "Summary generation failed. Please try again later."

const statusResetTimeout = 5 * time.Second

// EnrichRequest names the entry to enrich and the content to derive from.
type EnrichRequest struct {
	URL   string
	Title string
	Text  string
}

// EnrichResult is what enrichment produced. Entry is nil when the owner has
// no entry for the URL.
type EnrichResult struct {
	Summary  string
	Tags     []string
	Category string
	Status   domain.EnrichmentStatus
	Entry    *domain.Entry
}

// Enrich derives summary, tags and category and applies them to the entry.
// The three derivations run concurrently and each falls back on its own
// failure, so enrichment itself only fails on storage errors. Running it
// again overwrites the previous results.
func (s *Service) Enrich(ctx context.Context, owner string, req EnrichRequest) (EnrichResult, error) {
	req.URL = strings.TrimSpace(req.URL)
	var missing []string
	if req.URL == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(req.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(req.Text) == "" {
		missing = append(missing, "text")
	}
	if len(missing) > 0 {
		return EnrichResult{}, appErrors.NewMissingField(missing...)
	}

	exists := true
	var prevTags []string
	prev, err := s.store.FindByURL(ctx, owner, req.URL)
	switch {
	case appErrors.IsNotFound(err):
		exists = false
	case err != nil:
		return EnrichResult{}, err
	default:
		prevTags = prev.Tags
		if err := s.store.MarkEnriching(ctx, owner, req.URL); err != nil && !appErrors.IsNotFound(err) {
			return EnrichResult{}, err
		}
	}

	res := s.derive(ctx, req)
	if !exists {
		return res, nil
	}

	entry, err := s.store.ApplyEnrichment(ctx, owner, req.URL, domain.Enrichment{
		Summary:  res.Summary,
		Tags:     res.Tags,
		Category: res.Category,
		Status:   res.Status,
	})
	if appErrors.IsNotFound(err) {
		// deleted while the model was busy
		return res, nil
	}
	if err != nil {
		s.logger.Error("apply enrichment failed", zap.String("url", req.URL), zap.Error(err))
		s.markFailed(ctx, owner, req.URL)
		return EnrichResult{}, err
	}

	removed, added := domain.DiffTags(prevTags, entry.Tags)
	s.rec.ObserveReconcile(len(removed), len(added))
	res.Tags = entry.Tags
	res.Entry = entry
	return res, nil
}

// markFailed takes the entry out of enriching after a failed apply. It runs
// detached from ctx, which may be the cancelled request that caused the
// failure.
func (s *Service) markFailed(ctx context.Context, owner, url string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusResetTimeout)
	defer cancel()
	err := s.store.SetEnrichmentStatus(ctx, owner, url, domain.StatusFailed)
	if err != nil && !appErrors.IsNotFound(err) {
		s.logger.Error("reset enrichment status failed", zap.String("url", url), zap.Error(err))
	}
}

// EnrichStored re-enriches an existing entry from its stored content.
func (s *Service) EnrichStored(ctx context.Context, owner, url string) (EnrichResult, error) {
	entry, err := s.store.FindByURL(ctx, owner, url)
	if err != nil {
		return EnrichResult{}, err
	}
	text := entry.Content.Text
	if text == "" {
		text = entry.Title
	}
	return s.Enrich(ctx, owner, EnrichRequest{URL: entry.URL, Title: entry.Title, Text: text})
}

// derive runs the three language-model calls, applying fallbacks.
func (s *Service) derive(ctx context.Context, req EnrichRequest) EnrichResult {
	var res EnrichResult
	var summaryErr, tagErr, categoryErr error
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		res.Summary, summaryErr = s.enricher.Summarize(ctx, req.Text, req.Title, req.URL)
	}()
	go func() {
		defer wg.Done()
		res.Tags, tagErr = s.enricher.Tag(ctx, req.Text, req.Title)
	}()
	go func() {
		defer wg.Done()
		res.Category, categoryErr = s.enricher.Categorize(ctx, req.Text, req.Title)
	}()
	wg.Wait()

	res.Status = domain.StatusEnriched
	if summaryErr != nil {
		res.Summary = FallbackSummary
		res.Status = domain.StatusFailed
	}
	if tagErr != nil {
		res.Tags = nil
	}
	res.Tags = domain.NormalizeTags(res.Tags)
	if categoryErr != nil {
		res.Category = domain.CategoryOther
	} else {
		res.Category = domain.NormalizeCategory(res.Category)
	}

	for kind, err := range map[string]error{"summary": summaryErr, "tags": tagErr, "category": categoryErr} {
		s.rec.ObserveEnrichment(kind, err == nil)
		if err != nil {
			s.logger.Warn("enrichment fell back", zap.String("kind", kind), zap.String("url", req.URL), zap.Error(err))
		}
	}
	return res
}
