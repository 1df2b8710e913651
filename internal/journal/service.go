// Package journal turns page visits into journal entries and keeps their
// AI-derived metadata, highlights and tags consistent.
package journal

import (
	"context"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/pbaille/autojournal/internal/domain"
)

// Store is the persistence the journal needs.
type Store interface {
	FindByURL(ctx context.Context, owner, url string) (*domain.Entry, error)
	UpsertOnVisit(ctx context.Context, owner string, v domain.Visit) (*domain.Entry, bool, error)
	MarkEnriching(ctx context.Context, owner, url string) error
	SetEnrichmentStatus(ctx context.Context, owner, url string, status domain.EnrichmentStatus) error
	ApplyEnrichment(ctx context.Context, owner, url string, en domain.Enrichment) (*domain.Entry, error)
	AppendHighlight(ctx context.Context, owner, url, text, note string) (*domain.Entry, domain.Highlight, error)
	SetHighlightNote(ctx context.Context, owner, url, highlightID, note string) (*domain.Highlight, error)
	ReplaceTags(ctx context.Context, owner, url string, tags []string) (*domain.Entry, []string, []string, error)
	Delete(ctx context.Context, owner, url string) (bool, error)

	Search(ctx context.Context, owner string, f domain.Filter) (domain.Page, error)
	Stats(ctx context.Context, owner string) (domain.Stats, error)
	Categories(ctx context.Context, owner string) ([]string, error)

	ListTags(ctx context.Context, owner string) ([]domain.Tag, error)
	PopularTags(ctx context.Context, owner string, limit int) ([]domain.Tag, error)
	TagsByCategory(ctx context.Context, owner, category string) ([]domain.Tag, error)
	SearchTags(ctx context.Context, owner, query string) ([]domain.Tag, error)
	RebuildTagCounts(ctx context.Context, owner string) (int, error)
}

// Enricher is the language-model capability.
type Enricher interface {
	Summarize(ctx context.Context, text, title, url string) (string, error)
	Tag(ctx context.Context, text, title string) ([]string, error)
	Categorize(ctx context.Context, text, title string) (string, error)
	AnnotateHighlight(ctx context.Context, text, title string) (string, error)
}

// Uploader hosts screenshots and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, image string) (string, error)
}

// Recorder receives journal metrics.
type Recorder interface {
	ObserveCapture(result string)
	ObserveEnrichment(kind string, ok bool)
	ObserveReconcile(removed, added int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCapture(string)         {}
func (nopRecorder) ObserveEnrichment(string, bool) {}
func (nopRecorder) ObserveReconcile(int, int)      {}

// Service is the journal core
type Service struct {
	store    Store
	enricher Enricher
	uploader Uploader
	rec      Recorder
	logger   *zap.Logger
	policy   *bluemonday.Policy
}

// Option configures a Service.
type Option func(*Service)

// WithUploader enables screenshot hosting.
func WithUploader(u Uploader) Option {
	return func(s *Service) { s.uploader = u }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.rec = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(store Store, enricher Enricher, opts ...Option) *Service {
	s := &Service{
		store:    store,
		enricher: enricher,
		rec:      nopRecorder{},
		logger:   zap.NewNop(),
		policy:   bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// plain strips markup from user-supplied text.
func (s *Service) plain(in string) string {
	if !strings.ContainsAny(in, "<&") {
		return strings.TrimSpace(in)
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}
