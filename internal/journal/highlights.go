package journal

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

// HighlightRequest is a passage selected on a page.
type HighlightRequest struct {
	URL   string
	Text  string
	Note  string
	Title string
}

func (s *Service) validHighlight(req HighlightRequest) (HighlightRequest, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.Text = s.plain(req.Text)
	req.Note = s.plain(req.Note)

	var missing []string
	if req.URL == "" {
		missing = append(missing, "url")
	}
	if req.Text == "" {
		missing = append(missing, "text")
	}
	if len(missing) > 0 {
		return req, appErrors.NewMissingField(missing...)
	}
	return req, nil
}

// AddHighlight appends a highlight with an optional note to the entry.
func (s *Service) AddHighlight(ctx context.Context, owner string, req HighlightRequest) (domain.Highlight, error) {
	req, err := s.validHighlight(req)
	if err != nil {
		return domain.Highlight{}, err
	}
	_, h, err := s.store.AppendHighlight(ctx, owner, req.URL, req.Text, req.Note)
	return h, err
}

// AnnotateResult carries the generated note and the annotated highlight.
type AnnotateResult struct {
	Note      string
	Highlight domain.Highlight
}

// AnnotateHighlight appends the highlight, asks the language model for a
// note and attaches it to that highlight by id. A failed note leaves the
// highlight with an empty note.
func (s *Service) AnnotateHighlight(ctx context.Context, owner string, req HighlightRequest) (AnnotateResult, error) {
	req, err := s.validHighlight(req)
	if err != nil {
		return AnnotateResult{}, err
	}

	entry, h, err := s.store.AppendHighlight(ctx, owner, req.URL, req.Text, "")
	if err != nil {
		return AnnotateResult{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = entry.Title
	}
	note, err := s.enricher.AnnotateHighlight(ctx, req.Text, title)
	s.rec.ObserveEnrichment("highlight", err == nil)
	if err != nil {
		s.logger.Warn("highlight note fell back", zap.String("url", req.URL), zap.Error(err))
		return AnnotateResult{Highlight: h}, nil
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return AnnotateResult{Highlight: h}, nil
	}

	updated, err := s.store.SetHighlightNote(ctx, owner, req.URL, h.ID, note)
	if err != nil {
		if appErrors.IsNotFound(err) {
			// entry deleted meanwhile
			return AnnotateResult{Note: note, Highlight: h}, nil
		}
		return AnnotateResult{}, err
	}
	return AnnotateResult{Note: note, Highlight: *updated}, nil
}
