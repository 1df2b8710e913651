package api

import (
	"net/http"

	"github.com/pbaille/autojournal/internal/auth"
	"github.com/pbaille/autojournal/internal/domain"
	"github.com/pbaille/autojournal/internal/journal"
)

type logRequest struct {
	URL        string `json:"url" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Text       string `json:"text"`
	Favicon    string `json:"favicon"`
	Screenshot string `json:"screenshot"`
}

type entryResponse struct {
	Message string        `json:"message"`
	Entry   *domain.Entry `json:"entry"`
}

type skippedResponse struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason"`
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := auth.FromContext(r.Context())
	res, err := s.journal.Capture(r.Context(), id.Owner(), id.Settings(), journal.CaptureRequest{
		URL:        req.URL,
		Title:      req.Title,
		Text:       req.Text,
		Favicon:    req.Favicon,
		Screenshot: req.Screenshot,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch {
	case res.Skipped:
		writeJSON(w, http.StatusAccepted, skippedResponse{Skipped: true, Reason: res.Reason})
	case res.Created:
		writeJSON(w, http.StatusCreated, entryResponse{Message: "Journal entry created", Entry: res.Entry})
	default:
		writeJSON(w, http.StatusOK, entryResponse{Message: "Journal entry updated", Entry: res.Entry})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.journal.Stats(r.Context(), auth.FromContext(r.Context()).Owner())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type summarizeRequest struct {
	URL   string `json:"url" validate:"required"`
	Title string `json:"title" validate:"required"`
	Text  string `json:"text" validate:"required"`
}

type summarizeResponse struct {
	Summary  string        `json:"summary"`
	Tags     []string      `json:"tags"`
	Category string        `json:"category"`
	Entry    *domain.Entry `json:"entry"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.journal.Enrich(r.Context(), auth.FromContext(r.Context()).Owner(), journal.EnrichRequest{
		URL:   req.URL,
		Title: req.Title,
		Text:  req.Text,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{
		Summary:  res.Summary,
		Tags:     res.Tags,
		Category: res.Category,
		Entry:    res.Entry,
	})
}

type highlightRequest struct {
	URL   string `json:"url" validate:"required"`
	Text  string `json:"text" validate:"required"`
	Note  string `json:"note"`
	Title string `json:"title"`
}

type highlightResponse struct {
	Note      *string          `json:"note,omitempty"`
	Highlight domain.Highlight `json:"highlight"`
	Message   string           `json:"message"`
}

func (s *Server) handleSummarizeHighlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.journal.AnnotateHighlight(r.Context(), auth.FromContext(r.Context()).Owner(), journal.HighlightRequest{
		URL:   req.URL,
		Text:  req.Text,
		Title: req.Title,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, highlightResponse{
		Note:      &res.Note,
		Highlight: res.Highlight,
		Message:   "Highlight added to journal entry",
	})
}

func (s *Server) handleAddHighlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	h, err := s.journal.AddHighlight(r.Context(), auth.FromContext(r.Context()).Owner(), journal.HighlightRequest{
		URL:  req.URL,
		Text: req.Text,
		Note: req.Note,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, highlightResponse{Highlight: h, Message: "Highlight added to journal entry"})
}
