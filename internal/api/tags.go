package api

import (
	"net/http"

	"github.com/pbaille/autojournal/internal/auth"
	"github.com/pbaille/autojournal/internal/journal"
)

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tags, err := s.journal.Tags(r.Context(), auth.FromContext(r.Context()).Owner(), journal.TagQuery{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.journal.Categories(r.Context(), auth.FromContext(r.Context()).Owner())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

type tagsRequest struct {
	Tags []string `json:"tags" validate:"required"`
}

func (s *Server) handleUpdateTags(w http.ResponseWriter, r *http.Request) {
	u, err := urlParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req tagsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.journal.UpdateTags(r.Context(), auth.FromContext(r.Context()).Owner(), u, req.Tags)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Message: "Tags updated", Entry: entry})
}
