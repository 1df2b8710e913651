package api

import (
	"net/http"

	"github.com/pbaille/autojournal/internal/auth"
	"github.com/pbaille/autojournal/internal/journal"
)

func (s *Server) searchParams(r *http.Request) (journal.SearchParams, error) {
	q := r.URL.Query()
	p := journal.SearchParams{
		Query:     q.Get("q"),
		Tags:      q.Get("tags"),
		Category:  q.Get("category"),
		Domain:    q.Get("domain"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Sort:      q.Get("sort"),
		Order:     q.Get("order"),
	}
	var err error
	if p.Limit, err = queryInt(r, "limit"); err != nil {
		return p, err
	}
	if p.Skip, err = queryInt(r, "skip"); err != nil {
		return p, err
	}
	return p, nil
}

// handleListJournal pages through every entry; only paging and sort
// parameters apply.
func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	p, err := s.searchParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p = journal.SearchParams{Sort: p.Sort, Order: p.Order, Limit: p.Limit, Skip: p.Skip}
	s.search(w, r, p)
}

func (s *Server) handleSearchJournal(w http.ResponseWriter, r *http.Request) {
	p, err := s.searchParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.search(w, r, p)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, p journal.SearchParams) {
	filter, err := journal.ParseFilter(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.journal.Search(r.Context(), auth.FromContext(r.Context()).Owner(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	u, err := urlParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.journal.Get(r.Context(), auth.FromContext(r.Context()).Owner(), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	u, err := urlParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.journal.Delete(r.Context(), auth.FromContext(r.Context()).Owner(), u); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Journal entry deleted"})
}
