package domain

import (
	"strings"
	"time"
)

// DefaultOwner scopes entries and tags for callers that are not signed in.
const DefaultOwner = "default"

// Entry is the record of one visited URL for one owner.
type Entry struct {
	ID               string           `json:"id"`
	Owner            string           `json:"userId"`
	URL              string           `json:"url"`
	Title            string           `json:"title"`
	Domain           string           `json:"domain"`
	Favicon          string           `json:"favicon"`
	VisitTime        time.Time        `json:"visitTime"`
	Content          Content          `json:"content"`
	Screenshot       string           `json:"screenshot"`
	Tags             []string         `json:"tags"`
	Category         string           `json:"category"`
	Highlights       []Highlight      `json:"highlights"`
	IsPrivate        bool             `json:"isPrivate"`
	EnrichmentStatus EnrichmentStatus `json:"enrichmentStatus"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Content holds the captured text and its AI summary
type Content struct {
	Text    string `json:"text"`
	Summary string `json:"summary"`
}

// Highlight is a passage selected on the entry's page.
type Highlight struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// EnrichmentStatus tracks where an entry is in the AI enrichment lifecycle.
type EnrichmentStatus string

const (
	StatusUnenriched EnrichmentStatus = "unenriched"
	StatusEnriching  EnrichmentStatus = "enriching"
	StatusEnriched   EnrichmentStatus = "enriched"
	StatusFailed     EnrichmentStatus = "failed"
)

// Tag is a ledger row: how many entries of an owner currently carry the name.
type Tag struct {
	Owner     string    `json:"userId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeTag trims and lower-cases a tag name.
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeTags normalizes every name, dropping empties and duplicates
// while keeping first-seen order.
func NormalizeTags(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = NormalizeTag(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// DiffTags returns the names present only in prev (removed) and only in next (added).
func DiffTags(prev, next []string) (removed, added []string) {
	inPrev := make(map[string]bool, len(prev))
	for _, t := range prev {
		inPrev[t] = true
	}
	inNext := make(map[string]bool, len(next))
	for _, t := range next {
		inNext[t] = true
		if !inPrev[t] {
			added = append(added, t)
		}
	}
	for _, t := range prev {
		if !inNext[t] {
			removed = append(removed, t)
		}
	}
	return removed, added
}

// Visit is one page visit as handed to the entry store.
type Visit struct {
	URL        string
	Title      string
	Domain     string
	Text       string
	Favicon    string
	Screenshot string
}

// Enrichment is the AI-derived metadata applied to an entry.
type Enrichment struct {
	Summary  string
	Tags     []string
	Category string
	Status   EnrichmentStatus
}
