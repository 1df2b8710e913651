package domain

import "time"

// Sort fields accepted by listings.
const (
	SortVisitTime = "visitTime"
	SortTitle     = "title"
	SortDomain    = "domain"
	SortCreatedAt = "createdAt"
)

// Filter selects entries for listing and search. Zero values mean "no constraint".
// All set constraints must hold; Tags matches entries carrying any of the names.
type Filter struct {
	Query    string
	Tags     []string
	Category string
	Domain   string
	Start    *time.Time
	End      *time.Time

	Sort  string
	Desc  bool
	Limit int
	Skip  int
}

// Page is one window of a filtered listing. Total counts the whole filtered set.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Skip    int     `json:"skip"`
}

// Stats aggregates an owner's journal.
type Stats struct {
	TotalEntries  int          `json:"totalEntries"`
	DomainStats   []CountByKey `json:"domainStats"`
	CategoryStats []CountByKey `json:"categoryStats"`
	DayStats      []CountByKey `json:"dayStats"`
}

// CountByKey is one aggregation bucket.
type CountByKey struct {
	Key   string `json:"_id"`
	Count int    `json:"count"`
}
