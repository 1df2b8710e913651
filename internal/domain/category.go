package domain

import "strings"

// CategoryOther is used whenever content cannot be classified.
const CategoryOther = "Other"

// Categories is the closed vocabulary an entry's category is drawn from.
var Categories = []string{
	"Technology",
	"Business",
	"Health",
	"Science",
	"Education",
	"Entertainment",
	"Sports",
	"Politics",
	"Travel",
	CategoryOther,
}

// NormalizeCategory maps free text onto the vocabulary, case-insensitively.
// Anything unrecognised becomes CategoryOther.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".\"'*` \n")
	for _, c := range Categories {
		if strings.EqualFold(s, c) {
			return c
		}
	}
	return CategoryOther
}
