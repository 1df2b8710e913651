package store

import (
	"strconv"
	"strings"
)

// dialect captures the few spots where SQLite and PostgreSQL disagree.
// Queries are written once with '?' placeholders.
type dialect struct {
	name      string
	numbered  bool
	greatest  string
	forUpdate string
	dayFormat string
}

var sqliteDialect = dialect{
	name:     "sqlite",
	greatest: "MAX",
	// timestamps are stored as UTC text, the date is the leading ten bytes
	dayFormat: "substr(%s, 1, 10)",
}

var postgresDialect = dialect{
	name:      "postgres",
	numbered:  true,
	greatest:  "GREATEST",
	forUpdate: " FOR UPDATE",
	dayFormat: "to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD')",
}

// rebind rewrites '?' placeholders to $1, $2, ... for numbered dialects.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 16)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			sb.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// placeholders returns "?, ?, ?" with n marks.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
