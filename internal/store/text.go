package store

import (
	"database/sql"
	"strings"
)

// Text trims s and maps the empty string to the absent value
func Text(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// NullID maps a non-positive id to the absent value
func NullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}
