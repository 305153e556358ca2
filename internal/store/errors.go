package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/franz/kdex/internal/util"
)

// IntegrityKind names the database constraint a write tripped over
type IntegrityKind string

const (
	KindUnique     IntegrityKind = "unique"
	KindForeignKey IntegrityKind = "foreign_key"
	KindCheck      IntegrityKind = "check"
	KindNotNull    IntegrityKind = "not_null"
	KindConstraint IntegrityKind = "constraint"
)

// IntegrityError is returned when SQLite rejects a write because of a
// uniqueness, foreign-key, check or not-null constraint. The transaction
// that produced it has been rolled back.
type IntegrityError struct {
	Kind   IntegrityKind
	Table  string
	Detail string
	Err    error
}

func (e *IntegrityError) Error() string {
	var what string
	switch e.Kind {
	case KindUnique:
		what = "duplicate value"
	case KindForeignKey:
		what = "reference to a missing parent row"
	case KindCheck:
		what = "value outside the allowed set"
	case KindNotNull:
		what = "missing required value"
	default:
		what = "constraint violation"
	}

	msg := what
	if e.Table != "" {
		msg = fmt.Sprintf("%s in %s", what, e.Table)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	return msg
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Is lets callers test with errors.Is(err, util.ErrIntegrity)
func (e *IntegrityError) Is(target error) bool { return target == util.ErrIntegrity }

// classify turns a driver error into an *IntegrityError when it is a
// constraint failure and returns every other error unchanged.
func classify(err error, table string) error {
	if err == nil {
		return nil
	}

	var ie *IntegrityError
	if errors.As(err, &ie) {
		return err
	}

	kind, detail, ok := constraintKind(err)
	if !ok {
		return err
	}

	if table == "" {
		table = tableFromDetail(detail)
	}

	return &IntegrityError{Kind: kind, Table: table, Detail: detail, Err: err}
}

func constraintKind(err error) (IntegrityKind, string, bool) {
	msg := err.Error()
	detail := msg
	if i := strings.Index(msg, "constraint failed: "); i >= 0 {
		detail = msg[i+len("constraint failed: "):]
		if j := strings.Index(detail, " ("); j >= 0 {
			detail = detail[:j]
		}
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return KindUnique, detail, true
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return KindForeignKey, detail, true
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return KindCheck, detail, true
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return KindNotNull, detail, true
		}
		if code&0xff == sqlite3.SQLITE_CONSTRAINT {
			return kindFromMessage(msg), detail, true
		}
		return "", "", false
	}

	// Wrapped errors that lost the driver type still carry SQLite's text
	if strings.Contains(msg, "constraint failed") {
		return kindFromMessage(msg), detail, true
	}
	return "", "", false
}

func kindFromMessage(msg string) IntegrityKind {
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return KindUnique
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return KindForeignKey
	case strings.Contains(msg, "CHECK constraint failed"):
		return KindCheck
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return KindNotNull
	default:
		return KindConstraint
	}
}

// tableFromDetail extracts "members" from "members.group_id, members.stage_name"
func tableFromDetail(detail string) string {
	if i := strings.Index(detail, "."); i > 0 {
		return strings.TrimSpace(detail[:i])
	}
	return ""
}

// previewLimit caps how many offending values a violation lists
const previewLimit = 10

// Violation is one class of rejected input found before any write
type Violation struct {
	Field    string   // column or key the rule applies to
	Reason   string   // e.g. "missing required value", "unknown group"
	Values   []string // distinct offending values, sorted, at most previewLimit
	Total    int      // number of distinct offending values
	NotFound bool     // set when the values name rows that do not exist
}

// NewViolation builds a violation from the raw offending values. Duplicates
// are removed and the preview is sorted so messages are deterministic.
func NewViolation(field, reason string, values []string) Violation {
	seen := make(map[string]struct{}, len(values))
	distinct := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)

	preview := distinct
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}

	return Violation{
		Field:  field,
		Reason: reason,
		Values: preview,
		Total:  len(distinct),
	}
}

// NotFoundViolation builds a violation for references to rows that do not exist
func NotFoundViolation(field, reason string, values []string) Violation {
	v := NewViolation(field, reason, values)
	v.NotFound = true
	return v
}

func (v Violation) String() string {
	if v.Total == 0 {
		return fmt.Sprintf("%s: %s", v.Field, v.Reason)
	}

	quoted := make([]string, len(v.Values))
	for i, val := range v.Values {
		quoted[i] = fmt.Sprintf("%q", val)
	}
	list := strings.Join(quoted, ", ")
	if v.Total > len(v.Values) {
		list = fmt.Sprintf("%s, ... (%d distinct)", list, v.Total)
	}
	return fmt.Sprintf("%s: %s: %s", v.Field, v.Reason, list)
}

// ValidationError is returned when input is rejected before any write.
// It carries every violation found, not only the first.
type ValidationError struct {
	Entity     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// Is matches util.ErrValidation, and util.ErrNotFound when any violation
// refers to a missing row.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case util.ErrValidation:
		return true
	case util.ErrNotFound:
		for _, v := range e.Violations {
			if v.NotFound {
				return true
			}
		}
	}
	return false
}

func invalid(entity string, violations ...Violation) error {
	return &ValidationError{Entity: entity, Violations: violations}
}

func notFound(entity, field string, id int64) error {
	return invalid(entity, NotFoundViolation(field, "no such row", []string{fmt.Sprint(id)}))
}
