package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franz/kdex/internal/lookup"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
)

// rowWrite is one insert or update about to be applied
type rowWrite struct {
	table  string
	action string // add or update
	label  string // what the user sees, e.g. group "TWICE"
	id     func() int64
	run    func() error
}

// applyWrite runs w, records it in the event log and drops the lookup
// lists the write may have changed
func applyWrite(cache *lookup.Cache, w *rowWrite) error {
	logger := openEventLog()
	defer logger.Close()

	err := w.run()
	cache.Invalidate()

	id := w.id()
	logger.LogWrite(w.table, w.action, id, err)

	stats := cache.Stats()
	util.DebugLog("Lookup cache: %d hits, %d misses", stats.Hits, stats.Misses)

	if err != nil {
		return explainWriteError(w, err)
	}

	verb := "Added"
	if w.action == "update" {
		verb = "Updated"
	}
	if id > 0 {
		util.SuccessLog("%s %s (#%d)", verb, w.label, id)
	} else {
		util.SuccessLog("%s %s", verb, w.label)
	}
	return nil
}

// explainWriteError names the row in the error and turns constraint
// failures into a cause a user can act on
func explainWriteError(w *rowWrite, err error) error {
	var ie *store.IntegrityError
	if errors.As(err, &ie) {
		switch ie.Kind {
		case store.KindUnique:
			return fmt.Errorf("cannot %s %s, it already exists: %w", w.action, w.label, err)
		case store.KindForeignKey:
			return fmt.Errorf("cannot %s %s, a referenced row is missing: %w", w.action, w.label, err)
		}
	}
	return fmt.Errorf("cannot %s %s: %w", w.action, w.label, err)
}

// asInvalid reports a reference to a missing row as a validation failure;
// writes naming an unknown parent are rejected before touching the database
func asInvalid(err error) error {
	if err != nil && errors.Is(err, util.ErrNotFound) && !errors.Is(err, util.ErrValidation) {
		return fmt.Errorf("%w: %w", util.ErrValidation, err)
	}
	return err
}

// dateValue checks a YYYY-MM-DD flag value; empty means absent
func dateValue(flag, s string) (sql.NullString, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}, nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return sql.NullString{}, fmt.Errorf("%w: --%s %q is not a YYYY-MM-DD date", util.ErrValidation, flag, s)
	}
	return store.Text(s), nil
}

// releaseEnums parses --type and --lang, ignoring case
func releaseEnums(typ, lang string) (store.ReleaseType, store.Language, error) {
	t, ok := store.ParseReleaseType(typ)
	if !ok {
		return "", "", fmt.Errorf("%w: --type %q must be one of %s",
			util.ErrValidation, typ, strings.Join(store.ReleaseTypeNames(), ", "))
	}
	l, ok := store.ParseLanguage(lang)
	if !ok {
		return "", "", fmt.Errorf("%w: --lang %q must be one of %s",
			util.ErrValidation, lang, strings.Join(store.LanguageNames(), ", "))
	}
	return t, l, nil
}

// nationalityCodes checks every code against the nationalities table
func nationalityCodes(cache *lookup.Cache, codes []string) ([]string, error) {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if strings.TrimSpace(c) == "" {
			continue
		}
		code, err := cache.NationalityCode(c)
		if err != nil {
			return nil, asInvalid(err)
		}
		out = append(out, code)
	}
	return out, nil
}

// companyRef resolves an optional company reference; empty means none
func companyRef(cache *lookup.Cache, ref string) (sql.NullInt64, error) {
	if strings.TrimSpace(ref) == "" {
		return sql.NullInt64{}, nil
	}
	id, err := cache.CompanyID(ref)
	if err != nil {
		return sql.NullInt64{}, asInvalid(err)
	}
	return store.NullID(id), nil
}
