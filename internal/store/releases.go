package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const releaseColumns = `
	r.release_id, r.group_id, r.release_name, r.release_type, r.release_lang, r.release_date,
	g.group_name`

const releaseFrom = `
	FROM releases r
	JOIN groups g ON g.group_id = r.group_id`

func scanRelease(sc scanner, r *Release) error {
	return sc.Scan(&r.ID, &r.GroupID, &r.Name, &r.Type, &r.Language, &r.Date, &r.GroupName)
}

func validateRelease(r *Release) error {
	var violations []Violation
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		violations = append(violations, NewViolation("release_name", "missing required value", nil))
	}
	if r.GroupID == 0 {
		violations = append(violations, NewViolation("group_id", "missing required value", nil))
	}
	if !r.Type.Valid() {
		violations = append(violations, NewViolation("release_type",
			"must be one of "+strings.Join(ReleaseTypeNames(), ", "), []string{string(r.Type)}))
	}
	if !r.Language.Valid() {
		violations = append(violations, NewViolation("release_lang",
			"must be one of "+strings.Join(LanguageNames(), ", "), []string{string(r.Language)}))
	}
	if len(violations) > 0 {
		return invalid("release", violations...)
	}
	return nil
}

// InsertRelease inserts r and sets r.ID. With orIgnore set an existing
// release with the same group, name, type and language is left alone and
// false is returned.
func (t *Tx) InsertRelease(r *Release, orIgnore bool) (bool, error) {
	id, ok, err := t.insert(TableReleases, `
		INSERT INTO releases (group_id, release_name, release_type, release_lang, release_date)
		VALUES (?, ?, ?, ?, ?)`, orIgnore,
		r.GroupID, r.Name, string(r.Type), string(r.Language), r.Date)
	if err != nil || !ok {
		return false, err
	}
	r.ID = id
	return true, nil
}

// AddRelease inserts a release and sets r.ID
func (s *Store) AddRelease(r *Release) error {
	if err := validateRelease(r); err != nil {
		return err
	}

	return s.Transaction(func(tx *Tx) error {
		if err := tx.requireRow("release", TableGroups, "group_id", r.GroupID); err != nil {
			return err
		}
		_, err := tx.InsertRelease(r, false)
		return err
	})
}

// UpdateRelease replaces every column of the release with id r.ID
func (s *Store) UpdateRelease(r *Release) error {
	if err := validateRelease(r); err != nil {
		return err
	}

	return s.Transaction(func(tx *Tx) error {
		if err := tx.requireRow("release", TableGroups, "group_id", r.GroupID); err != nil {
			return err
		}
		n, err := tx.exec(TableReleases, `
			UPDATE releases
			SET group_id = ?, release_name = ?, release_type = ?, release_lang = ?, release_date = ?
			WHERE release_id = ?`,
			r.GroupID, r.Name, string(r.Type), string(r.Language), r.Date, r.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("release", "release_id", r.ID)
		}
		return nil
	})
}

// DeleteRelease removes a release; its songs go with it by cascade
func (s *Store) DeleteRelease(id int64) error {
	return s.Transaction(func(tx *Tx) error {
		n, err := tx.exec(TableReleases, "DELETE FROM releases WHERE release_id = ?", id)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("release", "release_id", id)
		}
		return nil
	})
}

// DeleteReleasesByGroup removes every release of a group and returns how many there were
func (s *Store) DeleteReleasesByGroup(groupID int64) (int64, error) {
	var n int64
	err := s.Transaction(func(tx *Tx) error {
		var err error
		n, err = tx.exec(TableReleases, "DELETE FROM releases WHERE group_id = ?", groupID)
		return err
	})
	return n, err
}

// GetRelease returns the release with the given id, or nil if there is none
func (s *Store) GetRelease(id int64) (*Release, error) {
	r := &Release{}
	err := scanRelease(s.db.QueryRow("SELECT "+releaseColumns+releaseFrom+" WHERE r.release_id = ?", id), r)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get release: %w", err)
	}
	return r, nil
}

// ListReleasesForGroup returns a group's releases, oldest first; undated
// releases sort last
func (s *Store) ListReleasesForGroup(groupID int64) ([]Release, error) {
	rows, err := s.db.Query("SELECT "+releaseColumns+releaseFrom+`
		WHERE r.group_id = ?
		ORDER BY r.release_date IS NULL, r.release_date, r.release_name`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	defer rows.Close()

	releases := []Release{}
	for rows.Next() {
		var r Release
		if err := scanRelease(rows, &r); err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		releases = append(releases, r)
	}

	return releases, rows.Err()
}
