package store

import (
	"fmt"
	"strings"
)

// InsertNationality inserts n. With orIgnore set an existing code is left
// alone and false is returned.
func (t *Tx) InsertNationality(n *Nationality, orIgnore bool) (bool, error) {
	_, ok, err := t.insert(TableNationalities, `
		INSERT INTO nationalities (nationality_code, nationality_name)
		VALUES (?, ?)`, orIgnore,
		n.Code, n.Name)
	return ok, err
}

// AddNationality inserts a nationality code
func (s *Store) AddNationality(n *Nationality) error {
	n.Code = strings.TrimSpace(n.Code)
	if n.Code == "" {
		return invalid("nationality", NewViolation("nationality_code", "missing required value", nil))
	}

	return s.Transaction(func(tx *Tx) error {
		_, err := tx.InsertNationality(n, false)
		return err
	})
}

// DeleteNationality removes a code and, by cascade, every member link to it
func (s *Store) DeleteNationality(code string) error {
	return s.Transaction(func(tx *Tx) error {
		n, err := tx.exec(TableNationalities, "DELETE FROM nationalities WHERE nationality_code = ?", code)
		if err != nil {
			return err
		}
		if n == 0 {
			return invalid("nationality", NotFoundViolation("nationality_code", "no such row", []string{code}))
		}
		return nil
	})
}

// ListNationalities returns all nationalities ordered by code
func (s *Store) ListNationalities() ([]Nationality, error) {
	rows, err := s.db.Query(`
		SELECT nationality_code, nationality_name
		FROM nationalities
		ORDER BY nationality_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list nationalities: %w", err)
	}
	defer rows.Close()

	nationalities := []Nationality{}
	for rows.Next() {
		var n Nationality
		if err := rows.Scan(&n.Code, &n.Name); err != nil {
			return nil, fmt.Errorf("failed to scan nationality: %w", err)
		}
		nationalities = append(nationalities, n)
	}

	return nationalities, rows.Err()
}
