package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// InsertCompany inserts c and sets c.ID. With orIgnore set an existing
// company of the same name is left alone and false is returned.
func (t *Tx) InsertCompany(c *Company, orIgnore bool) (bool, error) {
	id, ok, err := t.insert(TableCompanies, `
		INSERT INTO companies (company_name, founder, founded_date)
		VALUES (?, ?, ?)`, orIgnore,
		c.Name, c.Founder, c.FoundedDate)
	if err != nil || !ok {
		return false, err
	}
	c.ID = id
	return true, nil
}

// AddCompany inserts a company and sets c.ID
func (s *Store) AddCompany(c *Company) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("company", NewViolation("company_name", "missing required value", nil))
	}

	return s.Transaction(func(tx *Tx) error {
		_, err := tx.InsertCompany(c, false)
		return err
	})
}

// UpdateCompany replaces every column of the company with id c.ID
func (s *Store) UpdateCompany(c *Company) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("company", NewViolation("company_name", "missing required value", nil))
	}

	return s.Transaction(func(tx *Tx) error {
		n, err := tx.exec(TableCompanies, `
			UPDATE companies SET company_name = ?, founder = ?, founded_date = ?
			WHERE company_id = ?`,
			c.Name, c.Founder, c.FoundedDate, c.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("company", "company_id", c.ID)
		}
		return nil
	})
}

// DeleteCompany removes a company. Its groups stay, with the company cleared.
func (s *Store) DeleteCompany(id int64) error {
	return s.Transaction(func(tx *Tx) error {
		n, err := tx.exec(TableCompanies, "DELETE FROM companies WHERE company_id = ?", id)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("company", "company_id", id)
		}
		return nil
	})
}

// GetCompany returns the company with the given id, or nil if there is none
func (s *Store) GetCompany(id int64) (*Company, error) {
	c := &Company{}
	err := s.db.QueryRow(`
		SELECT company_id, company_name, founder, founded_date
		FROM companies WHERE company_id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Founder, &c.FoundedDate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListCompanies returns all companies ordered by name
func (s *Store) ListCompanies() ([]Company, error) {
	rows, err := s.db.Query(`
		SELECT company_id, company_name, founder, founded_date
		FROM companies
		ORDER BY company_name COLLATE NOCASE, company_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := []Company{}
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Founder, &c.FoundedDate); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	return companies, rows.Err()
}
