package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const groupColumns = `
	g.group_id, g.company_id, g.group_name, g.debut_date, g.fandom_name, g.image_path,
	c.company_name`

const groupFrom = `
	FROM groups g
	LEFT JOIN companies c ON c.company_id = g.company_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(sc scanner, g *Group) error {
	return sc.Scan(&g.ID, &g.CompanyID, &g.Name, &g.DebutDate, &g.FandomName, &g.ImagePath,
		&g.CompanyName)
}

func validateGroup(g *Group) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return invalid("group", NewViolation("group_name", "missing required value", nil))
	}
	return nil
}

// InsertGroup inserts g and sets g.ID. With orIgnore set an existing group
// of the same name is left alone and false is returned.
func (t *Tx) InsertGroup(g *Group, orIgnore bool) (bool, error) {
	id, ok, err := t.insert(TableGroups, `
		INSERT INTO groups (company_id, group_name, debut_date, fandom_name, image_path)
		VALUES (?, ?, ?, ?, ?)`, orIgnore,
		g.CompanyID, g.Name, g.DebutDate, g.FandomName, g.ImagePath)
	if err != nil || !ok {
		return false, err
	}
	g.ID = id
	return true, nil
}

// AddGroup inserts a group and sets g.ID. A set CompanyID must name an
// existing company.
func (s *Store) AddGroup(g *Group) error {
	if err := validateGroup(g); err != nil {
		return err
	}

	return s.Transaction(func(tx *Tx) error {
		if g.CompanyID.Valid {
			if err := tx.requireRow("group", TableCompanies, "company_id", g.CompanyID.Int64); err != nil {
				return err
			}
		}
		_, err := tx.InsertGroup(g, false)
		return err
	})
}

// UpdateGroup replaces every column of the group with id g.ID
func (s *Store) UpdateGroup(g *Group) error {
	if err := validateGroup(g); err != nil {
		return err
	}

	return s.Transaction(func(tx *Tx) error {
		if g.CompanyID.Valid {
			if err := tx.requireRow("group", TableCompanies, "company_id", g.CompanyID.Int64); err != nil {
				return err
			}
		}
		n, err := tx.exec(TableGroups, `
			UPDATE groups
			SET company_id = ?, group_name = ?, debut_date = ?, fandom_name = ?, image_path = ?
			WHERE group_id = ?`,
			g.CompanyID, g.Name, g.DebutDate, g.FandomName, g.ImagePath, g.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("group", "group_id", g.ID)
		}
		return nil
	})
}

// SetGroupImage records the relative path of the group's picture
func (s *Store) SetGroupImage(id int64, path string) error {
	return s.Transaction(func(tx *Tx) error {
		n, err := tx.exec(TableGroups, "UPDATE groups SET image_path = ? WHERE group_id = ?", Text(path), id)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("group", "group_id", id)
		}
		return nil
	})
}

// DeleteGroup removes a group. The database cascades the delete to its
// members, their nationality links, its releases and their songs.
func (s *Store) DeleteGroup(id int64) error {
	return s.Transaction(func(tx *Tx) error {
		n, err := tx.exec(TableGroups, "DELETE FROM groups WHERE group_id = ?", id)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("group", "group_id", id)
		}
		return nil
	})
}

// GetGroup returns the group with the given id, or nil if there is none
func (s *Store) GetGroup(id int64) (*Group, error) {
	g := &Group{}
	row := s.db.QueryRow("SELECT "+groupColumns+groupFrom+" WHERE g.group_id = ?", id)
	err := scanGroup(row, g)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// ListGroups returns all groups ordered by name
func (s *Store) ListGroups() ([]Group, error) {
	return s.SearchGroups(GroupFilter{})
}

// SearchGroups returns the groups matching every set field of f, ordered by name
func (s *Store) SearchGroups(f GroupFilter) ([]Group, error) {
	var where []string
	var args []any

	if name := strings.TrimSpace(f.Name); name != "" {
		where = append(where, containsClause("g.group_name"))
		args = append(args, Fold(name))
	}
	if f.Unaffiliated {
		where = append(where, "g.company_id IS NULL")
	} else if company := strings.TrimSpace(f.Company); company != "" {
		where = append(where, "c.company_name = ?")
		args = append(args, company)
	}

	query := "SELECT " + groupColumns + groupFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY g.group_name COLLATE NOCASE, g.group_name"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search groups: %w", err)
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var g Group
		if err := scanGroup(rows, &g); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

// GetGroupDetail returns the group with its company name and the number of
// members, releases and songs it has, or nil if there is no such group
func (s *Store) GetGroupDetail(id int64) (*GroupDetail, error) {
	d := &GroupDetail{}
	row := s.db.QueryRow(`
		SELECT `+groupColumns+`,
			(SELECT COUNT(*) FROM members m WHERE m.group_id = g.group_id),
			(SELECT COUNT(*) FROM releases r WHERE r.group_id = g.group_id),
			(SELECT COUNT(*) FROM songs s JOIN releases r ON r.release_id = s.release_id
			 WHERE r.group_id = g.group_id)
		`+groupFrom+`
		WHERE g.group_id = ?`, id)

	err := row.Scan(&d.ID, &d.CompanyID, &d.Name, &d.DebutDate, &d.FandomName, &d.ImagePath,
		&d.CompanyName, &d.MemberCount, &d.ReleaseCount, &d.SongCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group detail: %w", err)
	}
	return d, nil
}

// GroupDependents counts the rows that deleting the group would remove
func (s *Store) GroupDependents(id int64) (Dependents, error) {
	var d Dependents
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM members WHERE group_id = ?1),
			(SELECT COUNT(*) FROM releases WHERE group_id = ?1),
			(SELECT COUNT(*) FROM songs s JOIN releases r ON r.release_id = s.release_id
			 WHERE r.group_id = ?1),
			(SELECT COUNT(*) FROM member_nationalities mn JOIN members m ON m.member_id = mn.member_id
			 WHERE m.group_id = ?1)
	`, id).Scan(&d.Members, &d.Releases, &d.Songs, &d.Nationalities)
	if err != nil {
		return Dependents{}, fmt.Errorf("failed to count group dependents: %w", err)
	}
	return d, nil
}
