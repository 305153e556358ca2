package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

const memberColumns = `
	m.member_id, m.group_id, m.stage_name, m.real_name, m.birth_date, m.image_path,
	g.group_name,
	(SELECT GROUP_CONCAT(nationality_code, ',') FROM (
		SELECT nationality_code FROM member_nationalities
		WHERE member_id = m.member_id ORDER BY nationality_code))`

const memberFrom = `
	FROM members m
	JOIN groups g ON g.group_id = m.group_id`

func scanMember(sc scanner, m *Member, extra ...any) error {
	var codes sql.NullString
	dest := []any{&m.ID, &m.GroupID, &m.StageName, &m.RealName, &m.BirthDate, &m.ImagePath,
		&m.GroupName, &codes}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	m.Nationalities = []string{}
	if codes.Valid && codes.String != "" {
		m.Nationalities = strings.Split(codes.String, ",")
		sort.Strings(m.Nationalities)
	}
	return nil
}

func validateMember(m *Member) error {
	var violations []Violation
	m.StageName = strings.TrimSpace(m.StageName)
	if m.StageName == "" {
		violations = append(violations, NewViolation("stage_name", "missing required value", nil))
	}
	if m.GroupID == 0 {
		violations = append(violations, NewViolation("group_id", "missing required value", nil))
	}
	if len(violations) > 0 {
		return invalid("member", violations...)
	}
	return nil
}

// normalizeCodes trims, drops empty and duplicate codes, and sorts the rest
func normalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// InsertMember inserts m and sets m.ID. Nationalities are not written;
// use LinkNationality. With orIgnore set an existing member with the same
// stage name in the same group is left alone and false is returned.
func (t *Tx) InsertMember(m *Member, orIgnore bool) (bool, error) {
	id, ok, err := t.insert(TableMembers, `
		INSERT INTO members (group_id, stage_name, real_name, birth_date, image_path)
		VALUES (?, ?, ?, ?, ?)`, orIgnore,
		m.GroupID, m.StageName, m.RealName, m.BirthDate, m.ImagePath)
	if err != nil || !ok {
		return false, err
	}
	m.ID = id
	return true, nil
}

// LinkNationality records that a member holds a nationality
func (t *Tx) LinkNationality(memberID int64, code string, orIgnore bool) (bool, error) {
	_, ok, err := t.insert(TableMemberNationalities, `
		INSERT INTO member_nationalities (member_id, nationality_code)
		VALUES (?, ?)`, orIgnore,
		memberID, code)
	return ok, err
}

// replaceNationalities makes codes the member's complete nationality set
func (t *Tx) replaceNationalities(memberID int64, codes []string) error {
	if len(codes) > 0 {
		known, err := t.NationalityCodes()
		if err != nil {
			return err
		}
		var missing []string
		for _, c := range codes {
			if _, ok := known[c]; !ok {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			return invalid("member", NotFoundViolation("nationality_code", "unknown nationality", missing))
		}
	}

	if _, err := t.exec(TableMemberNationalities,
		"DELETE FROM member_nationalities WHERE member_id = ?", memberID); err != nil {
		return err
	}
	for _, c := range codes {
		if _, err := t.LinkNationality(memberID, c, false); err != nil {
			return err
		}
	}
	return nil
}

// AddMember inserts a member together with its nationality codes and sets m.ID
func (s *Store) AddMember(m *Member) error {
	if err := validateMember(m); err != nil {
		return err
	}
	m.Nationalities = normalizeCodes(m.Nationalities)

	return s.Transaction(func(tx *Tx) error {
		if err := tx.requireRow("member", TableGroups, "group_id", m.GroupID); err != nil {
			return err
		}
		if _, err := tx.InsertMember(m, false); err != nil {
			return err
		}
		return tx.replaceNationalities(m.ID, m.Nationalities)
	})
}

// UpdateMember replaces every column of the member with id m.ID, including
// its nationality set
func (s *Store) UpdateMember(m *Member) error {
	if err := validateMember(m); err != nil {
		return err
	}
	m.Nationalities = normalizeCodes(m.Nationalities)

	return s.Transaction(func(tx *Tx) error {
		if err := tx.requireRow("member", TableGroups, "group_id", m.GroupID); err != nil {
			return err
		}
		n, err := tx.exec(TableMembers, `
			UPDATE members
			SET group_id = ?, stage_name = ?, real_name = ?, birth_date = ?, image_path = ?
			WHERE member_id = ?`,
			m.GroupID, m.StageName, m.RealName, m.BirthDate, m.ImagePath, m.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("member", "member_id", m.ID)
		}
		return tx.replaceNationalities(m.ID, m.Nationalities)
	})
}

// SetMemberNationalities replaces the member's nationality set
func (s *Store) SetMemberNationalities(memberID int64, codes []string) error {
	codes = normalizeCodes(codes)
	return s.Transaction(func(tx *Tx) error {
		if err := tx.requireRow("member", TableMembers, "member_id", memberID); err != nil {
			return err
		}
		return tx.replaceNationalities(memberID, codes)
	})
}

// SetMemberImage records the relative path of the member's picture
func (s *Store) SetMemberImage(id int64, path string) error {
	return s.Transaction(func(tx *Tx) error {
		n, err := tx.exec(TableMembers, "UPDATE members SET image_path = ? WHERE member_id = ?", Text(path), id)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("member", "member_id", id)
		}
		return nil
	})
}

// DeleteMember removes a member and, by cascade, its nationality links
func (s *Store) DeleteMember(id int64) error {
	return s.Transaction(func(tx *Tx) error {
		n, err := tx.exec(TableMembers, "DELETE FROM members WHERE member_id = ?", id)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("member", "member_id", id)
		}
		return nil
	})
}

// DeleteMembersByGroup removes every member of a group and returns how many there were
func (s *Store) DeleteMembersByGroup(groupID int64) (int64, error) {
	var n int64
	err := s.Transaction(func(tx *Tx) error {
		var err error
		n, err = tx.exec(TableMembers, "DELETE FROM members WHERE group_id = ?", groupID)
		return err
	})
	return n, err
}

// GetMember returns the member with the given id, or nil if there is none
func (s *Store) GetMember(id int64) (*Member, error) {
	m := &Member{}
	err := scanMember(s.db.QueryRow("SELECT "+memberColumns+memberFrom+" WHERE m.member_id = ?", id), m)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// GetMemberDetail returns the member with its group and company names, or
// nil if there is no such member
func (s *Store) GetMemberDetail(id int64) (*MemberDetail, error) {
	d := &MemberDetail{}
	row := s.db.QueryRow(`
		SELECT `+memberColumns+`, c.company_name
		`+memberFrom+`
		LEFT JOIN companies c ON c.company_id = g.company_id
		WHERE m.member_id = ?`, id)

	err := scanMember(row, &d.Member, &d.CompanyName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member detail: %w", err)
	}
	return d, nil
}

// ListMembersForGroup returns the members of a group ordered by stage name
func (s *Store) ListMembersForGroup(groupID int64) ([]Member, error) {
	return s.queryMembers(" WHERE m.group_id = ? ORDER BY m.stage_name COLLATE NOCASE, m.stage_name", groupID)
}

// SearchMembers returns the members matching every set field of f,
// ordered by group then stage name
func (s *Store) SearchMembers(f MemberFilter) ([]Member, error) {
	var where []string
	var args []any

	if stage := strings.TrimSpace(f.StageName); stage != "" {
		where = append(where, containsClause("m.stage_name"))
		args = append(args, Fold(stage))
	}
	if group := strings.TrimSpace(f.Group); group != "" {
		where = append(where, "g.group_name = ?")
		args = append(args, group)
	}
	if code := strings.TrimSpace(f.Nationality); code != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM member_nationalities mn
			WHERE mn.member_id = m.member_id AND mn.nationality_code = ?)`)
		args = append(args, code)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	return s.queryMembers(clause+" ORDER BY g.group_name COLLATE NOCASE, m.stage_name COLLATE NOCASE", args...)
}

func (s *Store) queryMembers(clause string, args ...any) ([]Member, error) {
	rows, err := s.db.Query("SELECT "+memberColumns+memberFrom+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := scanMember(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
