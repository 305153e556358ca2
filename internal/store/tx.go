package store

import (
	"database/sql"
	"fmt"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Tx is an open write transaction. It is only valid inside the function
// passed to Store.Transaction.
type Tx struct {
	tx *sql.Tx
}

// Wipe deletes every catalog row, children first, and resets the
// AUTOINCREMENT counters so the next insert gets id 1 again.
func (t *Tx) Wipe() error {
	for _, table := range wipeOrder {
		if _, err := t.tx.Exec("DELETE FROM " + table); err != nil {
			return classify(fmt.Errorf("failed to clear %s: %w", table, err), table)
		}
	}

	_, err := t.tx.Exec(`
		DELETE FROM sqlite_sequence
		WHERE name IN ('companies', 'groups', 'members', 'releases', 'songs')
	`)
	if err != nil {
		return fmt.Errorf("failed to reset identity counters: %w", err)
	}

	return nil
}

// TableCounts returns the row count of every catalog table as seen by the transaction
func (t *Tx) TableCounts() (Counts, error) {
	return tableCounts(t.tx)
}

// CompanyIDs maps company name to id
func (t *Tx) CompanyIDs() (map[string]int64, error) {
	return nameIDs(t.tx, "SELECT company_name, company_id FROM companies")
}

// GroupIDs maps group name to id
func (t *Tx) GroupIDs() (map[string]int64, error) {
	return nameIDs(t.tx, "SELECT group_name, group_id FROM groups")
}

// MemberIDs maps (group name, stage name) to member id
func (t *Tx) MemberIDs() (map[MemberKey]int64, error) {
	rows, err := t.tx.Query(`
		SELECT g.group_name, m.stage_name, m.member_id
		FROM members m
		JOIN groups g ON g.group_id = m.group_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load member keys: %w", err)
	}
	defer rows.Close()

	ids := make(map[MemberKey]int64)
	for rows.Next() {
		var k MemberKey
		var id int64
		if err := rows.Scan(&k.Group, &k.StageName, &id); err != nil {
			return nil, fmt.Errorf("failed to scan member key: %w", err)
		}
		ids[k] = id
	}
	return ids, rows.Err()
}

// NationalityCodes returns the set of known nationality codes
func (t *Tx) NationalityCodes() (map[string]struct{}, error) {
	rows, err := t.tx.Query("SELECT nationality_code FROM nationalities")
	if err != nil {
		return nil, fmt.Errorf("failed to load nationality codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan nationality code: %w", err)
		}
		codes[code] = struct{}{}
	}
	return codes, rows.Err()
}

// ReleaseIDs maps (group name, release name, type, language) to release id
func (t *Tx) ReleaseIDs() (map[ReleaseKey]int64, error) {
	rows, err := t.tx.Query(`
		SELECT g.group_name, r.release_name, r.release_type, r.release_lang, r.release_id
		FROM releases r
		JOIN groups g ON g.group_id = r.group_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load release keys: %w", err)
	}
	defer rows.Close()

	ids := make(map[ReleaseKey]int64)
	for rows.Next() {
		var k ReleaseKey
		var id int64
		if err := rows.Scan(&k.Group, &k.Name, &k.Type, &k.Language, &id); err != nil {
			return nil, fmt.Errorf("failed to scan release key: %w", err)
		}
		ids[k] = id
	}
	return ids, rows.Err()
}

func nameIDs(q queryer, query string) (map[string]int64, error) {
	rows, err := q.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to load name index: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("failed to scan name index: %w", err)
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

// insert runs an INSERT and reports whether a row was written. With
// orIgnore set a conflict on a uniqueness key is skipped; every other
// constraint failure is still returned as an *IntegrityError.
func (t *Tx) insert(table, query string, orIgnore bool, args ...any) (int64, bool, error) {
	if orIgnore {
		query += " ON CONFLICT DO NOTHING"
	}

	result, err := t.tx.Exec(query, args...)
	if err != nil {
		return 0, false, classify(fmt.Errorf("failed to insert into %s: %w", table, err), table)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, true, nil
}

// exec runs an UPDATE or DELETE and returns the number of rows it touched
func (t *Tx) exec(table, query string, args ...any) (int64, error) {
	result, err := t.tx.Exec(query, args...)
	if err != nil {
		return 0, classify(fmt.Errorf("failed to write %s: %w", table, err), table)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// requireRow returns a not-found validation error when no row of table has
// the given id
func (t *Tx) requireRow(entity, table, column string, id int64) error {
	var one int
	err := t.tx.QueryRow("SELECT 1 FROM "+table+" WHERE "+column+" = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return notFound(entity, column, id)
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", table, id, err)
	}
	return nil
}
