package store

import "fmt"

// TableCount is the number of rows in one catalog table
type TableCount struct {
	Table string
	Rows  int
}

// Counts holds one entry per catalog table, parents first
type Counts []TableCount

// Get returns the row count for table, or 0 when it is not listed
func (c Counts) Get(table string) int {
	for _, tc := range c {
		if tc.Table == table {
			return tc.Rows
		}
	}
	return 0
}

// Total sums the rows of all tables
func (c Counts) Total() int {
	total := 0
	for _, tc := range c {
		total += tc.Rows
	}
	return total
}

// TableCounts returns the row count of every catalog table
func (s *Store) TableCounts() (Counts, error) {
	return tableCounts(s.db)
}

func tableCounts(q queryer) (Counts, error) {
	counts := make(Counts, 0, len(ImportOrder))
	for _, table := range ImportOrder {
		var n int
		if err := q.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}
