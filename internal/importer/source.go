package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/franz/kdex/internal/store"
)

// RequiredColumns lists, per table, the columns its source file must have
var RequiredColumns = map[string][]string{
	store.TableCompanies:           {"company_name"},
	store.TableGroups:              {"group_name"},
	store.TableMembers:             {"group_name", "stage_name"},
	store.TableNationalities:       {"nationality_code"},
	store.TableMemberNationalities: {"group_name", "stage_name", "nationality_code"},
	store.TableReleases:            {"group_name", "release_name", "release_type", "release_lang"},
	store.TableSongs:               {"group_name", "release_name", "release_type", "release_lang", "title"},
}

// FileName returns the conventional source file name for a table
func FileName(table string) string {
	return table + ".csv"
}

// Row is one data line of a source file. Values are NFC-normalized and
// trimmed; a missing column reads as the empty string.
type Row struct {
	Line   int
	values map[string]string
}

// Get returns the value of column, or "" when it is absent or blank
func (r Row) Get(column string) string {
	return r.values[column]
}

// Source is the parsed content of one entity file
type Source struct {
	Table   string
	Path    string
	Columns []string
	Rows    []Row
}

// Sources holds one parsed file per table
type Sources map[string]*Source

// ReadSource parses CSV data for table from r. name is used in messages.
// It fails when a required column is missing, before any row is returned.
func ReadSource(table, name string, r io.Reader) (*Source, error) {
	required, ok := RequiredColumns[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &store.ValidationError{
			Entity:     table,
			Violations: []store.Violation{store.NewViolation("header", "file is empty", []string{name})},
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}

	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		columns[i] = h
		present[h] = true
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &store.ValidationError{
			Entity:     table,
			Violations: []store.Violation{store.NewViolation(name, "missing required column", missing)},
		}
	}

	src := &Source{Table: table, Path: name, Columns: columns}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		line, _ := reader.FieldPos(0)
		values := make(map[string]string, len(columns))
		blank := true
		for i, col := range columns {
			if i >= len(record) {
				break
			}
			v := clean(record[i])
			if v != "" {
				blank = false
			}
			values[col] = v
		}
		if blank {
			continue
		}
		src.Rows = append(src.Rows, Row{Line: line, values: values})
	}

	return src, nil
}

// clean normalizes a cell so the same name typed on different systems
// resolves to the same key
func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// LoadSource reads the file for table from dir
func LoadSource(dir, table string) (*Source, error) {
	path := filepath.Join(dir, FileName(table))
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &store.ValidationError{
			Entity:     table,
			Violations: []store.Violation{store.NotFoundViolation("file", "source file not found", []string{path})},
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return ReadSource(table, path, file)
}

// LoadSources reads every entity file from dir concurrently. All problems
// are collected so a single run reports every missing file and column.
func LoadSources(ctx context.Context, dir string) (Sources, error) {
	tables := store.ImportOrder
	loaded := make([]*Source, len(tables))
	errs := make([]error, len(tables))

	g, gCtx := errgroup.WithContext(ctx)
	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			loaded[i], errs[i] = LoadSource(dir, table)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	sources := make(Sources, len(tables))
	for i, table := range tables {
		sources[table] = loaded[i]
	}
	return sources, nil
}
