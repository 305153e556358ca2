package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/kdex/internal/report"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
)

// Importer loads entity files into the catalog
type Importer struct {
	store        *store.Store
	logger       *report.EventLogger
	showProgress bool
}

// Config holds importer configuration
type Config struct {
	Store        *store.Store
	Logger       *report.EventLogger
	ShowProgress bool // draw a progress bar when stdout is a terminal
}

// New creates a new Importer
func New(cfg *Config) *Importer {
	return &Importer{
		store:        cfg.Store,
		logger:       cfg.Logger,
		showProgress: cfg.ShowProgress,
	}
}

// RunOptions controls a full import
type RunOptions struct {
	Wipe bool // delete every row before importing
}

// TableResult reports what happened to one entity file
type TableResult struct {
	Table    string
	Source   string
	Read     int // data rows in the file
	Inserted int // rows written
	Skipped  int // rows whose natural key already existed
}

// Result reports a completed import
type Result struct {
	Tables   []TableResult
	Counts   store.Counts // row counts after commit
	Duration time.Duration
}

// Run imports every source in dependency order inside one transaction.
// Each entity is validated completely before its first insert; any
// validation or integrity failure rolls back the whole run, wipe included.
func (im *Importer) Run(ctx context.Context, sources Sources, opts RunOptions) (*Result, error) {
	for _, table := range store.ImportOrder {
		if sources[table] == nil {
			return nil, fmt.Errorf("no source for %s", table)
		}
	}

	start := time.Now()
	result := &Result{}

	bar := im.newBar(sources)

	err := im.store.Transaction(func(tx *store.Tx) error {
		if opts.Wipe {
			before, err := tx.TableCounts()
			if err != nil {
				return err
			}
			util.WarnLog("Wiping %s existing rows", util.FormatCount(before.Total()))
			if err := tx.Wipe(); err != nil {
				return err
			}
			im.logger.LogWipe(before.Total())
		}

		for _, table := range store.ImportOrder {
			if err := ctx.Err(); err != nil {
				return err
			}

			tr, err := im.importSource(tx, sources[table], bar)
			if err != nil {
				return err
			}
			result.Tables = append(result.Tables, tr)
		}

		counts, err := tx.TableCounts()
		if err != nil {
			return err
		}
		result.Counts = counts
		return nil
	})

	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		im.logger.LogError(report.EventImport, "", err)
		return nil, err
	}

	result.Duration = time.Since(start)
	im.logger.LogCommit(countsMap(result.Counts), result.Duration)

	return result, nil
}

// ImportTable imports a single entity file in its own transaction. Parents
// must already be in the database; rows that reference missing parents
// fail validation.
func (im *Importer) ImportTable(ctx context.Context, src *Source) (*TableResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tr TableResult
	err := im.store.Transaction(func(tx *store.Tx) error {
		var err error
		tr, err = im.importSource(tx, src, nil)
		return err
	})
	if err != nil {
		im.logger.LogError(report.EventImport, src.Table, err)
		return nil, err
	}
	return &tr, nil
}

// importSource validates every row of src against the transaction's current
// state and then inserts the rows, skipping ones whose key already exists
func (im *Importer) importSource(tx *store.Tx, src *Source, bar *progressbar.ProgressBar) (TableResult, error) {
	start := time.Now()
	tr := TableResult{Table: src.Table, Source: src.Path, Read: len(src.Rows)}

	util.DebugLog("Importing %s from %s (%d rows)", src.Table, src.Path, len(src.Rows))

	record := func(inserted bool) {
		if inserted {
			tr.Inserted++
		} else {
			tr.Skipped++
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	var err error
	switch src.Table {
	case store.TableCompanies:
		err = importCompanies(tx, src, record)
	case store.TableGroups:
		err = importGroups(tx, src, record)
	case store.TableMembers:
		err = importMembers(tx, src, record)
	case store.TableNationalities:
		err = importNationalities(tx, src, record)
	case store.TableMemberNationalities:
		err = importMemberNationalities(tx, src, record)
	case store.TableReleases:
		err = importReleases(tx, src, record)
	case store.TableSongs:
		err = importSongs(tx, src, record)
	default:
		err = fmt.Errorf("unknown table %q", src.Table)
	}

	if err != nil {
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			im.logger.LogValidation(src.Table, src.Path, err)
		}
		return tr, err
	}

	im.logger.LogImport(tr.Table, tr.Source, tr.Read, tr.Inserted, tr.Skipped, time.Since(start))
	util.DebugLog("Imported %s: %d inserted, %d skipped", src.Table, tr.Inserted, tr.Skipped)
	return tr, nil
}

func importCompanies(tx *store.Tx, src *Source, record func(bool)) error {
	companies, err := ValidateCompanies(src)
	if err != nil {
		return err
	}
	for i := range companies {
		ok, err := tx.InsertCompany(&companies[i], true)
		if err != nil {
			return err
		}
		record(ok)
	}
	return nil
}

func importGroups(tx *store.Tx, src *Source, record func(bool)) error {
	companyIDs, err := tx.CompanyIDs()
	if err != nil {
		return err
	}
	groups, err := ValidateGroups(src, companyIDs)
	if err != nil {
		return err
	}
	for i := range groups {
		ok, err := tx.InsertGroup(&groups[i], true)
		if err != nil {
			return err
		}
		record(ok)
	}
	return nil
}

func importMembers(tx *store.Tx, src *Source, record func(bool)) error {
	groupIDs, err := tx.GroupIDs()
	if err != nil {
		return err
	}
	members, err := ValidateMembers(src, groupIDs)
	if err != nil {
		return err
	}
	for i := range members {
		ok, err := tx.InsertMember(&members[i], true)
		if err != nil {
			return err
		}
		record(ok)
	}
	return nil
}

func importNationalities(tx *store.Tx, src *Source, record func(bool)) error {
	nationalities, err := ValidateNationalities(src)
	if err != nil {
		return err
	}
	for i := range nationalities {
		ok, err := tx.InsertNationality(&nationalities[i], true)
		if err != nil {
			return err
		}
		record(ok)
	}
	return nil
}

func importMemberNationalities(tx *store.Tx, src *Source, record func(bool)) error {
	memberIDs, err := tx.MemberIDs()
	if err != nil {
		return err
	}
	codes, err := tx.NationalityCodes()
	if err != nil {
		return err
	}
	links, err := ValidateMemberNationalities(src, memberIDs, codes)
	if err != nil {
		return err
	}
	for _, link := range links {
		ok, err := tx.LinkNationality(link.MemberID, link.Code, true)
		if err != nil {
			return err
		}
		record(ok)
	}
	return nil
}

func importReleases(tx *store.Tx, src *Source, record func(bool)) error {
	groupIDs, err := tx.GroupIDs()
	if err != nil {
		return err
	}
	releases, err := ValidateReleases(src, groupIDs)
	if err != nil {
		return err
	}
	for i := range releases {
		ok, err := tx.InsertRelease(&releases[i], true)
		if err != nil {
			return err
		}
		record(ok)
	}
	return nil
}

func importSongs(tx *store.Tx, src *Source, record func(bool)) error {
	releaseIDs, err := tx.ReleaseIDs()
	if err != nil {
		return err
	}
	songs, err := ValidateSongs(src, releaseIDs)
	if err != nil {
		return err
	}
	for i := range songs {
		ok, err := tx.InsertSong(&songs[i], true)
		if err != nil {
			return err
		}
		record(ok)
	}
	return nil
}

// newBar returns a progress bar over all source rows, or nil when progress
// is disabled or stdout is not a terminal
func (im *Importer) newBar(sources Sources) *progressbar.ProgressBar {
	if !im.showProgress || util.IsQuiet() || !util.IsTerminal(os.Stdout.Fd()) {
		return nil
	}

	total := 0
	for _, src := range sources {
		total += len(src.Rows)
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func countsMap(counts store.Counts) map[string]int {
	m := make(map[string]int, len(counts))
	for _, tc := range counts {
		m[tc.Table] = tc.Rows
	}
	return m
}
