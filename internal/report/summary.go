package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
)

// SummaryReport represents a catalog summary
type SummaryReport struct {
	GeneratedAt time.Time

	// Catalog size
	Counts store.Counts

	// Details
	Groups       []GroupSummary
	Companies    []CompanySummary
	Unaffiliated int
	LastImport   *ImportSummary
	TopErrors    []ErrorSummary

	// Metadata
	DatabasePath string
	EventLogPath string
}

// GroupSummary is one row of the group table
type GroupSummary struct {
	Name     string
	Company  string
	Debut    string
	Members  int
	Releases int
	Songs    int
}

// CompanySummary counts the groups of one company
type CompanySummary struct {
	Name   string
	Groups int
}

// ImportSummary is the last import found in the event log
type ImportSummary struct {
	At       time.Time
	Duration time.Duration
	Tables   []TableImport
	Failed   bool
	Error    string
}

// TableImport is the per-table line of an import
type TableImport struct {
	Table    string
	Rows     int
	Inserted int
	Skipped  int
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// GenerateSummaryReport creates a summary report from the database and,
// when eventLogPath is set, the event log
func GenerateSummaryReport(db *store.Store, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		DatabasePath: db.Path(),
		EventLogPath: eventLogPath,
		Groups:       make([]GroupSummary, 0),
		Companies:    make([]CompanySummary, 0),
		TopErrors:    make([]ErrorSummary, 0),
	}

	counts, err := db.TableCounts()
	if err != nil {
		return nil, err
	}
	report.Counts = counts

	groups, err := db.ListGroups()
	if err != nil {
		return nil, err
	}

	perCompany := make(map[string]int)
	for _, g := range groups {
		detail, err := db.GetGroupDetail(g.ID)
		if err != nil {
			return nil, err
		}
		if detail == nil {
			continue
		}

		report.Groups = append(report.Groups, GroupSummary{
			Name:     detail.Name,
			Company:  detail.CompanyName.String,
			Debut:    detail.DebutDate.String,
			Members:  detail.MemberCount,
			Releases: detail.ReleaseCount,
			Songs:    detail.SongCount,
		})

		if detail.CompanyName.Valid {
			perCompany[detail.CompanyName.String]++
		} else {
			report.Unaffiliated++
		}
	}

	companies, err := db.ListCompanies()
	if err != nil {
		return nil, err
	}
	for _, c := range companies {
		report.Companies = append(report.Companies, CompanySummary{Name: c.Name, Groups: perCompany[c.Name]})
	}
	sort.SliceStable(report.Companies, func(i, j int) bool {
		return report.Companies[i].Groups > report.Companies[j].Groups
	})

	if eventLogPath != "" {
		events, err := ReadEvents(eventLogPath)
		if err != nil {
			return nil, err
		}
		report.LastImport = lastImport(events)
		report.TopErrors = topErrors(events, 10)
	}

	return report, nil
}

// lastImport rebuilds the most recent import from its events. An import
// ends with a commit event or an error event.
func lastImport(events []Event) *ImportSummary {
	var current, last *ImportSummary
	for _, e := range events {
		switch e.Event {
		case EventWipe:
			current = &ImportSummary{At: e.Timestamp}
		case EventImport:
			if current == nil {
				current = &ImportSummary{At: e.Timestamp}
			}
			if e.Level == LevelError {
				current.Failed = true
				current.Error = e.Error
				last, current = current, nil
				continue
			}
			current.Tables = append(current.Tables, TableImport{
				Table:    e.Table,
				Rows:     e.Rows,
				Inserted: e.Inserted,
				Skipped:  e.Skipped,
			})
		case EventValidate:
			if current == nil {
				current = &ImportSummary{At: e.Timestamp}
			}
			current.Failed = true
			current.Error = e.Error
		case EventCommit:
			if current == nil {
				current = &ImportSummary{At: e.Timestamp}
			}
			current.Duration = time.Duration(e.Duration) * time.Millisecond
			last, current = current, nil
		}
	}
	if current != nil {
		last = current
	}
	return last
}

// topErrors returns the most common error messages
func topErrors(events []Event, limit int) []ErrorSummary {
	errorCounts := make(map[string]int)
	for _, e := range events {
		if e.Level == LevelError && e.Error != "" {
			errorCounts[e.Error]++
		}
	}

	errors := make([]ErrorSummary, 0, len(errorCounts))
	for err, count := range errorCounts {
		errors = append(errors, ErrorSummary{
			Error: err,
			Count: count,
		})
	}

	sort.Slice(errors, func(i, j int) bool {
		if errors[i].Count != errors[j].Count {
			return errors[i].Count > errors[j].Count
		}
		return errors[i].Error < errors[j].Error
	})

	if len(errors) > limit {
		errors = errors[:limit]
	}

	return errors
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# K-pop Catalog - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	// Overview
	md.WriteString("## 📊 Tables\n\n")
	md.WriteString("| Table | Rows |\n")
	md.WriteString("|-------|------|\n")
	for _, tc := range report.Counts {
		md.WriteString(fmt.Sprintf("| %s | %s |\n", tc.Table, util.FormatCount(tc.Rows)))
	}
	md.WriteString(fmt.Sprintf("| **total** | **%s** |\n", util.FormatCount(report.Counts.Total())))
	md.WriteString("\n")

	// Groups
	if len(report.Groups) > 0 {
		md.WriteString("## 🎤 Groups\n\n")
		md.WriteString("| Group | Company | Debut | Members | Releases | Songs |\n")
		md.WriteString("|-------|---------|-------|---------|----------|-------|\n")
		for _, g := range report.Groups {
			company := g.Company
			if company == "" {
				company = "-"
			}
			debut := g.Debut
			if debut == "" {
				debut = "-"
			}
			md.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %d |\n",
				escapeCell(g.Name), escapeCell(company), debut, g.Members, g.Releases, g.Songs))
		}
		md.WriteString("\n")
	}

	// Companies
	if len(report.Companies) > 0 || report.Unaffiliated > 0 {
		md.WriteString("## 🏢 Companies\n\n")
		md.WriteString("| Company | Groups |\n")
		md.WriteString("|---------|--------|\n")
		for _, c := range report.Companies {
			md.WriteString(fmt.Sprintf("| %s | %d |\n", escapeCell(c.Name), c.Groups))
		}
		if report.Unaffiliated > 0 {
			md.WriteString(fmt.Sprintf("| *(none)* | %d |\n", report.Unaffiliated))
		}
		md.WriteString("\n")
	}

	// Last import
	if imp := report.LastImport; imp != nil {
		md.WriteString("## 📥 Last Import\n\n")
		md.WriteString(fmt.Sprintf("**Started:** %s\n\n", imp.At.Format("2006-01-02 15:04:05")))
		if imp.Failed {
			md.WriteString(fmt.Sprintf("**Status:** ❌ failed, rolled back\n\n```\n%s\n```\n\n", imp.Error))
		} else {
			md.WriteString(fmt.Sprintf("**Status:** ✅ committed in %s\n\n", imp.Duration.Round(time.Millisecond)))
		}
		if len(imp.Tables) > 0 {
			md.WriteString("| Table | Rows | Inserted | Skipped |\n")
			md.WriteString("|-------|------|----------|---------|\n")
			for _, t := range imp.Tables {
				md.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n", t.Table, t.Rows, t.Inserted, t.Skipped))
			}
			md.WriteString("\n")
		}
	}

	// Errors
	if len(report.TopErrors) > 0 {
		md.WriteString("## ⚠️ Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, err := range report.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", err.Count, escapeCell(truncate(err.Error, 120))))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by kdex*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// escapeCell keeps a value from breaking a Markdown table row
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncate shortens s to at most maxLen runes, keeping start and end
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	start := maxLen/2 - 2
	end := len(r) - (maxLen/2 - 2)
	return string(r[:start]) + "..." + string(r[end:])
}
