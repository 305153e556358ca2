package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/franz/kdex/internal/importer"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the database, data files and directories",
	Long: `Run diagnostic checks to ensure kdex can operate correctly.

This command checks:
- SQLite version
- Database accessibility, integrity and foreign keys
- Entity CSV files (present, required columns)
- Image and event log directories are writable
- Disk space availability

Use this command to troubleshoot issues before importing.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== kdex doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	results = append(results, checkSQLite())
	results = append(results, checkDatabase(GetConfigString("db", store.DefaultPath))...)
	results = append(results, checkDataSources(cmd.Context(), GetConfigString("data", "data")))

	imagesDir := GetConfigString("images", ".")
	results = append(results, checkWritableDirectory("Image directory", imagesDir))
	results = append(results, checkWritableDirectory("Event log directory", GetConfigString("events", defaults.Events)))
	results = append(results, checkDiskSpace(imagesDir, "images"))

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before running kdex.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed!")
	}

	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is compiled in, so only the version is reported
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies the database file, its integrity and its
// foreign keys
func checkDatabase(dbPath string) []checkResult {
	if dbPath == "" {
		return []checkResult{{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []checkResult{{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}}
		}
		return []checkResult{{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}}
	}

	if !info.Mode().IsRegular() {
		return []checkResult{{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return []checkResult{{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return []checkResult{{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}}
	}

	counts, err := db.TableCounts()
	if err != nil {
		return []checkResult{{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot count rows: %v", err),
		}}
	}

	results := []checkResult{{
		name: "Database",
		message: fmt.Sprintf("%s (%s, %s rows)", dbPath,
			util.FormatBytes(info.Size()), util.FormatCount(counts.Total())),
	}}

	problems, err := db.CheckForeignKeys()
	switch {
	case err != nil:
		results = append(results, checkResult{name: "Foreign keys", error: true, message: err.Error()})
	case len(problems) > 0:
		p := problems[0]
		results = append(results, checkResult{
			name:    "Foreign keys",
			error:   true,
			message: fmt.Sprintf("%d dangling references (first: %s row %d -> %s)", len(problems), p.Table, p.RowID, p.Parent),
		})
	default:
		results = append(results, checkResult{name: "Foreign keys", message: "all references resolve"})
	}

	return results
}

// checkDataSources verifies every entity CSV exists with its required columns
func checkDataSources(ctx context.Context, dir string) checkResult {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return checkResult{
			name:    "Data files",
			warning: true,
			message: fmt.Sprintf("%s is not a directory (needed only for import)", dir),
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	sources, err := importer.LoadSources(ctx, dir)
	if err != nil {
		msg := err.Error()
		if !errors.Is(err, util.ErrValidation) {
			msg = fmt.Sprintf("cannot read %s: %v", dir, err)
		}
		return checkResult{
			name:    "Data files",
			error:   true,
			message: msg,
		}
	}

	rows := 0
	for _, src := range sources {
		rows += len(src.Rows)
	}
	return checkResult{
		name:    "Data files",
		message: fmt.Sprintf("%s (%d files, %s rows)", dir, len(sources), util.FormatCount(rows)),
	}
}

// checkWritableDirectory verifies a directory exists, or can be created,
// and accepts new files
func checkWritableDirectory(name, path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    name,
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    name,
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".kdex_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    name,
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))
	usedPercent := float64(usedBytes) / float64(totalBytes) * 100

	// pictures are small; only a nearly full disk matters
	warning := false
	warningMsg := ""
	if availBytes < 100*1024*1024 {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 95 {
		warning = true
		warningMsg = " (>95% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%s available%s", util.FormatBytes(int64(availBytes)), warningMsg),
	}
}
