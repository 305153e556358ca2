package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/franz/kdex/internal/importer"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the catalog schema",
	Long: `Create every catalog table and index if absent. Running it again is a
no-op. With --wipe all rows are deleted and the id counters start over.`,
	RunE: runInit,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the entity CSV files into the catalog",
	Long: `Import companies, groups, members, nationalities, member nationalities,
releases and songs from <data>/<table>.csv, in that order.

Rows whose natural key already exists are skipped, so importing the same
files twice changes nothing. Each file is checked as a whole before its
first row is written: every unknown group, company, member, release or
nationality is reported at once. Any failure rolls back the entire import.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)

	initCmd.Flags().Bool("wipe", false, "delete all rows after creating the schema")
	initCmd.Flags().BoolP("yes", "y", false, "do not ask before wiping")

	importCmd.Flags().Bool("wipe", false, "delete all rows before importing (rolled back if the import fails)")
	importCmd.Flags().String("table", "", "import a single table instead of all of them")
	importCmd.Flags().Bool("no-progress", false, "never draw a progress bar")
}

func runInit(cmd *cobra.Command, args []string) error {
	wipe, _ := cmd.Flags().GetBool("wipe")
	yes, _ := cmd.Flags().GetBool("yes")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var before store.Counts
	if wipe {
		if before, err = db.TableCounts(); err != nil {
			return err
		}
	}
	if wipe && !yes && before.Total() > 0 {
		ok, err := util.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
			fmt.Sprintf("Delete all %s rows from %s?", util.FormatCount(before.Total()), db.Path()))
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrCancelled
		}
	}

	if err := db.Initialize(wipe); err != nil {
		return err
	}

	if wipe {
		logger := openEventLog()
		defer logger.Close()
		logger.LogWipe(before.Total())
		util.SuccessLog("Catalog wiped: %s", db.Path())
	} else {
		util.SuccessLog("Catalog ready: %s", db.Path())
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	dataDir := GetConfigString("data", "data")
	wipe, _ := cmd.Flags().GetBool("wipe")
	table, _ := cmd.Flags().GetString("table")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := openEventLog()
	defer logger.Close()

	im := importer.New(&importer.Config{
		Store:        db,
		Logger:       logger,
		ShowProgress: GetConfigBool("progress") && !noProgress,
	})

	util.InfoLog("=== Importing %s into %s ===", dataDir, db.Path())

	if table != "" {
		if wipe {
			return fmt.Errorf("%w: --wipe cannot be combined with --table", util.ErrInvalidConfig)
		}
		src, err := importer.LoadSource(dataDir, table)
		if err != nil {
			return err
		}
		tr, err := im.ImportTable(ctx, src)
		if err != nil {
			return explainImportError(err)
		}
		printTableResults([]importer.TableResult{*tr})
		return nil
	}

	sources, err := importer.LoadSources(ctx, dataDir)
	if err != nil {
		return err
	}

	result, err := im.Run(ctx, sources, importer.RunOptions{Wipe: wipe})
	if err != nil {
		return explainImportError(err)
	}

	printTableResults(result.Tables)
	util.SuccessLog("Import committed in %s (%s rows in catalog)",
		result.Duration.Round(time.Millisecond), util.FormatCount(result.Counts.Total()))
	if !viper.GetBool("quiet") {
		fmt.Fprintln(cmd.OutOrStdout())
		printCounts(cmd, result.Counts)
	}
	return nil
}

// explainImportError adds a hint for the failures users hit most
func explainImportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		util.WarnLog("Import interrupted, nothing was written")
	case errors.Is(err, util.ErrNotFound):
		util.ErrorLog("Referenced rows are missing; import parents first or fix the names")
	case errors.Is(err, util.ErrIntegrity):
		util.ErrorLog("The database rejected a row; nothing was written")
	}
	return err
}

func printTableResults(results []importer.TableResult) {
	for _, tr := range results {
		util.InfoLog("  %-22s read %6s  inserted %6s  skipped %6s",
			tr.Table, util.FormatCount(tr.Read), util.FormatCount(tr.Inserted), util.FormatCount(tr.Skipped))
	}
}

func printCounts(cmd *cobra.Command, counts store.Counts) {
	out := cmd.OutOrStdout()
	for _, tc := range counts {
		fmt.Fprintf(out, "%-22s %8s\n", tc.Table, util.FormatCount(tc.Rows))
	}
	fmt.Fprintf(out, "%-22s %8s\n", "total", util.FormatCount(counts.Total()))
}
