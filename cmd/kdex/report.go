package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/franz/kdex/internal/report"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a summary report from the database and event logs",
	Long: `Generate a summary report in Markdown format.

The report includes:
- Row counts per table
- Every group with its company, debut and catalog size
- Groups per company
- The outcome of the last import
- Top errors from the event log

The report is saved to artifacts/reports/<timestamp>/summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	// Report-specific flags
	reportCmd.Flags().String("out", "", "Output directory for report (default: artifacts/reports/<timestamp>)")
	reportCmd.Flags().String("event-log", "", "Path to event log file (default: newest log in the events directory)")
}

func runReport(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	util.InfoLog("=== Generating Summary Report ===")
	util.InfoLog("Database: %s", db.Path())

	eventLogPath, _ := cmd.Flags().GetString("event-log")
	if eventLogPath == "" {
		eventLogPath, err = report.LatestEventLog(GetConfigString("events", defaults.Events),
			report.EventImport, report.EventValidate, report.EventCommit)
		if err != nil {
			util.WarnLog("Cannot read event logs: %v", err)
		}
	}
	if eventLogPath != "" {
		util.InfoLog("Event log: %s", eventLogPath)
	}

	util.InfoLog("Analyzing data...")
	summaryReport, err := report.GenerateSummaryReport(db, eventLogPath)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	outputDir, _ := cmd.Flags().GetString("out")
	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join("artifacts", "reports", timestamp)
	}
	outputPath := filepath.Join(outputDir, "summary.md")

	util.InfoLog("Writing report to: %s", outputPath)
	if err := report.WriteMarkdownReport(summaryReport, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report generated successfully!")
	util.InfoLog("")
	util.InfoLog("Summary:")
	util.InfoLog("  Rows: %s", util.FormatCount(summaryReport.Counts.Total()))
	util.InfoLog("  Groups: %d (%d unaffiliated)", len(summaryReport.Groups), summaryReport.Unaffiliated)
	if imp := summaryReport.LastImport; imp != nil {
		if imp.Failed {
			util.WarnLog("  Last import failed: %s", imp.Error)
		} else {
			util.InfoLog("  Last import: %s, %d tables", imp.At.Format("2006-01-02 15:04"), len(imp.Tables))
		}
	}
	if len(summaryReport.TopErrors) > 0 {
		util.WarnLog("  Distinct errors: %d", len(summaryReport.TopErrors))
	}

	return nil
}
