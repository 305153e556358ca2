package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/franz/kdex/internal/report"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "kdex",
		Short: "K-pop catalog - companies, groups, members, releases and songs in SQLite",
		Long: `kdex keeps a relational catalog of K-pop companies, groups, members,
nationalities, releases and songs in a single SQLite file.

Catalog data is loaded from one CSV file per entity. Every reference is
checked by name before anything is written, and a failed import leaves
the database exactly as it was.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.SetVerbose(viper.GetBool("verbose"))
			util.SetQuiet(viper.GetBool("quiet"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/kdex.yaml)")
	rootCmd.PersistentFlags().String("db", store.DefaultPath, "catalog database file")
	rootCmd.PersistentFlags().String("data", "data", "directory holding the entity CSV files")
	rootCmd.PersistentFlags().String("images", ".", "directory the images/ tree is stored under")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	for _, key := range []string{"db", "data", "images", "verbose", "quiet"} {
		viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}

	viper.SetDefault("events", defaults.Events)
	viper.SetDefault("event_level", defaults.EventLevel)
	viper.SetDefault("busy_timeout_ms", defaults.BusyTimeoutMs)
	viper.SetDefault("expenses", defaults.Expenses)
	viper.SetDefault("progress", defaults.Progress)
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("kdex")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("KDEX")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		util.DebugLog("Using config file: %s", viper.ConfigFileUsed())
	case cfgFile != "" || !errors.As(err, &notFound):
		util.WarnLog("Failed to read config file: %v", err)
	}
}

// openStore opens the configured catalog database
func openStore() (*store.Store, error) {
	dbPath := GetConfigString("db", store.DefaultPath)
	db, err := store.OpenWithOptions(dbPath, &store.OpenOptions{
		BusyTimeoutMs: GetConfigInt("busy_timeout_ms", defaults.BusyTimeoutMs),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openEventLog opens a fresh JSONL event log. A log that cannot be created
// only costs the audit trail, so the command carries on without it.
func openEventLog() *report.EventLogger {
	dir := GetConfigString("events", defaults.Events)
	level := report.EventLevel(GetConfigString("event_level", defaults.EventLevel))

	logger, err := report.NewEventLogger(dir, level)
	if err != nil {
		util.WarnLog("Event log disabled: %v", err)
		return report.NullLogger()
	}
	util.DebugLog("Event log: %s", logger.Path())
	return logger
}

// exitCode maps a command error to the process exit status: 2 for data
// that was rejected, 1 for everything else
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, util.ErrValidation), errors.Is(err, util.ErrIntegrity):
		return 2
	default:
		return 1
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
