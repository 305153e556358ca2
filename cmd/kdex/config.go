package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/franz/kdex/internal/expense"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the keys read through viper
type fileConfig struct {
	DB            string `yaml:"db"`
	Data          string `yaml:"data"`
	Images        string `yaml:"images"`
	Events        string `yaml:"events"`
	EventLevel    string `yaml:"event_level"`
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"`
	Expenses      string `yaml:"expenses"`
	Progress      bool   `yaml:"progress"`
	Verbose       bool   `yaml:"verbose"`
	Quiet         bool   `yaml:"quiet"`
}

var defaults = fileConfig{
	DB:            store.DefaultPath,
	Data:          "data",
	Images:        ".",
	Events:        filepath.Join("artifacts", "events"),
	EventLevel:    "info",
	BusyTimeoutMs: 5000,
	Expenses:      expense.DefaultPath,
	Progress:      true,
}

var configComments = map[string]string{
	"db":              "SQLite catalog file",
	"data":            "Directory with companies.csv, groups.csv, members.csv, nationalities.csv,\nmember_nationalities.csv, releases.csv and songs.csv",
	"images":          "Group and member pictures are stored under <images>/images/{groups,members}",
	"events":          "Directory for JSONL event logs",
	"event_level":     "Minimum event level written: debug, info, warning or error",
	"busy_timeout_ms": "How long SQLite waits for a lock before failing",
	"expenses":        "Expense ledger CSV used by 'kdex expense'",
	"progress":        "Draw a progress bar during imports when stdout is a terminal",
}

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (KDEX_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigBool retrieves a bool config value
func GetConfigBool(key string) bool {
	return viper.GetBool(key)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a documented default configuration file",
	Long: `Write a YAML configuration file holding every setting with its default.

Without a path the file is written to ./configs/kdex.yaml. An existing file
is only replaced with --force.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join("configs", "kdex.yaml")
	if len(args) == 1 {
		path = args[0]
	}
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s already exists (use --force to replace it)", util.ErrInvalidConfig, path)
	}

	data, err := renderConfig(defaults)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	util.SuccessLog("Wrote %s", path)
	return nil
}

// renderConfig encodes cfg as YAML with a comment above each key
func renderConfig(cfg fileConfig) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if c, ok := configComments[key.Value]; ok {
			key.HeadComment = c
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# kdex configuration\n")
	buf.WriteString("# Every key can also be set with a KDEX_<KEY> environment variable or a flag.\n\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
