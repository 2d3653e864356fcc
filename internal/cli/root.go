// Package cli implements the deeptube command-line interface.
// Built with cobra following the picker's operational rules:
// - The zone filter and the country choice are independent
// - Confirm is the only action that records anything
// - Rejections are reported, never raised as errors
package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	configDir string

	// Shared command flags
	zoneFlag    string
	accountFlag string
	jsonOutput  bool
)

// rootCmd is the base command for deeptube.
var rootCmd = &cobra.Command{
	Use:   "deeptube",
	Short: "Pick the country of your DEEPTUBE account",
	Long: `deeptube lets an account pick its country from the DEEPTUBE catalog.

It provides:
  • Zone filtering (ОСЬ, НЗВ) with per-zone hints
  • Status-aware confirmation (active, blocked, upcoming, unavailable)
  • An encrypted selection ledger (SQLite + SQLCipher)
  • An interactive terminal picker and a JSON HTTP API

A country may be changed at most once per month.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeEngine(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Use alternate config directory")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(zonesCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(rekeyCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(serveCmd)
}

// getConfigDir returns the configuration directory path.
// First checks current directory for .deeptube (repo-local), then falls back to user home.
func getConfigDir() string {
	if configDir != "" {
		return configDir
	}

	cwd, err := os.Getwd()
	if err == nil {
		localConfig := filepath.Join(cwd, ".deeptube")
		if _, err := os.Stat(localConfig); err == nil {
			return localConfig
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".deeptube"
	}
	return filepath.Join(home, ".deeptube")
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a deeptube config directory and ledger",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		return RunInit(path)
	},
}

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "List zone filters with their hints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunZones()
	},
}

var (
	statusFlag string
	queryFlag  string
	limitFlag  int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List countries in a zone",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunList(zoneFlag, statusFlag, queryFlag, limitFlag)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <country-id>",
	Short: "Show a country and what confirming it would do",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunShow(args[0], zoneFlag)
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm [country-id]",
	Short: "Confirm a country for the account",
	Long: `Confirm a country for the account.

Without an id the catalog default is confirmed. Accepted countries are recorded
in the selection ledger when an account is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		return RunConfirm(id, zoneFlag, accountFlag)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the selection history of the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunHistory(accountFlag)
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show catalog and ledger summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunOverview()
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check current selections against the ledger rules and the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunVerify()
	},
}

var rekeyCmd = &cobra.Command{
	Use:   "rekey",
	Short: "Re-encrypt the ledger with DEEPTUBE_NEW_PASSPHRASE",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunRekey(os.Getenv("DEEPTUBE_NEW_PASSPHRASE"))
	},
}

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Open the interactive country picker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunPick(accountFlag)
	},
}

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunServe(cmd.Context(), addrFlag)
	},
}

func init() {
	for _, c := range []*cobra.Command{listCmd, showCmd, confirmCmd} {
		c.Flags().StringVarP(&zoneFlag, "zone", "z", "", "Zone filter (all, ОСЬ, НЗВ, ОСИ)")
	}
	for _, c := range []*cobra.Command{confirmCmd, historyCmd, pickCmd} {
		c.Flags().StringVarP(&accountFlag, "account", "a", "", "Ledger account (default from config)")
	}
	for _, c := range []*cobra.Command{listCmd, showCmd, confirmCmd, historyCmd, overviewCmd, verifyCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	}

	listCmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Only countries with this status")
	listCmd.Flags().StringVar(&queryFlag, "query", "", "Case-insensitive name filter")
	listCmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "Max results")

	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default from config)")
}
