package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zaricj/XMLuvation-sub001/internal/cli"
	"github.com/zaricj/XMLuvation-sub001/internal/cli/config"
	"github.com/zaricj/XMLuvation-sub001/pkg/export"
)

var (
	// Set during build time using -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Flags persistent across commands.
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "xmluvation",
	Short: "Searches folders of XML files with XPath and exports matches to CSV.",
	Long: `xmluvation evaluates a set of XPath 1.0 expressions against every XML
file in a folder, in parallel, and writes the matches to a CSV file.

It features:
  - Parallel per-file processing with a bounded worker pool.
  - Grouped (one row per file) or per-match-index row output.
  - Named filter presets stored in the configuration file.
  - Live progress reporting and mid-run cancellation (Ctrl-C).`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

// exportCmd runs the search-and-export engine.
var exportCmd = &cobra.Command{
	Use:   "export -f <folder> -o <output.csv> -x <xpath> --header <name> [...]",
	Short: "Search a folder of XML files and export matches to CSV.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg, logger, err := config.LoadAndValidate(cfgFile, verbose, cmd.Flags())
		if err != nil {
			return err
		}
		// The TUI only makes sense on a real terminal.
		cfg.TuiEnabled = cfg.TuiEnabled && term.IsTerminal(int(os.Stderr.Fd()))

		return cli.Run(ctx, cfg, logger)
	},
}

// validateCmd checks a single XPath expression, optionally against a sample file.
var validateCmd = &cobra.Command{
	Use:   "validate -x <xpath> [--sample <file.xml>]",
	Short: "Check an XPath expression for syntax errors, optionally trial-evaluating it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		expression, _ := cmd.Flags().GetString("xpath")
		sample, _ := cmd.Flags().GetString("sample")
		if expression == "" {
			return fmt.Errorf("an XPath expression is required (use --xpath)")
		}

		var (
			info *export.ValidationInfo
			err  error
		)
		if sample != "" {
			info, err = export.ValidateAgainst(expression, sample, nil)
		} else {
			info, err = export.Validate(expression)
		}
		if err != nil {
			return err
		}

		kind := "count-style"
		if info.ValueExtracting {
			kind = "value-extracting"
		}
		if info.Evaluated {
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s expression, %d result(s) in %s\n", kind, info.ResultCount, sample)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s expression\n", kind)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default searches ., $HOME/.config/xmluvation/)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	exportCmd.Flags().StringP("folder", "f", "", "Required. Folder containing the XML files (non-recursive).")
	exportCmd.Flags().StringP("output", "o", "", "Required. Destination CSV file path.")
	exportCmd.Flags().StringArrayP("xpath", "x", []string{}, "XPath expression to evaluate (repeatable, order-correlated with --header)")
	exportCmd.Flags().StringArray("header", []string{}, "CSV column header for the matching --xpath (repeatable)")
	exportCmd.Flags().String("preset", "", "Name of a filter preset from the configuration file")
	exportCmd.Flags().BoolP("group", "g", export.DefaultGroupMatches, "Collapse all matches of a file into one row (semicolon-joined)")
	exportCmd.Flags().IntP("concurrency", "c", export.DefaultConcurrency, fmt.Sprintf("Number of parallel workers (0 auto-detects, capped at %d)", export.MaxConcurrency))
	exportCmd.Flags().Bool("no-tui", false, "Disable the interactive terminal UI even on a TTY")
	_ = exportCmd.MarkFlagRequired("folder")
	_ = exportCmd.MarkFlagRequired("output")

	validateCmd.Flags().StringP("xpath", "x", "", "Required. XPath expression to validate.")
	validateCmd.Flags().String("sample", "", "Sample XML file to trial-evaluate the expression against")
	_ = validateCmd.MarkFlagRequired("xpath")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(validateCmd)
}
