package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/panicbutton/internal/pipeline"
	"github.com/ppiankov/panicbutton/internal/review"
)

var (
	extractJSON    string
	extractICS     string
	extractCSV     string
	extractNoCache bool
	extractTimeout time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file|url>",
	Short: "Extract deadline candidates from a syllabus",
	Long: `Extract reads a syllabus and proposes graded deadlines:
- Find every date written in the text (ISO, "Feb 7", "7 Feb", 03/04/2026)
- Score each one by the deadline vocabulary around it
- Keep dates that look like graded work, with evidence and flags
- Print a summary, and optionally write JSON, ICS or CSV

Sources can be plain text (.txt), HTML pages (.html) or http(s) URLs.
For PDFs, extract the text layer first (e.g. pdftotext syllabus.pdf).

Dates written without a year are placed in --year (default: this year)
and flagged so you can check them.

Example:
  panicbutton extract syllabus.txt
  panicbutton extract syllabus.txt --year 2026 --json deadlines.json --ics deadlines.ics
  panicbutton extract https://example.edu/cs101/syllabus.html --min-confidence 60`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	// Output flags
	extractCmd.Flags().StringVar(&extractJSON, "json", "", "write the full report as JSON")
	extractCmd.Flags().StringVar(&extractICS, "ics", "", "write accepted candidates as an iCalendar file")
	extractCmd.Flags().StringVar(&extractCSV, "csv", "", "write accepted candidates as CSV")

	// Extraction flags
	extractCmd.Flags().Int("year", 0, "year for dates written without one (default: current year)")
	extractCmd.Flags().Int("min-confidence", 45, "hide and skip candidates below this confidence")
	extractCmd.Flags().BoolVar(&extractNoCache, "no-cache", false, "disable the result cache")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 2*time.Minute, "overall timeout, including fetching URLs")

	_ = viper.BindPFlag("extraction.default_year", extractCmd.Flags().Lookup("year"))
	_ = viper.BindPFlag("extraction.min_confidence", extractCmd.Flags().Lookup("min-confidence"))
}

func runExtract(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), extractTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if extractNoCache {
		cfg.Cache.Enabled = false
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Extracting: %s\n", source)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	// 1. Extract
	p := pipeline.NewPipeline(cfg, logger)
	result, err := p.ExtractSource(ctx, source, cfg.Extraction.DefaultYear)
	if err != nil {
		if errors.Is(err, pipeline.ErrExtractionUnavailable) {
			return fmt.Errorf("extraction unavailable for %s, nothing was exported: %w", source, err)
		}
		return fmt.Errorf("extract failed: %w", err)
	}
	report := result.Report

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Found %d dates\n", report.Extraction.Stats.TotalDatesFound)
		fmt.Fprintf(os.Stderr, "✓ Proposed %d deadlines (%d low confidence)\n",
			report.Extraction.Stats.CandidatesEmitted, report.Extraction.Stats.LowConfidenceCount)
		if report.Cached {
			fmt.Fprintf(os.Stderr, "✓ Served from cache\n")
		}
		fmt.Fprintln(os.Stderr)
	}

	// 2. Render
	filter := review.Filter{MinConfidence: cfg.Extraction.MinConfidence, Sort: review.SortDateAsc}
	renderer := pipeline.NewRenderer(cmd.OutOrStdout())

	if extractJSON != "" {
		if err := renderer.RenderJSON(report, extractJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if extractJSON != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", extractJSON)
		}
	}

	accepted := filter.Apply(report.Extraction.Candidates)
	if err := writeExports(renderer, accepted, extractICS, extractCSV); err != nil {
		return err
	}

	if extractICS == "-" || extractCSV == "-" || extractJSON == "-" {
		return nil
	}
	renderer.RenderSummary(report, filter)
	return nil
}
