package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/panicbutton/internal/model"
	"github.com/ppiankov/panicbutton/internal/pipeline"
	"github.com/ppiankov/panicbutton/internal/review"
)

var (
	exportICS           string
	exportCSV           string
	exportMinConfidence int
	exportSort          string
	exportQuery         string
	exportAdd           []string
	exportRemove        []string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <report.json>",
	Short: "Review a saved report and export it as ICS or CSV",
	Long: `Export turns a report written by 'extract --json' into calendar or
spreadsheet files, after your review:
- Drop candidates you reject (--remove <id>)
- Add deadlines the extractor missed (--add 2026-04-01 or --add "2026-04-01=Essay draft")
- Filter by confidence or text and choose the order

Candidates with a malformed date are never exported.

Example:
  panicbutton export deadlines.json --ics deadlines.ics
  panicbutton export deadlines.json --csv deadlines.csv --sort confidence-desc --query quiz
  panicbutton export deadlines.json --ics out.ics --remove cand_1a2b3c4d --add "2026-04-01=Essay draft"`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportICS, "ics", "", "write an iCalendar file (- for stdout)")
	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "write a CSV file (- for stdout)")
	exportCmd.Flags().IntVar(&exportMinConfidence, "min-confidence", review.DefaultMinConfidence, "skip candidates below this confidence")
	exportCmd.Flags().StringVar(&exportSort, "sort", string(review.SortDateAsc), "order: date-asc, date-desc, confidence-desc")
	exportCmd.Flags().StringVar(&exportQuery, "query", "", "keep candidates whose title, date or type contains this text")
	exportCmd.Flags().StringArrayVar(&exportAdd, "add", nil, "add a manual deadline: DATE or DATE=TITLE (repeatable)")
	exportCmd.Flags().StringArrayVar(&exportRemove, "remove", nil, "reject a candidate by id (repeatable)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportICS == "" && exportCSV == "" {
		return fmt.Errorf("nothing to export: pass --ics and/or --csv")
	}

	order, err := review.ParseSortOrder(exportSort)
	if err != nil {
		return err
	}

	// 1. Load
	report, err := pipeline.LoadReport(args[0])
	if err != nil {
		return err
	}

	// 2. Review
	session := review.NewSession(report.Extraction)
	for _, id := range exportRemove {
		if err := session.Remove(id); err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
	}
	for _, entry := range exportAdd {
		date, title, err := parseManualEntry(entry)
		if err != nil {
			return err
		}
		c := session.AddManual(date)
		if title != "" {
			if err := session.Edit(c.ID, review.Patch{Title: &title}); err != nil {
				return err
			}
		}
	}

	// 3. Filter and write
	filter := review.Filter{MinConfidence: exportMinConfidence, Query: exportQuery, Sort: order}
	candidates := filter.Apply(session.Candidates())

	renderer := pipeline.NewRenderer(cmd.OutOrStdout())
	if err := writeExports(renderer, candidates, exportICS, exportCSV); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Exported %d deadline%s\n", len(candidates), plural(len(candidates)))
	return nil
}

// parseManualEntry splits "DATE" or "DATE=TITLE"
func parseManualEntry(entry string) (string, string, error) {
	date, title, _ := strings.Cut(entry, "=")
	date = strings.TrimSpace(date)
	if !model.IsISODate(date) {
		return "", "", fmt.Errorf("invalid --add %q: date must be YYYY-MM-DD", entry)
	}
	return date, strings.TrimSpace(title), nil
}

// writeExports writes ICS and CSV files for any non-empty path; "-" means stdout
func writeExports(r *pipeline.Renderer, candidates []model.DeadlineCandidate, icsPath, csvPath string) error {
	if icsPath == "-" && csvPath == "-" {
		return fmt.Errorf("only one of --ics and --csv can write to stdout")
	}

	if icsPath != "" {
		if err := r.RenderICS(candidates, icsPath); err != nil {
			return fmt.Errorf("render ICS: %w", err)
		}
		if icsPath != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote ICS: %s\n", icsPath)
		}
	}

	if csvPath != "" {
		if err := r.RenderCSV(candidates, csvPath); err != nil {
			return fmt.Errorf("render CSV: %w", err)
		}
		if csvPath != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote CSV: %s\n", csvPath)
		}
	}

	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
