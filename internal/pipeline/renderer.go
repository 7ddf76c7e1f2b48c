package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/panicbutton/internal/export"
	"github.com/ppiankov/panicbutton/internal/model"
	"github.com/ppiankov/panicbutton/internal/review"
)

// Renderer writes reports to files and summaries to a terminal
type Renderer struct {
	out      io.Writer
	calendar *export.CalendarBuilder
}

// NewRenderer creates a renderer printing summaries to out
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:      out,
		calendar: export.NewCalendarBuilder(),
	}
}

// WithCalendar replaces the ICS builder, mainly to pin DTSTAMP
func (r *Renderer) WithCalendar(b *export.CalendarBuilder) *Renderer {
	r.calendar = b
	return r
}

// RenderJSON writes the full report as indented JSON. Every Render* method
// treats the path "-" as the renderer's output.
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return r.write(path, append(data, '\n'))
}

// RenderICS writes an iCalendar file for candidates
func (r *Renderer) RenderICS(candidates []model.DeadlineCandidate, path string) error {
	return r.write(path, []byte(r.calendar.Build(candidates)))
}

// RenderCSV writes the tabular export for candidates
func (r *Renderer) RenderCSV(candidates []model.DeadlineCandidate, path string) error {
	return r.write(path, []byte(export.BuildCSV(candidates)))
}

// RenderSummary prints stats and the candidates that pass filter
func (r *Renderer) RenderSummary(report *model.Report, filter review.Filter) {
	stats := report.Extraction.Stats
	shown := filter.Apply(report.Extraction.Candidates)

	fmt.Fprintf(r.out, "\nSource: %s (%d page%s)\n", report.Source, report.Pages, plural(report.Pages))
	fmt.Fprintf(r.out, "Dates found: %d  Candidates: %d  Low confidence: %d\n",
		stats.TotalDatesFound, stats.CandidatesEmitted, stats.LowConfidenceCount)

	if len(shown) == 0 {
		fmt.Fprintf(r.out, "No deadlines at confidence >= %d\n", filter.MinConfidence)
		return
	}

	fmt.Fprintf(r.out, "\n")
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTIME\tTYPE\tCONF\tTITLE\tFLAGS")
	for _, c := range shown {
		t := c.Time24h
		if t == "" {
			t = "all day"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			c.ISODate, t, c.Category, c.Confidence, c.Title, strings.Join(c.Flags, ","))
	}
	_ = tw.Flush()

	if hidden := stats.CandidatesEmitted - len(shown); hidden > 0 && filter.Query == "" {
		fmt.Fprintf(r.out, "\n%d more below confidence %d (use --min-confidence to show)\n", hidden, filter.MinConfidence)
	}
}

// LoadReport reads a report written by RenderJSON. A bare extraction result
// ({"candidates": ..., "stats": ...}) is accepted too.
func LoadReport(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	report := &model.Report{Source: path}
	if _, ok := probe["extraction"]; ok {
		err = json.Unmarshal(data, report)
	} else {
		err = json.Unmarshal(data, &report.Extraction)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return report, nil
}

// write saves data to path; "-" writes to the renderer's output instead
func (r *Renderer) write(path string, data []byte) error {
	if path == "-" {
		_, err := r.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
