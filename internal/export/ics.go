// Package export serializes reviewed deadline candidates into calendar and tabular files.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/panicbutton/internal/model"
)

const (
	// ProductID identifies the generator in the VCALENDAR header
	ProductID = "-//PanicButton//Syllabus Deadlines//EN"

	// UIDDomain is appended to candidate ids to form event UIDs
	UIDDomain = "panicbutton.local"

	foldLimit = 75
	crlf      = "\r\n"

	icsDate     = "20060102"
	icsDateTime = "20060102T150405"
	icsStamp    = "20060102T150405Z"
)

var icsEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	",", `\,`,
	";", `\;`,
)

// CalendarBuilder renders iCalendar documents
type CalendarBuilder struct {
	now func() time.Time
}

// NewCalendarBuilder creates a builder stamping documents with the current time
func NewCalendarBuilder() *CalendarBuilder {
	return &CalendarBuilder{now: time.Now}
}

// WithClock replaces the generation clock
func (b *CalendarBuilder) WithClock(now func() time.Time) *CalendarBuilder {
	b.now = now
	return b
}

// BuildCalendarDocument renders candidates with the current time as DTSTAMP
func BuildCalendarDocument(candidates []model.DeadlineCandidate) string {
	return NewCalendarBuilder().Build(candidates)
}

// Build renders one VEVENT per exportable candidate. Candidates with a
// non-strict date or negative confidence are skipped. CRLF line endings,
// every line folded at 75 characters.
func (b *CalendarBuilder) Build(candidates []model.DeadlineCandidate) string {
	stamp := b.now().UTC().Format(icsStamp)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProductID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}

	for _, c := range candidates {
		if !Exportable(c) {
			continue
		}
		lines = append(lines, eventLines(c, stamp)...)
	}

	lines = append(lines, "END:VCALENDAR")

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(FoldLine(line))
		sb.WriteString(crlf)
	}
	return sb.String()
}

// Exportable reports whether a candidate belongs in an exported file
func Exportable(c model.DeadlineCandidate) bool {
	return c.HasValidDate() && c.Confidence >= 0
}

// eventLines renders one VEVENT block
func eventLines(c model.DeadlineCandidate, stamp string) []string {
	year, month, day := splitISODate(c.ISODate)
	date := c.ISODate[0:4] + c.ISODate[5:7] + c.ISODate[8:10]

	lines := []string{
		"BEGIN:VEVENT",
		"UID:" + EscapeText(c.ID+"@"+UIDDomain),
		"DTSTAMP:" + stamp,
	}

	if c.Time24h != "" && c.HasValidTime() {
		hour, minute := splitTime(c.Time24h)
		// Floating local time; UTC here only supplies plain calendar arithmetic
		end := time.Date(year, time.Month(month), day, hour, minute+60, 0, 0, time.UTC)
		lines = append(lines,
			fmt.Sprintf("DTSTART:%sT%02d%02d00", date, hour, minute),
			"DTEND:"+end.Format(icsDateTime),
		)
	} else {
		next := time.Date(year, time.Month(month), day+1, 0, 0, 0, 0, time.UTC)
		lines = append(lines,
			"DTSTART;VALUE=DATE:"+date,
			"DTEND;VALUE=DATE:"+next.Format(icsDate),
		)
	}

	lines = append(lines,
		"SUMMARY:"+EscapeText(summary(c)),
		"DESCRIPTION:"+EscapeText(description(c)),
		"TRANSP:TRANSPARENT",
		"END:VEVENT",
	)

	return lines
}

func summary(c model.DeadlineCandidate) string {
	title := c.Title
	if title == "" {
		title = "Deadline"
	}
	return fmt.Sprintf("%s (%s)", title, c.Category)
}

// description lists the key facts, one labeled line each, skipping empty fields
func description(c model.DeadlineCandidate) string {
	parts := []string{
		"Type: " + string(c.Category),
		"Confidence: " + strconv.Itoa(c.Confidence),
	}
	if len(c.Flags) > 0 {
		parts = append(parts, "Flags: "+strings.Join(c.Flags, ", "))
	}
	if c.Time24h != "" {
		parts = append(parts, "Time: "+c.Time24h)
	}
	if c.Evidence.MatchedDateText != "" {
		parts = append(parts, "Matched date text: "+c.Evidence.MatchedDateText)
	}
	if len(c.Evidence.MatchedKeywords) > 0 {
		parts = append(parts, "Matched keywords: "+strings.Join(c.Evidence.MatchedKeywords, ", "))
	}
	if c.Evidence.Snippet != "" {
		parts = append(parts, "Snippet: "+c.Evidence.Snippet)
	}
	return strings.Join(parts, "\n")
}

// EscapeText escapes backslash, newline, comma and semicolon for iCalendar TEXT values
func EscapeText(s string) string {
	return icsEscaper.Replace(s)
}

// FoldLine splits a line longer than 75 characters into 75-character pieces
// joined by CRLF and a single space. Characters are runes, so a fold never
// splits a UTF-8 sequence.
func FoldLine(line string) string {
	if utf8.RuneCountInString(line) <= foldLimit {
		return line
	}

	var sb strings.Builder
	count := 0
	for _, r := range line {
		if count == foldLimit {
			sb.WriteString(crlf + " ")
			count = 0
		}
		sb.WriteRune(r)
		count++
	}
	return sb.String()
}

// splitISODate reads the numeric fields of a YYYY-MM-DD string already checked by Exportable
func splitISODate(iso string) (int, int, int) {
	year, _ := strconv.Atoi(iso[0:4])
	month, _ := strconv.Atoi(iso[5:7])
	day, _ := strconv.Atoi(iso[8:10])
	return year, month, day
}

// splitTime reads HH:MM already checked by HasValidTime
func splitTime(hhmm string) (int, int) {
	hour, _ := strconv.Atoi(hhmm[0:2])
	minute, _ := strconv.Atoi(hhmm[3:5])
	return hour, minute
}
