package model

import "regexp"

// Category classifies the graded item a deadline belongs to
type Category string

const (
	CategoryMidterm    Category = "midterm"
	CategoryFinal      Category = "final"
	CategoryQuiz       Category = "quiz"
	CategoryAssignment Category = "assignment"
	CategoryLab        Category = "lab"
	CategoryProject    Category = "project"
	CategoryReading    Category = "reading"
	CategoryOther      Category = "other"
)

// Categories lists every category in keyword-table order
var Categories = []Category{
	CategoryMidterm,
	CategoryFinal,
	CategoryQuiz,
	CategoryAssignment,
	CategoryLab,
	CategoryProject,
	CategoryReading,
	CategoryOther,
}

// Flags attached to date matches and candidates
const (
	FlagYearMissing       = "year_missing_assumed_default"
	FlagAmbiguousSlash    = "ambiguous_slash_format"
	FlagSlashDayMonth     = "slash_format_interpreted_as_dd_mm"
	FlagNoDeadlineKeyword = "no_deadline_keyword_in_chunk"
	FlagLowConfidence     = "low_confidence"
	FlagConditionalEvent  = "conditional_event"
	FlagManualEntry       = "manual_entry"
)

// Confidence thresholds. Acceptance and the low-confidence advisory are independent.
const (
	AcceptThreshold        = 40
	LowConfidenceThreshold = 55
	DeletedConfidence      = -1
)

var (
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	time24hPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// DeadlineCandidate is one proposed deadline pending human acceptance
type DeadlineCandidate struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Category   Category `json:"type"`
	ISODate    string   `json:"date_iso"`           // YYYY-MM-DD
	Time24h    string   `json:"time_24h,omitempty"` // HH:MM, empty for all-day
	Confidence int      `json:"confidence"`         // 0..100, -1 when soft-deleted
	Evidence   Evidence `json:"evidence"`
	Flags      []string `json:"flags"`
}

// HasFlag reports whether the candidate carries the given flag
func (c DeadlineCandidate) HasFlag(flag string) bool {
	for _, f := range c.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// HasValidDate reports whether ISODate is strictly YYYY-MM-DD
func (c DeadlineCandidate) HasValidDate() bool {
	return IsISODate(c.ISODate)
}

// HasValidTime reports whether Time24h is strictly HH:MM
func (c DeadlineCandidate) HasValidTime() bool {
	return time24hPattern.MatchString(c.Time24h)
}

// Deleted reports whether the candidate was soft-deleted
func (c DeadlineCandidate) Deleted() bool {
	return c.Confidence < 0
}

// IsISODate reports whether s has the strict YYYY-MM-DD shape
func IsISODate(s string) bool {
	return isoDatePattern.MatchString(s)
}
