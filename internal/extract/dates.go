package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/panicbutton/internal/model"
)

// Year bounds accepted by the ISO conversion
const (
	MinYear = 1900
	MaxYear = 2100
)

const monthAlternation = `(Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

// months maps every recognized month spelling (lowercase) to its number
var months = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// dateShape tags which textual form a pattern recognizes
type dateShape int

const (
	shapeMonthFirst dateShape = iota // "February 7, 2026", "Feb 7"
	shapeDayFirst                    // "7 February 2026", "7 Feb"
	shapeISO                         // "2026-02-07"
	shapeSlash                       // "2/7/2026", "02/07/26"
)

type datePattern struct {
	shape dateShape
	regex *regexp.Regexp
}

// datePatterns are applied in this order; the order only matters for the stable overlap sort
var datePatterns = []datePattern{
	{shapeMonthFirst, regexp.MustCompile(`(?i)\b` + monthAlternation + `\s+(\d{1,2})(?:,\s*(\d{4}))?\b`)},
	{shapeDayFirst, regexp.MustCompile(`(?i)\b(\d{1,2})\s+` + monthAlternation + `(?:\s+(\d{4}))?\b`)},
	{shapeISO, regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)},
	{shapeSlash, regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)},
}

// DateMatcher finds date-shaped substrings and normalizes them to ISO dates
type DateMatcher struct {
	defaultYear int
}

// NewDateMatcher creates a matcher that fills missing years with defaultYear
func NewDateMatcher(defaultYear int) *DateMatcher {
	return &DateMatcher{defaultYear: defaultYear}
}

// FindDateMatches scans text with every date shape and returns the
// non-overlapping matches, earliest first, longer match winning a start tie.
func (m *DateMatcher) FindDateMatches(text string) []model.DateMatch {
	var all []model.DateMatch

	for _, p := range datePatterns {
		for _, loc := range p.regex.FindAllStringSubmatchIndex(text, -1) {
			all = append(all, m.convert(p.shape, text, loc))
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].StartOffset != all[j].StartOffset {
			return all[i].StartOffset < all[j].StartOffset
		}
		return len(all[i].Raw) > len(all[j].Raw)
	})

	kept := make([]model.DateMatch, 0, len(all))
	for _, match := range all {
		if len(kept) > 0 && match.StartOffset < kept[len(kept)-1].EndOffset {
			continue
		}
		kept = append(kept, match)
	}

	return kept
}

// convert turns one regex submatch into a DateMatch
func (m *DateMatcher) convert(shape dateShape, text string, loc []int) model.DateMatch {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	match := model.DateMatch{
		Raw:         text[loc[0]:loc[1]],
		StartOffset: loc[0],
		EndOffset:   loc[1],
	}

	switch shape {
	case shapeISO:
		match.ISODate = toISO(atoi(group(1)), atoi(group(2)), atoi(group(3)))

	case shapeSlash:
		a, b := atoi(group(1)), atoi(group(2))
		yearText := group(3)
		if len(yearText) == 2 {
			yearText = "20" + yearText
		}
		year := atoi(yearText)

		switch {
		case a <= 12 && b <= 12:
			match.Flags = append(match.Flags, model.FlagAmbiguousSlash)
			match.ISODate = toISO(year, a, b)
		case a > 12 && b <= 12:
			match.ISODate = toISO(year, b, a)
			match.Flags = append(match.Flags, model.FlagSlashDayMonth)
		default:
			match.ISODate = toISO(year, a, b)
		}

	case shapeMonthFirst, shapeDayFirst:
		monthText, dayText := group(1), group(2)
		if shape == shapeDayFirst {
			monthText, dayText = group(2), group(1)
		}

		year := m.defaultYear
		if yearText := group(3); yearText != "" {
			year = atoi(yearText)
		} else {
			match.Flags = append(match.Flags, model.FlagYearMissing)
		}

		month := months[strings.ToLower(strings.TrimSuffix(monthText, "."))]
		match.ISODate = toISO(year, month, atoi(dayText))
	}

	return match
}

// toISO bounds-checks the components and formats YYYY-MM-DD, or returns "" when out of range
func toISO(year, month, day int) string {
	if month < 1 || month > 12 {
		return ""
	}
	if day < 1 || day > 31 {
		return ""
	}
	if year < MinYear || year > MaxYear {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// atoi parses a regex digit group; the patterns guarantee digits only
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
