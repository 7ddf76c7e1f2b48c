package extract

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/panicbutton/internal/model"
	"github.com/ppiankov/panicbutton/internal/score"
)

const (
	snippetRadius      = 120
	conditionalPenalty = 15
	dedupeWindow       = 5
)

var (
	assignmentTitle = regexp.MustCompile(`(?i)\bassignment\s*(\d{1,2})\b`)
	quizTitle       = regexp.MustCompile(`(?i)\bquiz\s*(\d{1,2})\b`)
	hwWord          = regexp.MustCompile(`\bhw\b`)

	time24Pattern = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	time12Pattern = regexp.MustCompile(`@?\s*\b(1[0-2]|0?[1-9])(?::([0-5]\d))?\s*(am|pm)\b`)

	conditionalPhrases = []string{"if granted", "deferred", "make-up", "make up"}
)

// fixedTitles labels categories that carry no item number
var fixedTitles = map[model.Category]string{
	model.CategoryMidterm: "Midterm",
	model.CategoryFinal:   "Final Exam",
	model.CategoryLab:     "Lab",
	model.CategoryProject: "Project",
	model.CategoryReading: "Reading",
}

// Extractor assembles deadline candidates from plain syllabus text
type Extractor struct {
	scorer *score.Scorer
}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{scorer: score.NewScorer()}
}

// Extract runs the full pipeline over rawText. Dates without a year are
// placed in defaultYear. The result depends only on the two arguments.
func (e *Extractor) Extract(rawText string, defaultYear int) model.ExtractionResult {
	text := NormalizeNewlines(rawText)
	matches := NewDateMatcher(defaultYear).FindDateMatches(text)

	candidates := make([]model.DeadlineCandidate, 0, len(matches))
	for _, dm := range matches {
		if !dm.Valid() {
			continue
		}
		if c, ok := e.assemble(text, dm); ok {
			candidates = append(candidates, c)
		}
	}

	candidates = dedupe(candidates)
	sortCandidates(candidates)

	return model.ExtractionResult{
		Candidates: candidates,
		Stats: model.Stats{
			TotalDatesFound:    len(matches),
			CandidatesEmitted:  len(candidates),
			LowConfidenceCount: countLowConfidence(candidates),
		},
	}
}

// assemble builds the candidate for one valid date match, or reports false when it is rejected
func (e *Extractor) assemble(text string, dm model.DateMatch) (model.DeadlineCandidate, bool) {
	chunk := Segment(text, dm.StartOffset, dm.Raw)

	scored := e.scorer.Score(score.Input{
		ChunkText:  chunk.Text,
		DateOffset: chunk.DateOffset,
		Hits:       score.FindKeywordHits(chunk.Text),
		DateFlags:  dm.Flags,
	})

	category := InferCategory(chunk.Text)
	if category == model.CategoryOther {
		category = scored.CategoryGuess
	}

	if scored.Confidence < model.AcceptThreshold || contains(scored.Flags, model.FlagNoDeadlineKeyword) {
		return model.DeadlineCandidate{}, false
	}

	flags := scored.Flags
	confidence := scored.Confidence
	if IsConditional(chunk.Text) {
		flags = append(flags, model.FlagConditionalEvent)
		confidence = max(0, confidence-conditionalPenalty)
	}

	return model.DeadlineCandidate{
		ID:         CandidateID(dm.ISODate, category, dm.StartOffset),
		Title:      InferTitle(chunk.Text, category),
		Category:   category,
		ISODate:    dm.ISODate,
		Time24h:    ParseTime24h(chunk.Text),
		Confidence: confidence,
		Evidence: model.Evidence{
			Snippet:         Snippet(text, dm.StartOffset, dm.EndOffset),
			Context:         chunk.Text,
			StartOffset:     dm.StartOffset,
			EndOffset:       dm.EndOffset,
			MatchedDateText: dm.Raw,
			MatchedKeywords: scored.MatchedKeywords,
		},
		Flags: uniqueFlags(flags),
	}, true
}

// NormalizeNewlines converts CRLF line endings to LF
func NormalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// InferCategory reads the category straight from a chunk's own vocabulary.
// Checks run in priority order; "other" means nothing matched.
func InferCategory(chunk string) model.Category {
	s := score.LowerASCII(chunk)
	switch {
	case strings.Contains(s, "midterm") || strings.Contains(s, "mid-term"):
		return model.CategoryMidterm
	case strings.Contains(s, "final"):
		return model.CategoryFinal
	case strings.Contains(s, "assignment") || strings.Contains(s, "homework") || hwWord.MatchString(s):
		return model.CategoryAssignment
	case strings.Contains(s, "quiz"):
		return model.CategoryQuiz
	case strings.Contains(s, "lab"):
		return model.CategoryLab
	case strings.Contains(s, "project") || strings.Contains(s, "proposal") || strings.Contains(s, "presentation"):
		return model.CategoryProject
	case strings.Contains(s, "reading") || strings.Contains(s, "chapter"):
		return model.CategoryReading
	default:
		return model.CategoryOther
	}
}

// InferTitle names the item: numbered assignment or quiz first, then a per-category label
func InferTitle(chunk string, category model.Category) string {
	if m := assignmentTitle.FindStringSubmatch(chunk); m != nil {
		return "Assignment " + m[1]
	}
	if m := quizTitle.FindStringSubmatch(chunk); m != nil {
		return "Quiz " + m[1]
	}
	if title, ok := fixedTitles[category]; ok {
		return title
	}
	return "Deadline"
}

// IsConditional reports whether the chunk describes a policy-contingent date
func IsConditional(chunk string) bool {
	s := score.LowerASCII(chunk)
	for _, phrase := range conditionalPhrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

// ParseTime24h finds the first time of day in chunk and returns it as zero-padded HH:MM.
// 24-hour times take precedence over 12-hour ones; "" means all-day.
func ParseTime24h(chunk string) string {
	s := score.LowerASCII(chunk)

	if m := time24Pattern.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%02d:%s", atoi(m[1]), m[2])
	}

	if m := time12Pattern.FindStringSubmatch(s); m != nil {
		hour := atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute = atoi(m[2])
		}
		switch {
		case m[3] == "pm" && hour != 12:
			hour += 12
		case m[3] == "am" && hour == 12:
			hour = 0
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}

	return ""
}

// Snippet returns a whitespace-collapsed window of snippetRadius bytes on each side of [start, end).
// Window edges are moved inward to rune boundaries.
func Snippet(text string, start, end int) string {
	from := max(0, start-snippetRadius)
	for from < start && !utf8.RuneStart(text[from]) {
		from++
	}

	to := min(len(text), end+snippetRadius)
	for to > end && to < len(text) && !utf8.RuneStart(text[to]) {
		to--
	}

	return strings.Join(strings.Fields(text[from:to]), " ")
}

// CandidateID hashes (isoDate, category, start) with 32-bit FNV-1a.
// Identical text always yields identical ids.
func CandidateID(isoDate string, category model.Category, start int) string {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s|%s|%d", isoDate, category, start)
	return fmt.Sprintf("cand_%08x", h.Sum32())
}

// dedupe drops a candidate when any earlier one has the same date and a start offset within dedupeWindow
func dedupe(candidates []model.DeadlineCandidate) []model.DeadlineCandidate {
	kept := make([]model.DeadlineCandidate, 0, len(candidates))
	for i, c := range candidates {
		duplicate := false
		for _, earlier := range candidates[:i] {
			if earlier.ISODate == c.ISODate && abs(earlier.Evidence.StartOffset-c.Evidence.StartOffset) < dedupeWindow {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
		}
	}
	return kept
}

// sortCandidates orders by date ascending, then confidence descending
func sortCandidates(candidates []model.DeadlineCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ISODate != candidates[j].ISODate {
			return candidates[i].ISODate < candidates[j].ISODate
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})
}

func countLowConfidence(candidates []model.DeadlineCandidate) int {
	n := 0
	for _, c := range candidates {
		if c.Confidence < model.LowConfidenceThreshold {
			n++
		}
	}
	return n
}

// uniqueFlags removes repeated flags, keeping first occurrence order
func uniqueFlags(flags []string) []string {
	seen := make(map[string]bool, len(flags))
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
