package score

import (
	"strings"

	"github.com/ppiankov/panicbutton/internal/model"
)

// Score weights
const (
	baseScore           = 25
	strongSignalBonus   = 8
	weightSignalBonus   = 6
	keywordPresentBonus = 22
	nearKeywordBonus    = 28 // closest keyword within nearDistance
	midKeywordBonus     = 18 // closest keyword within midDistance
	farKeywordBonus     = 8
	noKeywordPenalty    = 15
	ambiguousPenalty    = 18

	nearDistance = 30
	midDistance  = 80
)

// Input is everything the scorer looks at for one chunk
type Input struct {
	ChunkText  string
	DateOffset int          // Date start in chunk coordinates
	Hits       []KeywordHit // From FindKeywordHits(ChunkText)
	DateFlags  []string
}

// Adjustment is one transparent contribution to the final score
type Adjustment struct {
	Reason string `json:"reason"`
	Delta  int    `json:"delta"`
}

// Result is the scorer's verdict on one chunk
type Result struct {
	Confidence      int
	Flags           []string // Date flags first, then scorer flags
	MatchedKeywords []string
	CategoryGuess   model.Category
	Breakdown       []Adjustment
}

// Scorer computes 0-100 confidence that a dated chunk is a graded deadline
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates one chunk
func (s *Scorer) Score(in Input) Result {
	lower := LowerASCII(in.ChunkText)
	flags := append([]string(nil), in.DateFlags...)

	score := baseScore
	breakdown := []Adjustment{{Reason: "base", Delta: baseScore}}
	add := func(reason string, delta int) {
		score += delta
		breakdown = append(breakdown, Adjustment{Reason: reason, Delta: delta})
	}

	// 1. Strong and weight signal words, each counted once
	for _, w := range strongSignals {
		if strings.Contains(lower, w) {
			add("signal:"+w, strongSignalBonus)
		}
	}
	for _, w := range weightSignals {
		if strings.Contains(lower, w) {
			add("weight:"+w, weightSignalBonus)
		}
	}

	// 2. Closest keyword decides the category guess; first found wins a tie
	guess := model.CategoryOther
	bestDistance := -1
	for _, hit := range in.Hits {
		d := abs(hit.Offset - in.DateOffset)
		if bestDistance < 0 || d < bestDistance {
			bestDistance = d
			guess = hit.Category
		}
	}

	// 3. Keyword presence and proximity
	if len(in.Hits) > 0 {
		add("keyword", keywordPresentBonus)
		switch {
		case bestDistance <= nearDistance:
			add("proximity:near", nearKeywordBonus)
		case bestDistance <= midDistance:
			add("proximity:mid", midKeywordBonus)
		default:
			add("proximity:far", farKeywordBonus)
		}
	} else {
		flags = append(flags, model.FlagNoDeadlineKeyword)
		add("no_keyword", -noKeywordPenalty)
	}

	// 4. Ambiguous slash dates
	if contains(in.DateFlags, model.FlagAmbiguousSlash) {
		add("ambiguous_date", -ambiguousPenalty)
	}

	score = Clamp(score)
	if score < model.LowConfidenceThreshold {
		flags = append(flags, model.FlagLowConfidence)
	}

	return Result{
		Confidence:      score,
		Flags:           flags,
		MatchedKeywords: matchedKeywords(in.Hits, guess),
		CategoryGuess:   guess,
		Breakdown:       breakdown,
	}
}

// Clamp bounds a score to [0, 100]
func Clamp(score int) int {
	return max(0, min(100, score))
}

// matchedKeywords returns the distinct surface forms of category, in hit order
func matchedKeywords(hits []KeywordHit, category model.Category) []string {
	seen := make(map[string]bool)
	words := []string{}
	for _, hit := range hits {
		if hit.Category != category || seen[hit.Word] {
			continue
		}
		seen[hit.Word] = true
		words = append(words, hit.Word)
	}
	return words
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
