package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/panicbutton/internal/model"
)

func TestScorer_Score_NearKeyword(t *testing.T) {
	chunk := "Quiz due 2026-02-07"
	result := NewScorer().Score(Input{
		ChunkText:  chunk,
		DateOffset: 9,
		Hits:       FindKeywordHits(chunk),
	})

	assert.Equal(t, 83, result.Confidence)
	assert.Equal(t, model.CategoryQuiz, result.CategoryGuess)
	assert.Equal(t, []string{"quiz"}, result.MatchedKeywords)
	assert.Empty(t, result.Flags)

	require.NotEmpty(t, result.Breakdown)
	assert.Equal(t, Adjustment{Reason: "base", Delta: 25}, result.Breakdown[0])

	total := 0
	for _, adj := range result.Breakdown {
		total += adj.Delta
	}
	assert.Equal(t, 83, total)
}

func TestScorer_Score_Proximity(t *testing.T) {
	tests := []struct {
		name       string
		dateOffset int
		want       int
		low        bool
	}{
		{"adjacent", 5, 75, false},
		{"near edge", 30, 75, false},
		{"mid", 50, 65, false},
		{"mid edge", 80, 65, false},
		{"far", 100, 55, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewScorer().Score(Input{
				ChunkText:  "Quiz",
				DateOffset: tt.dateOffset,
				Hits:       []KeywordHit{{Category: model.CategoryQuiz, Word: "quiz", Offset: 0}},
			})
			assert.Equal(t, tt.want, result.Confidence)
			assert.Equal(t, tt.low, contains(result.Flags, model.FlagLowConfidence))
		})
	}
}

func TestScorer_Score_NoKeyword(t *testing.T) {
	result := NewScorer().Score(Input{ChunkText: "2026-02-07", DateOffset: 0})

	assert.Equal(t, 10, result.Confidence)
	assert.Equal(t, model.CategoryOther, result.CategoryGuess)
	assert.Equal(t, []string{model.FlagNoDeadlineKeyword, model.FlagLowConfidence}, result.Flags)
	assert.Empty(t, result.MatchedKeywords)
	assert.NotNil(t, result.MatchedKeywords)
}

func TestScorer_Score_AmbiguousSlash(t *testing.T) {
	result := NewScorer().Score(Input{
		ChunkText:  "Lab",
		DateOffset: 4,
		Hits:       []KeywordHit{{Category: model.CategoryLab, Word: "lab", Offset: 0}},
		DateFlags:  []string{model.FlagAmbiguousSlash},
	})

	assert.Equal(t, 57, result.Confidence)
	assert.Equal(t, []string{model.FlagAmbiguousSlash}, result.Flags)
}

func TestScorer_Score_SignalsCountedOnce(t *testing.T) {
	chunk := "due due due worth worth"
	result := NewScorer().Score(Input{ChunkText: chunk})

	// base 25, due 8, worth 6, no keyword -15
	assert.Equal(t, 24, result.Confidence)
}

func TestScorer_Score_TieKeepsFirstHit(t *testing.T) {
	result := NewScorer().Score(Input{
		ChunkText:  "quiz and lab",
		DateOffset: 10,
		Hits: []KeywordHit{
			{Category: model.CategoryQuiz, Word: "quiz", Offset: 0},
			{Category: model.CategoryLab, Word: "lab", Offset: 20},
		},
	})

	assert.Equal(t, model.CategoryQuiz, result.CategoryGuess)
	assert.Equal(t, []string{"quiz"}, result.MatchedKeywords)
}

func TestScorer_Score_MatchedKeywordsDistinct(t *testing.T) {
	chunk := "HW 1 and homework, hw again"
	result := NewScorer().Score(Input{ChunkText: chunk, DateOffset: 0, Hits: FindKeywordHits(chunk)})

	assert.Equal(t, model.CategoryAssignment, result.CategoryGuess)
	assert.Equal(t, []string{"hw", "homework"}, result.MatchedKeywords)
}

func TestScorer_Score_DoesNotMutateDateFlags(t *testing.T) {
	dateFlags := make([]string, 1, 4)
	dateFlags[0] = model.FlagYearMissing

	_ = NewScorer().Score(Input{ChunkText: "x", DateFlags: dateFlags})

	assert.Equal(t, []string{model.FlagYearMissing}, dateFlags)
	assert.Equal(t, "", dateFlags[:2][1])
}

func TestFindKeywordHits(t *testing.T) {
	hits := FindKeywordHits("Read Chapter 3 before the LAB")

	require.Len(t, hits, 3)
	assert.Equal(t, KeywordHit{Category: model.CategoryReading, Word: "read", Offset: 0}, hits[0])
	assert.Equal(t, KeywordHit{Category: model.CategoryReading, Word: "chapter", Offset: 5}, hits[1])
	assert.Equal(t, KeywordHit{Category: model.CategoryLab, Word: "lab", Offset: 26}, hits[2])
}

func TestFindKeywordHits_OverlappingFormsKeepTableOrder(t *testing.T) {
	hits := FindKeywordHits("Final exam")

	require.Len(t, hits, 2)
	assert.Equal(t, "final", hits[0].Word)
	assert.Equal(t, "final exam", hits[1].Word)
	assert.Equal(t, 0, hits[1].Offset)
}

func TestFindKeywordHits_Empty(t *testing.T) {
	assert.Empty(t, FindKeywordHits(""))
	assert.Empty(t, FindKeywordHits("office hours 2026-02-07"))
}

func TestLowerASCII(t *testing.T) {
	assert.Equal(t, "quiz 1", LowerASCII("QuIZ 1"))

	in := "ÉCOLE Quiz"
	out := LowerASCII(in)
	assert.Equal(t, "École quiz", out)
	assert.Len(t, out, len(in))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-20))
	assert.Equal(t, 0, Clamp(0))
	assert.Equal(t, 55, Clamp(55))
	assert.Equal(t, 100, Clamp(100))
	assert.Equal(t, 100, Clamp(123))
}
