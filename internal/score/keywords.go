package score

import (
	"sort"
	"strings"

	"github.com/ppiankov/panicbutton/internal/model"
)

// keywordBucket lists the surface forms that signal one category
type keywordBucket struct {
	category model.Category
	words    []string
}

// keywordTable is scanned bucket by bucket, word by word. The order decides hit order on equal offsets.
var keywordTable = []keywordBucket{
	{model.CategoryMidterm, []string{"midterm", "mid-term"}},
	{model.CategoryFinal, []string{"final", "final exam", "deferred final", "make-up final"}},
	{model.CategoryQuiz, []string{"quiz", "test"}},
	{model.CategoryAssignment, []string{"assignment", "hw", "homework", "problem set", "pset"}},
	{model.CategoryLab, []string{"lab", "laboratory"}},
	{model.CategoryProject, []string{"project", "presentation", "proposal"}},
	{model.CategoryReading, []string{"reading", "read", "chapter"}},
}

var (
	strongSignals = []string{"due", "deadline", "submit", "submission", "by"}
	weightSignals = []string{"weight", "%", "worth"}
)

// KeywordHit is one occurrence of a category keyword in a chunk
type KeywordHit struct {
	Category model.Category
	Word     string
	Offset   int
}

// FindKeywordHits returns every (possibly overlapping) keyword occurrence in
// haystack, case-insensitive, ordered by offset. Equal offsets keep table order.
func FindKeywordHits(haystack string) []KeywordHit {
	lower := LowerASCII(haystack)
	var hits []KeywordHit

	for _, bucket := range keywordTable {
		for _, word := range bucket.words {
			from := 0
			for {
				idx := strings.Index(lower[from:], word)
				if idx < 0 {
					break
				}
				hits = append(hits, KeywordHit{Category: bucket.category, Word: word, Offset: from + idx})
				from += idx + len(word)
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Offset < hits[j].Offset
	})

	return hits
}

// LowerASCII lowercases A-Z only, byte by byte, so offsets in the result match the input
func LowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
