package model

// Evidence is the original text surrounding a matched date, kept for human verification.
// Offsets are byte offsets into the newline-normalized input text.
type Evidence struct {
	Snippet         string   `json:"snippet"`           // ±120 byte window around the date, whitespace-collapsed
	Context         string   `json:"context"`           // Chunk text the scorer evaluated
	StartOffset     int      `json:"start_offset"`      // Start of the matched date text
	EndOffset       int      `json:"end_offset"`        // End of the matched date text (exclusive)
	MatchedDateText string   `json:"matched_date_text"` // Verbatim text[StartOffset:EndOffset]
	MatchedKeywords []string `json:"matched_keywords"`  // Keyword surface forms of the chosen category
}

// DateMatch is one recognized date-shaped substring of the input text
type DateMatch struct {
	Raw         string   `json:"raw"`
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
	ISODate     string   `json:"iso_date,omitempty"` // Empty when the components are out of calendar range
	Flags       []string `json:"flags,omitempty"`
}

// Valid reports whether the match normalized to a calendar date
func (m DateMatch) Valid() bool {
	return m.ISODate != ""
}
