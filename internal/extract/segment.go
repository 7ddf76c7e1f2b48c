package extract

import (
	"regexp"
	"strings"
)

// anchorPattern marks where one graded item starts within a syllabus line
var anchorPattern = regexp.MustCompile(`(?i)\b(assignment\s*\d+|assignment|midterm|final\s*exam|final|quiz\s*\d+|quiz|test|project|lab|homework|hw|exam)\b`)

// Chunk is a keyword-anchored sub-segment of one line
type Chunk struct {
	Text           string // Trimmed chunk text
	StartInLine    int    // Byte offset of the chunk within its line
	EndInLine      int    // Exclusive end within the line
	DateOffset     int    // Date start translated into chunk coordinates, clamped to [0, len(Text)]
	Line           string // Enclosing line
	LineStart      int    // Byte offset of the line within the full text
	FellBackToLine bool   // No chunk contained the date text
}

// lineAt returns the line containing offset and the line's start offset
func lineAt(text string, offset int) (string, int) {
	start := strings.LastIndexByte(text[:offset], '\n') + 1

	end := len(text)
	if idx := strings.IndexByte(text[offset:], '\n'); idx >= 0 {
		end = offset + idx
	}

	return text[start:end], start
}

// splitChunks splits a line at every anchor word. A line without anchors is one chunk.
func splitChunks(line string) []Chunk {
	locs := anchorPattern.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return []Chunk{{Text: strings.TrimSpace(line), StartInLine: 0, EndInLine: len(line)}}
	}

	chunks := make([]Chunk, 0, len(locs))
	for i, loc := range locs {
		start := loc[0]
		end := len(line)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		text := strings.TrimSpace(line[start:end])
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: text, StartInLine: start, EndInLine: end})
	}

	if len(chunks) == 0 {
		return []Chunk{{Text: strings.TrimSpace(line), StartInLine: 0, EndInLine: len(line)}}
	}

	return chunks
}

// Segment locates the chunk that a date match at dateStart belongs to.
// The first chunk containing dateRaw (case-insensitive) wins; otherwise the whole line is used.
func Segment(text string, dateStart int, dateRaw string) Chunk {
	line, lineStart := lineAt(text, dateStart)

	chosen := Chunk{Text: line, StartInLine: 0, EndInLine: len(line), FellBackToLine: true}
	needle := strings.ToLower(dateRaw)
	for _, c := range splitChunks(line) {
		if strings.Contains(strings.ToLower(c.Text), needle) {
			chosen = c
			break
		}
	}

	chosen.Line = line
	chosen.LineStart = lineStart

	offset := dateStart - lineStart - chosen.StartInLine
	chosen.DateOffset = max(0, min(len(chosen.Text), offset))

	return chosen
}
