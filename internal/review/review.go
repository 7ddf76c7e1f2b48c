// Package review holds the human review state layered over an extraction:
// manual entries, field edits, soft deletion and display filtering.
// Nothing here mutates the extraction result it was created from.
package review

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/panicbutton/internal/model"
)

// ErrNotFound is returned when an id matches no candidate
var ErrNotFound = errors.New("candidate not found")

// DefaultMinConfidence is the display threshold used when none is configured
const DefaultMinConfidence = 45

// NewManualCandidate creates a user-entered deadline on isoDate
func NewManualCandidate(isoDate string) model.DeadlineCandidate {
	return model.DeadlineCandidate{
		ID:         "manual_" + uuid.NewString(),
		Title:      "Manual deadline",
		Category:   model.CategoryOther,
		ISODate:    isoDate,
		Confidence: 100,
		Flags:      []string{model.FlagManualEntry},
		Evidence: model.Evidence{
			Snippet:         "Manually added by user",
			MatchedKeywords: []string{},
		},
	}
}

// Patch is a partial edit; nil fields are left unchanged
type Patch struct {
	Title      *string         `json:"title,omitempty"`
	Category   *model.Category `json:"type,omitempty"`
	ISODate    *string         `json:"date_iso,omitempty"`
	Time24h    *string         `json:"time_24h,omitempty"`
	Confidence *int            `json:"confidence,omitempty"`
	Flags      []string        `json:"flags,omitempty"`
}

// apply returns c with the patch applied
func (p Patch) apply(c model.DeadlineCandidate) model.DeadlineCandidate {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.ISODate != nil {
		c.ISODate = *p.ISODate
	}
	if p.Time24h != nil {
		c.Time24h = *p.Time24h
	}
	if p.Confidence != nil {
		c.Confidence = *p.Confidence
	}
	if p.Flags != nil {
		c.Flags = append([]string(nil), p.Flags...)
	}
	return c
}

// merge layers b over p, field by field
func (p Patch) merge(b Patch) Patch {
	if b.Title != nil {
		p.Title = b.Title
	}
	if b.Category != nil {
		p.Category = b.Category
	}
	if b.ISODate != nil {
		p.ISODate = b.ISODate
	}
	if b.Time24h != nil {
		p.Time24h = b.Time24h
	}
	if b.Confidence != nil {
		p.Confidence = b.Confidence
	}
	if b.Flags != nil {
		p.Flags = b.Flags
	}
	return p
}

// Session is the review state for one extraction
type Session struct {
	extracted []model.DeadlineCandidate
	manual    []model.DeadlineCandidate
	edits     map[string]Patch
}

// NewSession starts reviewing the candidates of one extraction
func NewSession(result model.ExtractionResult) *Session {
	return &Session{
		extracted: append([]model.DeadlineCandidate(nil), result.Candidates...),
		edits:     make(map[string]Patch),
	}
}

// AddManual appends a manual candidate and returns it
func (s *Session) AddManual(isoDate string) model.DeadlineCandidate {
	c := NewManualCandidate(isoDate)
	s.manual = append(s.manual, c)
	return c
}

// Edit records a patch for id
func (s *Session) Edit(id string, patch Patch) error {
	if !s.has(id) {
		return ErrNotFound
	}
	s.edits[id] = s.edits[id].merge(patch)
	return nil
}

// Remove drops a manual candidate outright and soft-deletes an extracted one
func (s *Session) Remove(id string) error {
	if !s.has(id) {
		return ErrNotFound
	}
	for i, c := range s.manual {
		if c.ID == id {
			s.manual = append(s.manual[:i:i], s.manual[i+1:]...)
			delete(s.edits, id)
			return nil
		}
	}
	deleted := model.DeletedConfidence
	s.edits[id] = s.edits[id].merge(Patch{Confidence: &deleted})
	return nil
}

// Candidates returns extracted then manual candidates with edits applied
func (s *Session) Candidates() []model.DeadlineCandidate {
	out := make([]model.DeadlineCandidate, 0, len(s.extracted)+len(s.manual))
	for _, c := range s.extracted {
		out = append(out, s.edits[c.ID].apply(c))
	}
	for _, c := range s.manual {
		out = append(out, s.edits[c.ID].apply(c))
	}
	return out
}

func (s *Session) has(id string) bool {
	for _, c := range s.extracted {
		if c.ID == id {
			return true
		}
	}
	for _, c := range s.manual {
		if c.ID == id {
			return true
		}
	}
	return false
}

// SortOrder selects the display order
type SortOrder string

const (
	SortDateAsc        SortOrder = "date-asc"
	SortDateDesc       SortOrder = "date-desc"
	SortConfidenceDesc SortOrder = "confidence-desc"
)

// ParseSortOrder validates a sort order name; empty means date-asc
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "", SortDateAsc:
		return SortDateAsc, nil
	case SortDateDesc, SortConfidenceDesc:
		return SortOrder(s), nil
	default:
		return "", errors.New("unknown sort order " + s + " (supported: date-asc, date-desc, confidence-desc)")
	}
}

// Filter narrows and orders candidates for display or export
type Filter struct {
	MinConfidence int
	Query         string
	Sort          SortOrder
}

// Apply returns a filtered, sorted copy. Soft-deleted candidates never pass.
func (f Filter) Apply(candidates []model.DeadlineCandidate) []model.DeadlineCandidate {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]model.DeadlineCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Deleted() || c.Confidence < f.MinConfidence {
			continue
		}
		if query != "" {
			haystack := strings.ToLower(strings.Join(nonEmpty(c.Title, c.ISODate, string(c.Category)), " "))
			if !strings.Contains(haystack, query) {
				continue
			}
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch f.Sort {
		case SortConfidenceDesc:
			return out[i].Confidence > out[j].Confidence
		case SortDateDesc:
			return out[i].ISODate > out[j].ISODate
		default:
			return out[i].ISODate < out[j].ISODate
		}
	})

	return out
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
