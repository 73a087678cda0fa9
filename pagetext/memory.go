package pagetext

import "github.com/hazyhaar/redact/learn"

// Memory is an in-memory provider backed by fixed per-page word lists.
// It backs engine tests and any session without an extractable document.
// The zero value is an empty zero-page document.
type Memory struct {
	Pages [][]Word
}

var (
	_ Provider = (*Memory)(nil)
	_ Document = (*Memory)(nil)
)

// Open returns the provider itself; there is no handle to acquire.
func (m *Memory) Open() (Document, error) { return m, nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// PageCount returns the number of configured pages.
func (m *Memory) PageCount() int { return len(m.Pages) }

// Words returns the words of one page, or nil for an out-of-range page.
func (m *Memory) Words(page int) []Word {
	if page < 0 || page >= len(m.Pages) {
		return nil
	}
	return m.Pages[page]
}

// LineSegments returns one segment per visually distinct line intersecting r.
func (m *Memory) LineSegments(page int, r Rect) []LineSegment {
	return segmentsFromWords(m.Words(page), r)
}

// TextUnder returns the raw text under r in reading order.
func (m *Memory) TextUnder(page int, r Rect) string {
	return textFromWords(m.Words(page), r)
}

// MatchKey returns the normalized text under r.
func (m *Memory) MatchKey(page int, r Rect) string {
	return learn.Normalize(m.TextUnder(page, r))
}
