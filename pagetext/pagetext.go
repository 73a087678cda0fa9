// CLAUDE:SUMMARY Geometry/text provider contract: page count, positioned words, line segmentation and text lookup under a rectangle.
// Package pagetext supplies the document-side collaborators of the redaction
// engine: page counts, per-word geometry in reading order, and line-segmented
// text under an arbitrary rectangle.
//
// Providers open the underlying document per call site and release it as soon
// as the caller is done; a failed open is reported as an error exactly once,
// at Open, and the engine degrades to "no data available" rather than failing
// the batch.
package pagetext

import (
	"sort"
	"strings"

	"github.com/hazyhaar/redact/learn"
)

// Rect is an axis-aligned rectangle in document coordinates. It is not
// required to be normalized; callers may carry x0 > x1 (original draw
// coordinates are preserved throughout the system).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Normalized returns the rect with x0 <= x1 and y0 <= y1.
func (r Rect) Normalized() Rect {
	return Rect{
		X0: min(r.X0, r.X1),
		Y0: min(r.Y0, r.Y1),
		X1: max(r.X0, r.X1),
		Y1: max(r.Y0, r.Y1),
	}
}

// Intersects reports whether the normalized forms of r and o share an area
// of strictly positive width and height. Touching edges do not count.
func (r Rect) Intersects(o Rect) bool {
	a, b := r.Normalized(), o.Normalized()
	ix0 := max(a.X0, b.X0)
	iy0 := max(a.Y0, b.Y0)
	ix1 := min(a.X1, b.X1)
	iy1 := min(a.Y1, b.Y1)
	return ix1 > ix0 && iy1 > iy0
}

// Union returns the smallest rect covering both normalized rects.
func (r Rect) Union(o Rect) Rect {
	a, b := r.Normalized(), o.Normalized()
	return Rect{
		X0: min(a.X0, b.X0),
		Y0: min(a.Y0, b.Y0),
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
	}
}

// Word is one positioned token as reported by the document.
type Word struct {
	Rect Rect
	Text string

	// Block and Line index the word into the document's visual layout.
	Block int
	Line  int

	// WordNo is the word's position within its line, or -1 when the
	// document does not report one. Missing word numbers sort last.
	WordNo int
}

// LineSegment is one visually distinct line intersecting a query rect:
// its normalized text (the match key) and its bounding rect.
type LineSegment struct {
	Key  string
	Rect Rect
}

// Document is an open document handle. Page indices are 0-based. All
// methods degrade to empty results on bad pages or unreadable content;
// they never fail the caller.
type Document interface {
	PageCount() int
	Words(page int) []Word
	LineSegments(page int, r Rect) []LineSegment
	TextUnder(page int, r Rect) string
	MatchKey(page int, r Rect) string
	Close() error
}

// Provider opens documents. Implementations hold only the information
// needed to open (a path, fixed test data), never an open handle.
type Provider interface {
	Open() (Document, error)
}

// segmentsFromWords derives line segments for a query rect from positioned
// words: words are grouped by (block, line); for each group whose combined
// rect intersects the query, the words individually intersecting the query
// form one segment with their normalized joined text as the key. Both the
// memory and the PDF document implementations share this.
func segmentsFromWords(words []Word, query Rect) []LineSegment {
	type lineID struct{ block, line int }
	groups := make(map[lineID][]Word)
	for _, w := range words {
		id := lineID{w.Block, w.Line}
		groups[id] = append(groups[id], w)
	}

	ids := make([]lineID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].block != ids[j].block {
			return ids[i].block < ids[j].block
		}
		return ids[i].line < ids[j].line
	})

	var segs []LineSegment
	for _, id := range ids {
		group := groups[id]
		sortReadingOrder(group)

		var hit []Word
		for _, w := range group {
			if w.Rect.Intersects(query) {
				hit = append(hit, w)
			}
		}
		if len(hit) == 0 {
			continue
		}
		texts := make([]string, len(hit))
		rect := hit[0].Rect
		for i, w := range hit {
			texts[i] = w.Text
			rect = rect.Union(w.Rect)
		}
		key := learn.Normalize(strings.Join(texts, " "))
		if key == "" {
			continue
		}
		segs = append(segs, LineSegment{Key: key, Rect: rect})
	}
	return segs
}

// textFromWords joins the raw text of words intersecting the query rect,
// in reading order.
func textFromWords(words []Word, query Rect) string {
	var hit []Word
	for _, w := range words {
		if w.Rect.Intersects(query) {
			hit = append(hit, w)
		}
	}
	sort.SliceStable(hit, func(i, j int) bool {
		if hit[i].Block != hit[j].Block {
			return hit[i].Block < hit[j].Block
		}
		if hit[i].Line != hit[j].Line {
			return hit[i].Line < hit[j].Line
		}
		return lessReadingOrder(hit[i], hit[j])
	})
	texts := make([]string, len(hit))
	for i, w := range hit {
		texts[i] = w.Text
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// sortReadingOrder orders words of one line left to right: word number
// ascending with missing numbers last, then x ascending.
func sortReadingOrder(ws []Word) {
	sort.SliceStable(ws, func(i, j int) bool { return lessReadingOrder(ws[i], ws[j]) })
}

func lessReadingOrder(a, b Word) bool {
	am, bm := a.WordNo < 0, b.WordNo < 0
	if am != bm {
		return bm // valid word numbers first
	}
	if !am && a.WordNo != b.WordNo {
		return a.WordNo < b.WordNo
	}
	return a.Rect.Normalized().X0 < b.Rect.Normalized().X0
}
