// CLAUDE:SUMMARY PDF-backed provider using ledongthuc/pdf for positioned text runs, pdfcpu for admission validation.
package pagetext

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hazyhaar/redact/learn"
)

// PDF is a provider over a PDF file on disk. Open parses the file fresh on
// every call and the returned document holds the file handle until Close, so
// callers keep the open scoped to one action step.
type PDF struct {
	Path   string
	Logger *slog.Logger
}

// NewPDF returns a provider for the given path.
func NewPDF(path string) *PDF {
	return &PDF{Path: path, Logger: slog.Default()}
}

// ValidatePDF checks that the file at path is a readable PDF. Used at the
// service boundary when a document is registered; the engine itself never
// fails a batch on document errors.
func ValidatePDF(path string) error {
	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("validate pdf %s: %w", path, err)
	}
	return nil
}

// Open opens and parses the PDF. The caller must Close the document.
func (p *PDF) Open() (Document, error) {
	f, r, err := pdflib.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", p.Path, err)
	}
	return &pdfDoc{file: f, reader: r, logger: p.Logger}, nil
}

type pdfDoc struct {
	file   *os.File
	reader *pdflib.Reader
	logger *slog.Logger

	// words caches per-page extraction for the lifetime of this handle.
	words map[int][]Word
}

func (d *pdfDoc) Close() error { return d.file.Close() }

func (d *pdfDoc) PageCount() int { return d.reader.NumPage() }

// Words extracts positioned words from one 0-based page. Malformed content
// streams make the underlying reader panic on some files; that is recovered
// and reported as an empty page.
func (d *pdfDoc) Words(page int) (words []Word) {
	if cached, ok := d.words[page]; ok {
		return cached
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("pdf word extraction failed", "page", page, "panic", r)
			words = nil
		}
		if d.words == nil {
			d.words = make(map[int][]Word)
		}
		d.words[page] = words
	}()

	if page < 0 || page >= d.reader.NumPage() {
		return nil
	}
	p := d.reader.Page(page + 1)
	if p.V.IsNull() {
		return nil
	}
	return wordsFromRuns(p.Content().Text)
}

func (d *pdfDoc) LineSegments(page int, r Rect) []LineSegment {
	return segmentsFromWords(d.Words(page), r)
}

func (d *pdfDoc) TextUnder(page int, r Rect) string {
	return textFromWords(d.Words(page), r)
}

func (d *pdfDoc) MatchKey(page int, r Rect) string {
	return learn.Normalize(d.TextUnder(page, r))
}

// wordsFromRuns builds words from the reader's positioned text runs. Runs
// are clustered into lines by baseline Y, then merged into words: a word
// breaks on whitespace runs or on a horizontal gap wider than a third of
// the font size.
func wordsFromRuns(runs []pdflib.Text) []Word {
	var texts []pdflib.Text
	for _, t := range runs {
		if t.S == "" {
			continue
		}
		texts = append(texts, t)
	}
	if len(texts) == 0 {
		return nil
	}

	// Reading order: top of page first (PDF y grows upward), then left to right.
	sort.SliceStable(texts, func(i, j int) bool {
		if texts[i].Y != texts[j].Y {
			return texts[i].Y > texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	type line struct {
		baseline float64
		runs     []pdflib.Text
	}
	var lines []line
	for _, t := range texts {
		tol := t.FontSize * 0.4
		if tol < 2 {
			tol = 2
		}
		if n := len(lines); n > 0 && abs(lines[n-1].baseline-t.Y) <= tol {
			lines[n-1].runs = append(lines[n-1].runs, t)
			continue
		}
		lines = append(lines, line{baseline: t.Y, runs: []pdflib.Text{t}})
	}

	var words []Word
	for lineNo, ln := range lines {
		sort.SliceStable(ln.runs, func(i, j int) bool { return ln.runs[i].X < ln.runs[j].X })

		wordNo := 0
		var cur *Word
		var prevEnd float64
		flush := func() {
			if cur != nil {
				words = append(words, *cur)
				cur = nil
			}
		}
		for _, t := range ln.runs {
			if isBlank(t.S) {
				flush()
				prevEnd = t.X + t.W
				continue
			}
			gap := t.FontSize / 3
			if cur != nil && t.X-prevEnd > gap {
				flush()
			}
			if cur == nil {
				cur = &Word{
					Rect:   Rect{X0: t.X, Y0: t.Y, X1: t.X + t.W, Y1: t.Y + t.FontSize},
					Text:   t.S,
					Block:  0,
					Line:   lineNo,
					WordNo: wordNo,
				}
				wordNo++
			} else {
				cur.Text += t.S
				cur.Rect.X1 = t.X + t.W
				if t.Y+t.FontSize > cur.Rect.Y1 {
					cur.Rect.Y1 = t.Y + t.FontSize
				}
			}
			prevEnd = t.X + t.W
		}
		flush()
	}
	return words
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
