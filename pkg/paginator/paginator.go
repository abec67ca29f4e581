// Package paginator renders arbitrary-length output into size-bounded chat
// pages and drives an interactive, reaction-controlled page view.
package paginator

import "strings"

// DefaultMaxSize bounds a rendered page. Discord caps messages at 2000
// characters; the default leaves headroom for the page footer.
const DefaultMaxSize = 1985

// Paginator accumulates lines into pages no longer than MaxSize characters,
// rolling to a new page at line boundaries.
type Paginator struct {
	Prefix  string
	Suffix  string
	MaxSize int

	pages   []string
	current []string
	curLen  int
}

// New creates a paginator wrapping page content in prefix/suffix. A zero
// maxSize uses DefaultMaxSize.
func New(prefix, suffix string, maxSize int) *Paginator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Paginator{Prefix: prefix, Suffix: suffix, MaxSize: maxSize}
}

// budget is the room left for content on one page.
func (p *Paginator) budget() int {
	reserved := 0
	if p.Prefix != "" {
		reserved += len(p.Prefix) + 1
	}
	if p.Suffix != "" {
		reserved += len(p.Suffix) + 1
	}
	b := p.MaxSize - reserved
	if b < 1 {
		b = 1
	}
	return b
}

// AddLine appends one line, rolling to a new page when the current one is
// full. Lines longer than a whole page are force-split at rune boundaries.
func (p *Paginator) AddLine(line string) {
	budget := p.budget()

	for _, chunk := range splitRunes(line, budget) {
		needed := len(chunk)
		if len(p.current) > 0 {
			needed++ // joining newline
		}
		if p.curLen+needed > budget {
			p.closePage()
			needed = len(chunk)
		}
		p.current = append(p.current, chunk)
		p.curLen += needed
	}
}

// AddText appends multi-line text, one AddLine per line.
func (p *Paginator) AddText(text string) {
	for _, line := range strings.Split(text, "\n") {
		p.AddLine(line)
	}
}

func (p *Paginator) closePage() {
	p.pages = append(p.pages, p.render(p.current))
	p.current = nil
	p.curLen = 0
}

func (p *Paginator) render(lines []string) string {
	var b strings.Builder
	if p.Prefix != "" {
		b.WriteString(p.Prefix)
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(lines, "\n"))
	if p.Suffix != "" {
		b.WriteString("\n")
		b.WriteString(p.Suffix)
	}
	return b.String()
}

// Pages returns all rendered pages, including the in-progress one.
func (p *Paginator) Pages() []string {
	pages := make([]string, len(p.pages))
	copy(pages, p.pages)
	if len(p.current) > 0 || len(pages) == 0 {
		pages = append(pages, p.render(p.current))
	}
	return pages
}

// PageCount reports the current number of pages.
func (p *Paginator) PageCount() int {
	return len(p.Pages())
}

// splitRunes cuts s into chunks of at most limit bytes, never splitting a
// rune.
func splitRunes(s string, limit int) []string {
	if len(s) <= limit {
		return []string{s}
	}

	var chunks []string
	var b strings.Builder
	for _, r := range s {
		if b.Len()+len(string(r)) > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
