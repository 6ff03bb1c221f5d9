// Package parser turns one Markdown file into a subnode: wikilinks and
// #push list entries.
package parser

import (
	"bytes"
	"fmt"
	"html"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/flancian/agora-import/internal/apperr"
	"github.com/flancian/agora-import/internal/models"
)

// PushMarker tags a list entry as a push to the node it links first.
const PushMarker = "#push"

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Parser converts raw Markdown into subnodes. It holds no per-file state and
// is safe for concurrent use.
type Parser struct {
	md  goldmark.Markdown
	now func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the time source used for Subnode.Updated.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// New returns a Parser rendering GitHub-flavoured Markdown. goldmark follows
// CommonMark list rules, so nested lists need no forced 4-space indent.
func New(opts ...Option) *Parser {
	p := &Parser{
		md:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse parses raw with the default parser.
func Parse(raw, titleHint string) (*models.Subnode, error) {
	return defaultParser.Parse(raw, titleHint)
}

// Parse builds a subnode from raw. The title is always titleHint; content
// never changes it. User is left for the caller to fill in.
func (p *Parser) Parse(raw, titleHint string) (*models.Subnode, error) {
	pushes, err := p.Pushes(raw)
	if err != nil {
		return nil, err
	}
	return &models.Subnode{
		Title:   titleHint,
		Body:    raw,
		Links:   Links(raw),
		Pushes:  pushes,
		Updated: p.now(),
	}, nil
}

// Links returns every [[...]] target in raw, in order, duplicates included.
func Links(raw string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(raw, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Pushes renders raw to HTML and returns one item per list entry whose text
// contains PushMarker. An entry that nests a marked entry matches too. Text
// without the marker is not rendered at all.
func (p *Parser) Pushes(raw string) ([]models.PushItem, error) {
	out := []models.PushItem{}
	if !strings.Contains(raw, PushMarker) {
		return out, nil
	}

	var buf bytes.Buffer
	if err := p.md.Convert([]byte(raw), &buf); err != nil {
		return nil, fmt.Errorf("parser: render markdown: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, fmt.Errorf("parser: load html: %w", err)
	}

	var parseErr error
	doc.Find("li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), PushMarker) {
			return true
		}
		markup, err := goquery.OuterHtml(s)
		if err != nil {
			parseErr = fmt.Errorf("parser: outer html: %w", err)
			return false
		}
		m := wikilinkRe.FindStringSubmatch(markup)
		if m == nil {
			parseErr = fmt.Errorf("%w: list entry %q has no [[title]]", apperr.ErrMalformedPush, strings.TrimSpace(s.Text()))
			return false
		}
		// Markup is escaped HTML; the title must match the raw link text.
		out = append(out, models.PushItem{Title: html.UnescapeString(m[1]), Markup: markup})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

// TitleFromPath derives a subnode title from a garden-relative file path:
// the last path segment without its extension, lower-cased.
func TitleFromPath(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
}
