package display

import (
	"html"
	"html/template"
	"regexp"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dbaio/weblate/trans"
)

// Item is one rendered plural form of a translation string.
type Item struct {
	Content template.HTML `json:"content"`
}

// Rendered is the structured result of FormatTranslation, ready for a
// templating layer to iterate.
type Rendered struct {
	Items     []Item `json:"items"`
	Direction string `json:"direction"`
}

type formatOptions struct {
	prior    string
	hasDiff  bool
	glossary []trans.Term
}

type Option func(*formatOptions)

// WithDiff renders the text as a diff against the given prior text.
func WithDiff(prior string) Option {
	return func(o *formatOptions) {
		o.prior = prior
		o.hasDiff = true
	}
}

// WithGlossary annotates occurrences of the given glossary terms.
func WithGlossary(terms []trans.Term) Option {
	return func(o *formatOptions) {
		o.glossary = terms
	}
}

// FormatTranslation renders a translation string as HTML-safe display items,
// one per plural form. With WithDiff the text is rendered as a diff against
// the prior text (diffing takes precedence over glossary annotation); with
// WithGlossary matching terms are wrapped in glossary spans. Without options
// the text is escaped unchanged.
func FormatTranslation(text string, lang trans.Language, opts ...Option) Rendered {
	var o formatOptions
	for _, opt := range opts {
		opt(&o)
	}

	direction := lang.Direction
	if direction == "" {
		direction = "ltr"
	}

	plurals := strings.Split(text, trans.PluralSeparator)
	var priors []string
	if o.hasDiff {
		priors = strings.Split(o.prior, trans.PluralSeparator)
	}

	items := make([]Item, len(plurals))
	for i, plural := range plurals {
		var content template.HTML
		switch {
		case o.hasDiff:
			prior := ""
			if i < len(priors) {
				prior = priors[i]
			}
			content = diffContent(prior, plural)
		case len(o.glossary) > 0:
			content = glossaryContent(plural, o.glossary)
		default:
			content = template.HTML(html.EscapeString(plural))
		}
		items[i] = Item{Content: content}
	}

	return Rendered{Items: items, Direction: direction}
}

// Renders the change from prior to text, wrapping removals in <del> and
// insertions in <ins>.
func diffContent(prior, text string) template.HTML {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(prior, text, true))

	var b strings.Builder
	for _, d := range diffs {
		escaped := html.EscapeString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("<del>")
			b.WriteString(escaped)
			b.WriteString("</del>")
		case diffmatchpatch.DiffInsert:
			b.WriteString("<ins>")
			b.WriteString(escaped)
			b.WriteString("</ins>")
		default:
			b.WriteString(escaped)
		}
	}

	return template.HTML(b.String())
}

type termMatch struct {
	start, end int
	term       trans.Term
}

// Wraps every glossary term occurrence in an annotated span. Matching is
// case-insensitive on word boundaries; overlapping matches resolve to the
// longest term, then the earliest.
func glossaryContent(text string, terms []trans.Term) template.HTML {
	var matches []termMatch
	for _, term := range terms {
		if term.Source == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term.Source) + `\b`)
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			matches = append(matches, termMatch{start: loc[0], end: loc[1], term: term})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	var b strings.Builder
	pos := 0
	for _, m := range matches {
		if m.start < pos {
			continue
		}
		b.WriteString(html.EscapeString(text[pos:m.start]))
		b.WriteString("<span class=\"glossary-term\" title=\"Glossary translation: ")
		b.WriteString(html.EscapeString(m.term.Target))
		b.WriteString("\">")
		b.WriteString(html.EscapeString(text[m.start:m.end]))
		b.WriteString("</span>")
		pos = m.end
	}
	b.WriteString(html.EscapeString(text[pos:]))

	return template.HTML(b.String())
}
