package display

import (
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strings"

	"github.com/dbaio/weblate/trans"
)

// LocationLinks renders a unit's source location string for display.
//
// An empty location yields an empty string and a purely numeric location is
// shown as a string ID. Otherwise each "filename:line" entry becomes either
// escaped plain text, or a link when the unit's component carries a repoweb
// URL template. An editor link template on the profile takes precedence over
// the component's repoweb template. Entries are joined with newlines.
func LocationLinks(profile trans.Profile, unit *trans.Unit) template.HTML {
	location := strings.TrimSpace(unit.Location)
	if location == "" {
		return ""
	}

	if isDigits(location) {
		return template.HTML("string ID " + location)
	}

	var repoweb string
	if unit.Translation != nil && unit.Translation.Component != nil {
		repoweb = unit.Translation.Component.Repoweb
	}

	var rendered []string
	for _, entry := range strings.Split(location, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		filename, line := splitLocation(entry)
		text := filename
		if line != "" {
			text = filename + ":" + line
		}

		if repoweb == "" {
			rendered = append(rendered, html.EscapeString(text))
			continue
		}

		linkTemplate := repoweb
		if profile.EditorLink != "" {
			linkTemplate = profile.EditorLink
		}
		if line == "" {
			line = "1"
		}
		href := substitutePlaceholders(linkTemplate, escapeFilename(filename), line)

		rendered = append(rendered, fmt.Sprintf(
			"<a class=\"wrap-text\" href=\"%v\" target=\"_blank\" dir=\"ltr\" rel=\"noopener noreferrer\">%v</a>",
			html.EscapeString(href),
			html.EscapeString(text),
		))
	}

	return template.HTML(strings.Join(rendered, "\n"))
}

// Splits a location entry on its last colon. Entries without a colon are
// treated as a bare filename with no line.
func splitLocation(entry string) (filename, line string) {
	idx := strings.LastIndex(entry, ":")
	if idx < 0 {
		return entry, ""
	}

	return entry[:idx], entry[idx+1:]
}

// Substitutes the fixed {{filename}} and {{line}} placeholders in a repoweb
// or editor link template.
func substitutePlaceholders(linkTemplate, filename, line string) string {
	r := strings.NewReplacer("{{filename}}", filename, "{{line}}", line)

	return r.Replace(linkTemplate)
}

// Percent-encodes each path segment of a filename so it is safe to embed in
// a URL, keeping directory separators intact.
func escapeFilename(filename string) string {
	parts := strings.Split(filename, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}

	return strings.Join(parts, "/")
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}

	return len(s) > 0
}
