/*
Package display renders translation data for HTML presentation.

It contains the formatting helpers the templating layer calls once per
displayed value: relative timestamps, source location links and
diff/glossary-aware translation markup. All functions are pure; they never
touch the database or mutate their inputs.
*/
package display

import (
	"fmt"
	"html"
	"html/template"
	"time"
)

// NaturalTime renders t relative to the reference instant now as a human
// phrase, wrapped in a span whose title carries the precise timestamp.
func NaturalTime(t, now time.Time) template.HTML {
	phrase := naturalPhrase(int64(t.Sub(now) / time.Second))
	title := html.EscapeString(t.Format(time.RFC3339))

	return template.HTML(fmt.Sprintf("<span title=\"%v\">%v</span>", title, phrase))
}

// Converts a signed difference in seconds to a phrase like "2 hours ago".
func naturalPhrase(diff int64) string {
	suffix := " ago"
	if diff > 0 {
		suffix = " from now"
	}

	s := diff
	if s < 0 {
		s = -s
	}

	switch {
	case s == 0:
		return "now"
	case s == 1:
		return "a second" + suffix
	case s < 60:
		return fmt.Sprintf("%v seconds%v", s, suffix)
	case s < 120:
		return "a minute" + suffix
	case s < 3600:
		return fmt.Sprintf("%v minutes%v", s/60, suffix)
	case s < 7200:
		return "an hour" + suffix
	case s < 86400:
		return fmt.Sprintf("%v hours%v", s/3600, suffix)
	case s < 172800:
		if diff > 0 {
			return "tomorrow"
		}
		return "yesterday"
	case s < 604800:
		return fmt.Sprintf("%v days%v", s/86400, suffix)
	case s < 1209600:
		return "a week" + suffix
	case s < 2592000:
		return fmt.Sprintf("%v weeks%v", s/604800, suffix)
	case s < 5184000:
		return "a month" + suffix
	case s < 31536000:
		return fmt.Sprintf("%v months%v", s/2592000, suffix)
	case s < 63072000:
		return "a year" + suffix
	}

	return fmt.Sprintf("%v years%v", s/31536000, suffix)
}
