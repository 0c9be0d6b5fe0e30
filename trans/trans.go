package trans

import "time"

// PluralSeparator joins the plural forms of a unit's text into a single
// stored string.
const PluralSeparator = "\x1e\x1e"

type Language struct {
	Id        int64  `db:"id" json:"-"`
	Code      string `db:"code" json:"code"`
	Name      string `db:"name" json:"name"`
	Direction string `db:"direction" json:"direction"`
}

type Project struct {
	Id   int64  `db:"id" json:"-"`
	Slug string `db:"slug" json:"slug"`
	Name string `db:"name" json:"name"`
}

type Component struct {
	Id      int64  `db:"id" json:"-"`
	Slug    string `db:"slug" json:"slug"`
	Name    string `db:"name" json:"name"`
	Project *Project
	// Repoweb is a URL template with {{filename}} and {{line}} placeholders
	// for linking a source location to the repository browser.
	Repoweb string `db:"repoweb" json:"repoweb,omitempty"`
}

// Translation ties a component to one of its target languages.
type Translation struct {
	Id        int64
	Component *Component
	Language  *Language
}

// Unit is a single translatable string within a translation.
type Unit struct {
	Id          int64
	Translation *Translation
	Context     string
	// Location lists "filename:line" pairs, comma separated, or holds a
	// bare numeric string ID.
	Location       string
	Source         string
	PreviousSource string
	Target         string
	ChangedAt      time.Time
}

// Term is a glossary entry: a fixed source term and its translation.
type Term struct {
	Source string `db:"source" json:"source"`
	Target string `db:"target" json:"target"`
}

// Profile carries per-user display settings.
type Profile struct {
	// EditorLink is a URL template with {{filename}} and {{line}}
	// placeholders. When set it takes precedence over a component's
	// Repoweb template.
	EditorLink string
}
