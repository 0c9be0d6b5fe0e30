package server

import (
	"html/template"
	"time"

	"github.com/dbaio/weblate/display"
	"github.com/dbaio/weblate/trans"
)

// Unit is the JSON shape a stored unit is served as.
type Unit struct {
	Id             int64     `json:"id"`
	Project        string    `json:"project"`
	Component      string    `json:"component"`
	Language       string    `json:"language"`
	Context        string    `json:"context"`
	Location       string    `json:"location"`
	Source         string    `json:"source"`
	PreviousSource string    `json:"previous_source,omitempty"`
	Target         string    `json:"target,omitempty"`
	ChangedAt      time.Time `json:"changed_at"`
}

func NewUnit(u *trans.Unit) *Unit {
	return &Unit{
		Id:             u.Id,
		Project:        u.Translation.Component.Project.Slug,
		Component:      u.Translation.Component.Slug,
		Language:       u.Translation.Language.Code,
		Context:        u.Context,
		Location:       u.Location,
		Source:         u.Source,
		PreviousSource: u.PreviousSource,
		Target:         u.Target,
		ChangedAt:      u.ChangedAt,
	}
}

// RenderedUnit is a unit formatted for display: source items with optional
// diff/glossary markup, plus location links and a relative change time.
type RenderedUnit struct {
	Id          int64          `json:"id"`
	Context     string         `json:"context"`
	Items       []display.Item `json:"items"`
	TargetItems []display.Item `json:"target_items,omitempty"`
	Direction   string         `json:"direction"`
	Location    template.HTML  `json:"location"`
	LastChange  template.HTML  `json:"last_change"`
}

func NewRenderedUnit(u *trans.Unit, profile trans.Profile, opts []display.Option, now time.Time) *RenderedUnit {
	lang := *u.Translation.Language
	rendered := display.FormatTranslation(u.Source, lang, opts...)

	ru := &RenderedUnit{
		Id:         u.Id,
		Context:    u.Context,
		Items:      rendered.Items,
		Direction:  rendered.Direction,
		Location:   display.LocationLinks(profile, u),
		LastChange: display.NaturalTime(u.ChangedAt, now),
	}

	if u.Target != "" {
		ru.TargetItems = display.FormatTranslation(u.Target, lang).Items
	}

	return ru
}
