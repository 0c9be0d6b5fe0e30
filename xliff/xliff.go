/*
Package xliff reads translation units from XLIFF 1.2 files.

Each trans-unit contributes a unit with its context (resname), source, target
and any source-code locations listed in context-groups with a "location"
purpose. Files are named component.lang.xliff.
*/
package xliff

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbaio/weblate/trans"
)

type Xliff struct {
	XMLName xml.Name  `xml:"xliff"`
	File    XliffFile `xml:"file"`
	Version string    `xml:"version,attr"`

	component string
}

type XliffFile struct {
	SourceLang string      `xml:"source-language,attr"`
	TargetLang string      `xml:"target-language,attr"`
	Date       string      `xml:"date,attr"`
	DataType   string      `xml:"datatype,attr"`
	Original   string      `xml:"original,attr"`
	Header     XliffHeader `xml:"header"`
	TransUnits []TransUnit `xml:"body>trans-unit"`
}

type XliffHeader struct {
	Tool XliffTool `xml:"tool"`
	Note string    `xml:"note"`
}

type XliffTool struct {
	Id      string `xml:"tool-id,attr"`
	Name    string `xml:"tool-name,attr"`
	Version string `xml:"tool-version,attr"`
}

type TransUnit struct {
	Id            string         `xml:"id,attr"`
	Resname       string         `xml:"resname,attr"`
	Source        string         `xml:"source"`
	Target        string         `xml:"target"`
	ContextGroups []ContextGroup `xml:"context-group"`
}

type ContextGroup struct {
	Purpose  string    `xml:"purpose,attr"`
	Contexts []Context `xml:"context"`
}

type Context struct {
	Type  string `xml:"context-type,attr"`
	Value string `xml:",chardata"`
}

// Component the file was named for.
func (x *Xliff) Component() string {
	return x.component
}

// Target language code of the file.
func (x *Xliff) Language() string {
	return x.File.TargetLang
}

// Units converts the file's trans-units to domain units.
func (x *Xliff) Units() []trans.Unit {
	units := make([]trans.Unit, len(x.File.TransUnits))
	for i, tu := range x.File.TransUnits {
		context := tu.Resname
		if context == "" {
			context = tu.Id
		}

		units[i] = trans.Unit{
			Context:  context,
			Source:   tu.Source,
			Target:   tu.Target,
			Location: tu.location(),
		}
	}

	return units
}

// Joins a trans-unit's location context-groups into the comma separated
// "filename:line" form units store.
func (tu TransUnit) location() string {
	var entries []string
	for _, group := range tu.ContextGroups {
		if group.Purpose != "location" {
			continue
		}

		var filename, line string
		for _, c := range group.Contexts {
			switch c.Type {
			case "sourcefile":
				filename = strings.TrimSpace(c.Value)
			case "linenumber":
				line = strings.TrimSpace(c.Value)
			}
		}
		if filename == "" {
			continue
		}

		entry := filename
		if line != "" {
			entry = filename + ":" + line
		}
		entries = append(entries, entry)
	}

	return strings.Join(entries, ",")
}

func infoFromFilename(filename string) (component string, expectLang string, err error) {
	parts := strings.Split(filename, ".")
	if len(parts) != 3 {
		return "", "", fmt.Errorf("component or language missing from filename '%v'", filename)
	}

	return parts[0], parts[1], nil
}

// Creates a new Xliff from the file at the given path
func NewFromFile(file string) (x *Xliff, err error) {
	xliffData, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	x = &Xliff{}
	err = xml.Unmarshal(xliffData, x)
	if err != nil {
		return nil, err
	}

	component, expectLang, err := infoFromFilename(filepath.Base(file))
	if err != nil {
		return nil, err
	}

	if x.Language() != expectLang {
		return nil, fmt.Errorf(
			"found language %v but expected %v based on filename '%v'",
			x.Language(), expectLang, file)
	}

	x.component = component

	return x, nil
}
