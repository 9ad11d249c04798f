// Package config loads the project templates and the archive settings that
// pre-fill a scan session.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/scansession/internal/session"
)

// ProjectsFile is the name of the project template file.
const ProjectsFile = "sst.yaml"

// Template suggests the volume count and comments of a named measurement.
type Template struct {
	Name     string `yaml:"Name"`
	Vols     int    `yaml:"Vols"`
	Comments string `yaml:"Comments"`
}

// Project holds the suggestions of one project.
type Project struct {
	SubjectTypes []string   `yaml:"SubjectTypes"`
	SessionTypes []string   `yaml:"SessionTypes"`
	Users        []string   `yaml:"Users"`
	Checklist    []string   `yaml:"Checklist"`
	Files        []string   `yaml:"Files"`
	Notes        string     `yaml:"Notes"`
	Anat         []Template `yaml:"Measurements anat"`
	Func         []Template `yaml:"Measurements func"`
	Misc         []Template `yaml:"Measurements misc"`
}

// Projects maps project names to their templates.
type Projects map[string]Project

// SearchPaths returns where the project file is looked for when no path is
// given: the working directory, then the home directory.
func SearchPaths() []string {
	paths := []string{ProjectsFile}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ProjectsFile))
	}
	return paths
}

// LoadProjects reads the project templates at path. With an empty path the
// first existing file of SearchPaths is used, and no file at all yields an
// empty set.
func LoadProjects(path string) (Projects, error) {
	if path == "" {
		for _, candidate := range SearchPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return Projects{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projects: %w", err)
	}
	projects := Projects{}
	if err := yaml.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return projects, nil
}

// Names returns the project names in alphabetical order.
func (p Projects) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Templates returns the measurement templates for type t.
func (p Project) Templates(t session.Type) []Template {
	switch t {
	case session.Func:
		return p.Func
	case session.Misc:
		return p.Misc
	default:
		return p.Anat
	}
}

// TemplateNames returns the measurement names suggested for type t.
func (p Project) TemplateNames(t session.Type) []string {
	templates := p.Templates(t)
	names := make([]string, len(templates))
	for i, tmpl := range templates {
		names[i] = tmpl.Name
	}
	return names
}

// Apply adds the project's checklist labels and file masks that r does not
// have yet, and sets the notes when r has none.
func (p Project) Apply(r *session.Record) {
	for _, label := range p.Checklist {
		hasLabel := func(item session.ChecklistItem) bool { return item.Label == label }
		if !slices.ContainsFunc(r.Checklist, hasLabel) {
			r.Checklist = append(r.Checklist, session.ChecklistItem{Label: label})
		}
	}
	for _, mask := range p.Files {
		if !slices.Contains(r.Files, mask) {
			r.Files = append(r.Files, mask)
		}
	}
	if strings.TrimSpace(r.Notes) == "" && p.Notes != "" {
		r.Notes = strings.TrimRight(p.Notes, "\n")
	}
}

// ApplyTemplate fills the blank vols and comments of m from the template
// with the same name. It reports whether a template matched.
func (p Project) ApplyTemplate(m *session.Measurement) bool {
	if m.Name == "" {
		return false
	}
	for _, tmpl := range p.Templates(m.Type) {
		if tmpl.Name != m.Name {
			continue
		}
		if m.Vols == 0 {
			m.Vols = tmpl.Vols
		}
		if m.Comments == "" {
			m.Comments = strings.TrimRight(tmpl.Comments, "\n")
		}
		return true
	}
	return false
}
