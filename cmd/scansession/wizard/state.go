// Package wizard provides an interactive TUI for recording a scan session
// and archiving it.
package wizard

import (
	"fmt"
	"slices"

	"github.com/mrsinham/scansession/internal/config"
	"github.com/mrsinham/scansession/internal/protocol"
	"github.com/mrsinham/scansession/internal/session"
)

// DefaultConfigPath is where archive settings are kept when no file is given.
const DefaultConfigPath = "scansession.yaml"

// Options configures a wizard run.
type Options struct {
	From     string // protocol to start from; empty starts a new session
	Projects string // project templates; empty searches the default locations
	Config   string // archive settings file; empty uses DefaultConfigPath
}

// State holds everything the wizard edits.
type State struct {
	Record       *session.Record
	Projects     config.Projects
	Archive      config.Archive
	ConfigPath   string
	ProtocolPath string // last file the protocol was read from or saved to
}

// LoadState builds the initial wizard state from opts.
func LoadState(opts Options) (*State, error) {
	projects, err := config.LoadProjects(opts.Projects)
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}

	configPath := opts.Config
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	settings, err := config.LoadArchive(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading archive settings: %w", err)
	}

	s := &State{
		Record:     session.New(),
		Projects:   projects,
		Archive:    settings,
		ConfigPath: configPath,
	}
	if opts.From != "" {
		r, err := protocol.ReadFile(opts.From)
		if err != nil {
			return nil, fmt.Errorf("loading protocol: %w", err)
		}
		s.Record = r
		s.ProtocolPath = opts.From
	}
	return s, nil
}

// applyProject merges the template of the record's project, if any.
func (s *State) applyProject() {
	if p, ok := s.Projects[s.Record.Project]; ok {
		p.Apply(s.Record)
	}
}

// completeMeasurement fills m from the project template and gives func and
// misc measurements the default logfile mask when none is set.
func (s *State) completeMeasurement(m *session.Measurement) {
	if p, ok := s.Projects[s.Record.Project]; ok {
		p.ApplyTemplate(m)
	}
	if m.Type.HasLogfiles() && m.Name != "" && len(m.Logfiles) == 0 {
		m.Logfiles = []string{s.Record.LogfileMask(m.Name)}
	}
}

// measurementNames returns the template names of the record's project, those
// of type t first.
func (s *State) measurementNames(t session.Type) []string {
	p, ok := s.Projects[s.Record.Project]
	if !ok {
		return nil
	}
	names := p.TemplateNames(t)
	for _, other := range session.Types() {
		if other == t {
			continue
		}
		for _, name := range p.TemplateNames(other) {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

// protocolPath returns the path offered when saving the protocol.
func (s *State) protocolPath() string {
	if s.ProtocolPath != "" {
		return s.ProtocolPath
	}
	return s.Record.Filename() + ".txt"
}
