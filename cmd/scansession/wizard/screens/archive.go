package screens

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/scansession/cmd/scansession/wizard/components"
	"github.com/mrsinham/scansession/internal/config"
)

// ArchiveScreen collects the archive settings before archiving starts
type ArchiveScreen struct {
	form      *huh.Form
	helpPanel *components.HelpPanel
	settings  config.Archive
	remember  bool
	done      bool
	cancelled bool
}

// NewArchiveScreen creates the archive options screen, prefilled with settings.
func NewArchiveScreen(settings config.Archive, sessionDir func(target string) string) *ArchiveScreen {
	s := &ArchiveScreen{
		helpPanel: components.NewHelpPanel(),
		settings:  settings,
		remember:  true,
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("source").
				Title("Source Directory").
				Value(&s.settings.Source).
				Validate(validateDir),

			huh.NewInput().
				Key("target").
				Title("Target Directory").
				Value(&s.settings.Target).
				Validate(func(target string) error {
					if err := validateDir(target); err != nil {
						return err
					}
					if dir := sessionDir(strings.TrimSpace(target)); exists(dir) {
						return fmt.Errorf("%s already exists", dir)
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Key("bv_links").
				Title("Create BrainVoyager links?").
				Value(&s.settings.BVLinks),

			huh.NewConfirm().
				Key("tbv_links").
				Title("Archive Turbo-BrainVoyager files?").
				Value(&s.settings.TBVLinks),

			huh.NewInput().
				Key("tbv_dir").
				Title("TBV Directory").
				Value(&s.settings.TBVDir),

			huh.NewInput().
				Key("tbv_prefix").
				Title("TBV Prefix").
				Value(&s.settings.TBVPrefix),

			huh.NewConfirm().
				Key("remember").
				Title("Remember these settings?").
				Value(&s.remember),
		),
	).WithShowHelp(false).WithShowErrors(true)

	return s
}

func validateDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("directory is required")
	}
	info, err := os.Stat(s)
	if err != nil {
		return fmt.Errorf("%s does not exist", s)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Init implements tea.Model
func (s *ArchiveScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *ArchiveScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			s.cancelled = true
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.helpPanel.SetSize(msg.Width/3, msg.Height/2)
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if focused := s.form.GetFocusedField(); focused != nil {
		s.helpPanel.SetField(focused.GetKey())
	}

	if s.form.State == huh.StateCompleted {
		s.done = true
		s.settings.Source = strings.TrimSpace(s.settings.Source)
		s.settings.Target = strings.TrimSpace(s.settings.Target)
		s.settings.TBVDir = strings.TrimSpace(s.settings.TBVDir)
		s.settings.TBVPrefix = strings.TrimSpace(s.settings.TBVPrefix)
	}

	return s, cmd
}

// View implements tea.Model
func (s *ArchiveScreen) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		components.Title("Archive"),
		"",
		s.form.View(),
		"",
		s.helpPanel.View(),
		"",
		"Tab: Next field | Enter: Start | Esc: Back",
	)
}

// Done returns true if the form was completed
func (s *ArchiveScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user went back without archiving
func (s *ArchiveScreen) Cancelled() bool {
	return s.cancelled
}

// Settings returns the entered settings
func (s *ArchiveScreen) Settings() config.Archive {
	return s.settings
}

// Remember reports whether the settings should be saved
func (s *ArchiveScreen) Remember() bool {
	return s.remember
}
