package screens

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/scansession/cmd/scansession/wizard/components"
	"github.com/mrsinham/scansession/internal/session"
)

// MeasurementScreen edits a single measurement
type MeasurementScreen struct {
	form        *huh.Form
	helpPanel   *components.HelpPanel
	measurement *session.Measurement
	done        bool
	cancelled   bool

	numberStr   string
	volsStr     string
	logfilesStr string
}

// NewMeasurementScreen creates the measurement screen. names are offered as
// completions for the measurement name.
func NewMeasurementScreen(m *session.Measurement, names []string) *MeasurementScreen {
	s := &MeasurementScreen{
		helpPanel:   components.NewHelpPanel(),
		measurement: m,
		numberStr:   strconv.Itoa(m.Number),
		logfilesStr: JoinList(m.Logfiles),
	}
	if m.Vols > 0 {
		s.volsStr = strconv.Itoa(m.Vols)
	}

	types := make([]huh.Option[session.Type], 0, 3)
	for _, t := range session.Types() {
		types = append(types, huh.NewOption(t.String(), t))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("number").
				Title("Number").
				Value(&s.numberStr).
				Validate(validateNumber),

			huh.NewSelect[session.Type]().
				Key("type").
				Title("Type").
				Options(types...).
				Value(&m.Type),

			huh.NewInput().
				Key("name").
				Title("Name").
				Suggestions(names).
				Value(&m.Name).
				Validate(validateLabel),

			huh.NewInput().
				Key("vols").
				Title("Volumes").
				Placeholder("0 = unknown").
				Value(&s.volsStr).
				Validate(validateVols),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("logfiles").
				Title("Logfiles").
				Placeholder("left empty: project default for func/misc").
				Value(&s.logfilesStr),

			huh.NewText().
				Key("comments").
				Title("Comments").
				Lines(3).
				Value(&m.Comments),
		),
	).WithShowHelp(false).WithShowErrors(true)

	return s
}

func validateVols(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// Init implements tea.Model
func (s *MeasurementScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *MeasurementScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		s.syncMeasurementFromForm()
	}

	return s, cmd
}

func (s *MeasurementScreen) syncMeasurementFromForm() {
	m := s.measurement
	if n, err := strconv.Atoi(strings.TrimSpace(s.numberStr)); err == nil {
		m.Number = n
	}
	m.Vols = 0
	if n, err := strconv.Atoi(strings.TrimSpace(s.volsStr)); err == nil {
		m.Vols = n
	}
	m.Name = strings.TrimSpace(m.Name)
	m.Logfiles = SplitList(s.logfilesStr)
	m.Comments = strings.TrimRight(m.Comments, "\n")
}

// View implements tea.Model
func (s *MeasurementScreen) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		components.Title(fmt.Sprintf("Measurement %d", s.measurement.Number)),
		"",
		s.form.View(),
		"",
		s.helpPanel.View(),
		"",
		"Tab: Next field | Enter: Submit | Esc: Back",
	)
}

// Done returns true if the form was completed
func (s *MeasurementScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user left the screen without submitting
func (s *MeasurementScreen) Cancelled() bool {
	return s.cancelled
}

// Measurement returns the edited measurement
func (s *MeasurementScreen) Measurement() *session.Measurement {
	return s.measurement
}
