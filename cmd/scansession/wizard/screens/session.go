package screens

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/scansession/cmd/scansession/wizard/components"
	"github.com/mrsinham/scansession/internal/config"
	"github.com/mrsinham/scansession/internal/session"
)

// SessionScreen edits the general information of the session
type SessionScreen struct {
	form      *huh.Form
	helpPanel *components.HelpPanel
	record    *session.Record
	width     int
	height    int
	done      bool
	cancelled bool

	// huh binds to strings
	subjectStr string
	sessionStr string
}

// NewSessionScreen creates the general information screen. Suggestions are
// taken from the project templates, all projects merged.
func NewSessionScreen(record *session.Record, projects config.Projects) *SessionScreen {
	s := &SessionScreen{
		helpPanel:  components.NewHelpPanel(),
		record:     record,
		subjectStr: strconv.Itoa(record.SubjectNumber),
		sessionStr: strconv.Itoa(record.SessionNumber),
	}

	var subjectTypes, sessionTypes, users []string
	for _, name := range projects.Names() {
		p := projects[name]
		subjectTypes = append(subjectTypes, p.SubjectTypes...)
		sessionTypes = append(sessionTypes, p.SessionTypes...)
		users = append(users, p.Users...)
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("project").
				Title("Project").
				Suggestions(projects.Names()).
				Value(&record.Project).
				Validate(required("project")),

			huh.NewInput().
				Key("subject_number").
				Title("Subject Number").
				Value(&s.subjectStr).
				Validate(validateNumber),

			huh.NewInput().
				Key("subject_type").
				Title("Subject Type").
				Suggestions(subjectTypes).
				Value(&record.SubjectType).
				Validate(validateLabel),

			huh.NewInput().
				Key("session_number").
				Title("Session Number").
				Value(&s.sessionStr).
				Validate(validateNumber),

			huh.NewInput().
				Key("session_type").
				Title("Session Type").
				Suggestions(sessionTypes).
				Value(&record.SessionType).
				Validate(validateLabel),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("date").
				Title("Date").
				Placeholder("YYYY-MM-DD").
				Value(&record.Date).
				Validate(validateDate),

			huh.NewInput().
				Key("time_a").
				Title("Time A").
				Placeholder("e.g., 09:30").
				Value(&record.TimeA),

			huh.NewInput().
				Key("time_b").
				Title("Time B").
				Placeholder("e.g., 11:00").
				Value(&record.TimeB),

			huh.NewInput().
				Key("user_1").
				Title("User 1").
				Suggestions(users).
				Value(&record.User1),

			huh.NewInput().
				Key("user_2").
				Title("User 2").
				Suggestions(users).
				Value(&record.User2),
		),
	).WithShowHelp(false).WithShowErrors(true)

	return s
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateNumber(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 1 || n > 999 {
		return fmt.Errorf("must be between 1 and 999")
	}
	return nil
}

// validateLabel rejects characters that would break folder names.
func validateLabel(s string) error {
	if strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("must not contain slashes")
	}
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse(session.DateLayout, s); err != nil {
		return fmt.Errorf("must be a date like 2024-03-21")
	}
	return nil
}

// Init implements tea.Model
func (s *SessionScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *SessionScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			s.cancelled = true
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
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
		s.syncRecordFromForm()
	}

	return s, cmd
}

func (s *SessionScreen) syncRecordFromForm() {
	if n, err := strconv.Atoi(strings.TrimSpace(s.subjectStr)); err == nil {
		s.record.SubjectNumber = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s.sessionStr)); err == nil {
		s.record.SessionNumber = n
	}
	s.record.Project = strings.TrimSpace(s.record.Project)
}

// View implements tea.Model
func (s *SessionScreen) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		components.Title("General Information"),
		"",
		s.form.View(),
		"",
		s.helpPanel.View(),
		"",
		"Tab: Next field | Enter: Submit | Esc: Back",
	)
}

// Done returns true if the form was completed
func (s *SessionScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user left the screen without submitting
func (s *SessionScreen) Cancelled() bool {
	return s.cancelled
}
