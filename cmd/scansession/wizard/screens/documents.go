package screens

import (
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/scansession/cmd/scansession/wizard/components"
	"github.com/mrsinham/scansession/internal/session"
)

// DocumentsScreen edits the checklist, the extra files and the notes
type DocumentsScreen struct {
	form      *huh.Form
	helpPanel *components.HelpPanel
	record    *session.Record
	done      bool
	cancelled bool

	checked  []string
	filesStr string
}

// NewDocumentsScreen creates the documents screen
func NewDocumentsScreen(record *session.Record) *DocumentsScreen {
	s := &DocumentsScreen{
		helpPanel: components.NewHelpPanel(),
		record:    record,
		filesStr:  JoinList(record.Files),
	}

	options := make([]huh.Option[string], 0, len(record.Checklist))
	for _, item := range record.Checklist {
		options = append(options, huh.NewOption(item.Label, item.Label).Selected(item.Checked))
		if item.Checked {
			s.checked = append(s.checked, item.Label)
		}
	}

	var fields []huh.Field
	if len(options) > 0 {
		fields = append(fields, huh.NewMultiSelect[string]().
			Key("checklist").
			Title("Checklist").
			Options(options...).
			Value(&s.checked))
	}
	fields = append(fields,
		huh.NewInput().
			Key("files").
			Title("Files").
			Placeholder("e.g., questionnaire.pdf, eyetracking/*").
			Value(&s.filesStr),

		huh.NewText().
			Key("notes").
			Title("Notes").
			Lines(5).
			Value(&record.Notes),
	)

	s.form = huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(false)

	return s
}

// SplitList parses a comma-separated list, dropping blank items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// JoinList is the inverse of SplitList.
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

// Init implements tea.Model
func (s *DocumentsScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *DocumentsScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		s.syncRecordFromForm()
	}

	return s, cmd
}

func (s *DocumentsScreen) syncRecordFromForm() {
	for i := range s.record.Checklist {
		label := s.record.Checklist[i].Label
		s.record.Checklist[i].Checked = slices.Contains(s.checked, label)
	}
	s.record.Files = SplitList(s.filesStr)
	s.record.Notes = strings.TrimRight(s.record.Notes, "\n")
}

// View implements tea.Model
func (s *DocumentsScreen) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		components.Title("Documents"),
		"",
		s.form.View(),
		"",
		s.helpPanel.View(),
		"",
		"Space: Toggle | Tab: Next field | Enter: Submit | Esc: Back",
	)
}

// Done returns true if the form was completed
func (s *DocumentsScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user left the screen without submitting
func (s *DocumentsScreen) Cancelled() bool {
	return s.cancelled
}
