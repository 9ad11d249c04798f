package screens

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mrsinham/scansession/cmd/scansession/wizard/components"
	"github.com/mrsinham/scansession/internal/session"
)

// SummaryAction represents the action selected on the summary screen
type SummaryAction int

const (
	// SummaryActionAdd appends a measurement and edits it
	SummaryActionAdd SummaryAction = iota
	// SummaryActionEdit edits the measurement at Index
	SummaryActionEdit
	// SummaryActionDeleteLast removes the last, empty measurement
	SummaryActionDeleteLast
	// SummaryActionSession edits the general information
	SummaryActionSession
	// SummaryActionDocuments edits checklist, files and notes
	SummaryActionDocuments
	// SummaryActionSave writes the protocol file
	SummaryActionSave
	// SummaryActionArchive opens the archive options
	SummaryActionArchive
	// SummaryActionQuit exits the wizard
	SummaryActionQuit
)

const (
	actionAdd        = "add"
	actionEditPrefix = "edit:"
	actionDelete     = "delete"
	actionSession    = "session"
	actionDocuments  = "documents"
	actionSave       = "save"
	actionArchive    = "archive"
	actionQuit       = "quit"
)

var (
	summaryPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(1, 2)

	summaryTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63")).
				Bold(true).
				MarginBottom(1)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63")).
				Bold(true).
				Padding(0, 1)

	tableCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

// SummaryScreen shows the whole record and lets the user pick what to do next
type SummaryScreen struct {
	form      *huh.Form
	record    *session.Record
	notice    string
	problems  []string
	action    string
	done      bool
	cancelled bool
	width     int
	height    int
}

// NewSummaryScreen creates the summary screen. notice is shown above the
// actions, typically the outcome of the previous action.
func NewSummaryScreen(record *session.Record, notice string) *SummaryScreen {
	s := &SummaryScreen{
		record: record,
		notice: notice,
		action: actionAdd,
	}
	if err := record.Validate(); err != nil {
		s.problems = strings.Split(err.Error(), "\n")
	}

	options := []huh.Option[string]{
		huh.NewOption("Add measurement", actionAdd),
	}
	for i, m := range record.Measurements {
		label := fmt.Sprintf("Edit measurement %d (%s)", m.Number, m.Type)
		if m.Name != "" {
			label = fmt.Sprintf("Edit measurement %d (%s: %s)", m.Number, m.Type, m.Name)
		}
		options = append(options, huh.NewOption(label, actionEditPrefix+strconv.Itoa(i)))
	}
	if record.CanDeleteLast() {
		options = append(options, huh.NewOption("Delete last measurement", actionDelete))
	}
	options = append(options,
		huh.NewOption("Edit general information", actionSession),
		huh.NewOption("Edit documents", actionDocuments),
		huh.NewOption("Save protocol", actionSave),
	)
	if len(s.problems) == 0 {
		options = append(options, huh.NewOption("Archive session", actionArchive))
	}
	options = append(options, huh.NewOption("Quit", actionQuit))

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("action").
				Title("Select an action").
				Options(options...).
				Value(&s.action),
		),
	).WithShowHelp(false)

	return s
}

// Init implements tea.Model
func (s *SummaryScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *SummaryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			s.cancelled = true
			return s, tea.Quit
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.done = true
	}

	return s, cmd
}

// View implements tea.Model
func (s *SummaryScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	general := summaryPanelStyle.Width(62).Render(s.buildGeneral())
	documents := summaryPanelStyle.Width(62).Render(s.buildDocuments())
	panels := lipgloss.JoinHorizontal(lipgloss.Top, general, "  ", documents)

	parts := []string{
		components.Title("Summary"),
		"",
		panels,
		"",
		s.buildMeasurements(),
	}
	if len(s.problems) > 0 {
		parts = append(parts, "", components.WarningStyle.Render("Cannot archive yet:"))
		for _, p := range s.problems {
			parts = append(parts, components.WarningStyle.Render("  • "+p))
		}
	}
	if s.notice != "" {
		parts = append(parts, "", noticeStyle.Render(s.notice))
	}
	parts = append(parts, "", s.form.View(), "", "Enter: Select action | Ctrl+C: Quit")

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (s *SummaryScreen) buildGeneral() string {
	r := s.record
	var sb strings.Builder

	sb.WriteString(summaryTitleStyle.Render("General Information"))
	sb.WriteString("\n\n")

	params := []struct {
		label string
		value string
	}{
		{"Project", r.Project},
		{"Subject", r.SubjectLabel()},
		{"Session", r.SessionLabel()},
		{"Date", r.Date},
		{"Time", strings.Trim(r.TimeA+" - "+r.TimeB, " -")},
		{"Users", strings.Trim(r.User1+", "+r.User2, ", ")},
		{"Protocol", r.Filename() + ".txt"},
	}

	for _, p := range params {
		sb.WriteString(components.LabelStyle.Render(p.label + ": "))
		sb.WriteString(components.ValueStyle.Render(p.value))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (s *SummaryScreen) buildDocuments() string {
	r := s.record
	var sb strings.Builder

	sb.WriteString(summaryTitleStyle.Render("Documents"))
	sb.WriteString("\n\n")

	for _, item := range r.Checklist {
		box := "[ ]"
		if item.Checked {
			box = "[x]"
		}
		sb.WriteString(components.ValueStyle.Render(box))
		sb.WriteString(" ")
		sb.WriteString(item.Label)
		sb.WriteString("\n")
	}
	if len(r.Files) > 0 {
		sb.WriteString(components.LabelStyle.Render("Files: "))
		sb.WriteString(JoinList(r.Files))
		sb.WriteString("\n")
	}
	if r.Notes != "" {
		sb.WriteString(components.LabelStyle.Render("Notes: "))
		sb.WriteString(strings.SplitN(r.Notes, "\n", 2)[0])
		sb.WriteString("\n")
	}

	return sb.String()
}

func (s *SummaryScreen) buildMeasurements() string {
	rows := make([][]string, 0, len(s.record.Measurements))
	for _, m := range s.record.Measurements {
		vols := ""
		if m.Vols > 0 {
			vols = strconv.Itoa(m.Vols)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%03d", m.Number),
			m.Type.String(),
			m.Name,
			vols,
			JoinList(m.Logfiles),
			strings.SplitN(m.Comments, "\n", 2)[0],
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("63"))).
		Headers("No", "Type", "Name", "Vols", "Logfiles", "Comments").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Render()
}

// Done returns true if an action was selected
func (s *SummaryScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user cancelled
func (s *SummaryScreen) Cancelled() bool {
	return s.cancelled
}

// Action returns the selected action
func (s *SummaryScreen) Action() SummaryAction {
	switch {
	case s.action == actionAdd:
		return SummaryActionAdd
	case strings.HasPrefix(s.action, actionEditPrefix):
		return SummaryActionEdit
	case s.action == actionDelete:
		return SummaryActionDeleteLast
	case s.action == actionSession:
		return SummaryActionSession
	case s.action == actionDocuments:
		return SummaryActionDocuments
	case s.action == actionSave:
		return SummaryActionSave
	case s.action == actionArchive:
		return SummaryActionArchive
	default:
		return SummaryActionQuit
	}
}

// Index returns the measurement index selected for editing, -1 otherwise
func (s *SummaryScreen) Index() int {
	v, ok := strings.CutPrefix(s.action, actionEditPrefix)
	if !ok {
		return -1
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return i
}
