package screens

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/scansession/cmd/scansession/wizard/components"
	"github.com/mrsinham/scansession/internal/archive"
)

// StatusMsg carries one status report from the archiving goroutine
type StatusMsg struct {
	Status archive.Status
}

// CompletionMsg is sent when archiving completes
type CompletionMsg struct {
	Result   *archive.Result
	Duration time.Duration
}

// ErrorMsg is sent when archiving fails
type ErrorMsg struct {
	Error error
}

var (
	progressBarStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63"))

	progressBarEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	progressPercentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63")).
				Bold(true)

	progressStepStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))
)

// ProgressScreen displays archiving progress
type ProgressScreen struct {
	status     archive.Status
	sessionDir string
	startTime  time.Time
	cancelled  bool
	width      int
	height     int
}

// NewProgressScreen creates a new progress screen
func NewProgressScreen(sessionDir string) *ProgressScreen {
	return &ProgressScreen{
		sessionDir: sessionDir,
		startTime:  time.Now(),
	}
}

// Init implements tea.Model
func (s *ProgressScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *ProgressScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			s.cancelled = true
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	case StatusMsg:
		s.status = msg.Status
	}

	return s, nil
}

// Overall returns the progress of the whole run in percent. Preparation,
// each measurement and finalization weigh the same.
func (s *ProgressScreen) Overall() int {
	st := s.status
	stages := st.Count + 2
	var stage int
	switch st.State {
	case archive.Preparing:
		stage = 0
	case archive.PerMeasurement:
		stage = st.Index
	case archive.Finalizing:
		stage = st.Count + 1
	case archive.Done:
		return 100
	}
	return (stage*100 + st.Percent) / stages
}

// View implements tea.Model
func (s *ProgressScreen) View() string {
	title := components.TitleStyle.Render("Archiving to " + s.sessionDir)

	barWidth := 40
	if s.width > 60 {
		barWidth = min(s.width/2, 60)
	}
	percent := s.Overall()

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	sb.WriteString(renderProgressBar(percent, barWidth))
	sb.WriteString(" ")
	sb.WriteString(progressPercentStyle.Render(fmt.Sprintf("%d%%", percent)))
	sb.WriteString("\n\n")
	sb.WriteString(progressStepStyle.Render(s.status.String()))
	sb.WriteString("\n")
	sb.WriteString(progressStepStyle.Render(fmt.Sprintf("Elapsed: %.1fs", time.Since(s.startTime).Seconds())))
	sb.WriteString("\n\n")
	if s.cancelled {
		sb.WriteString(components.WarningStyle.Render("Stopping after the current measurement..."))
	} else {
		sb.WriteString(components.HintStyle.Render("Press Ctrl+C to stop"))
	}

	return sb.String()
}

func renderProgressBar(percent, width int) string {
	filled := min(percent*width/100, width)
	bar := progressBarStyle.Render("[" + strings.Repeat("█", filled))
	bar += progressBarEmptyStyle.Render(strings.Repeat("░", width-filled) + "]")
	return bar
}

// Cancelled returns true if the user asked to stop
func (s *ProgressScreen) Cancelled() bool {
	return s.cancelled
}

// SessionDir returns the folder being archived into
func (s *ProgressScreen) SessionDir() string {
	return s.sessionDir
}

var (
	completionSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true)

	completionButtonFocusedStyle = lipgloss.NewStyle().
					Background(lipgloss.Color("33")).
					Foreground(lipgloss.Color("255")).
					Padding(0, 2).
					Bold(true)
)

// CompletionScreen displays the archive report
type CompletionScreen struct {
	result   *archive.Result
	duration time.Duration
	done     bool
	quit     bool
}

// NewCompletionScreen creates a new completion screen
func NewCompletionScreen(msg CompletionMsg) *CompletionScreen {
	return &CompletionScreen{
		result:   msg.Result,
		duration: msg.Duration,
	}
}

// Init implements tea.Model
func (s *CompletionScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *CompletionScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter", "esc":
			s.done = true
		case "ctrl+c", "q":
			s.done = true
			s.quit = true
		}
	}
	return s, nil
}

// View implements tea.Model
func (s *CompletionScreen) View() string {
	var sb strings.Builder

	header := "Archiving complete!"
	if len(s.result.Warnings) > 0 {
		header = fmt.Sprintf("Archiving complete with %d warnings", len(s.result.Warnings))
	}
	sb.WriteString(completionSuccessStyle.Render("✓ " + header))
	sb.WriteString("\n\n")

	lines := strings.Split(strings.TrimRight(s.result.Report(), "\n"), "\n")
	sb.WriteString(components.ValueStyle.Render(lines[0]))
	sb.WriteString("\n")
	sb.WriteString(components.LabelStyle.Render(fmt.Sprintf("%s in %.1fs", s.result.Summary(), s.duration.Seconds())))
	sb.WriteString("\n")
	if len(lines) > 1 {
		sb.WriteString("\n")
		sb.WriteString(components.TitleStyle.Render("Warnings:"))
		sb.WriteString("\n")
		for _, w := range lines[1:] {
			sb.WriteString(components.WarningStyle.Render("  • " + w))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(completionButtonFocusedStyle.Render("Back"))
	sb.WriteString("\n\n")
	sb.WriteString(components.HintStyle.Render("Enter: Back to summary | q: Quit"))

	return sb.String()
}

// Done returns true if the user is finished
func (s *CompletionScreen) Done() bool {
	return s.done
}

// Quit returns true if the wizard should exit rather than return to the summary
func (s *CompletionScreen) Quit() bool {
	return s.quit
}

var (
	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))
)

// ErrorScreen displays an error that stopped an action
type ErrorScreen struct {
	err  error
	done bool
	quit bool
}

// NewErrorScreen creates a new error screen
func NewErrorScreen(err error) *ErrorScreen {
	return &ErrorScreen{
		err: err,
	}
}

// Init implements tea.Model
func (s *ErrorScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *ErrorScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter", "esc":
			s.done = true
		case "ctrl+c", "q":
			s.done = true
			s.quit = true
		}
	}
	return s, nil
}

// View implements tea.Model
func (s *ErrorScreen) View() string {
	var sb strings.Builder

	sb.WriteString(errorTitleStyle.Render("✗ Failed"))
	sb.WriteString("\n\n")
	sb.WriteString(components.TitleStyle.Render("Error:"))
	sb.WriteString("\n")
	sb.WriteString("  ")
	sb.WriteString(errorMessageStyle.Render(s.err.Error()))
	sb.WriteString("\n\n")
	sb.WriteString(components.HintStyle.Render("Enter: Back to summary | q: Quit"))

	return sb.String()
}

// Done returns true if the user is finished
func (s *ErrorScreen) Done() bool {
	return s.done
}

// Quit returns true if the wizard should exit rather than return to the summary
func (s *ErrorScreen) Quit() bool {
	return s.quit
}

// Error returns the error
func (s *ErrorScreen) Error() error {
	return s.err
}
