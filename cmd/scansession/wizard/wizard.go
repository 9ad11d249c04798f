package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/scansession/cmd/scansession/wizard/components"
	"github.com/mrsinham/scansession/cmd/scansession/wizard/screens"
	"github.com/mrsinham/scansession/internal/archive"
	"github.com/mrsinham/scansession/internal/config"
	"github.com/mrsinham/scansession/internal/protocol"
	"github.com/mrsinham/scansession/internal/session"
)

// Phase represents the current phase/screen of the wizard.
type Phase int

const (
	PhaseSession Phase = iota
	PhaseDocuments
	PhaseMeasurement
	PhaseSummary
	PhaseSaveProtocol
	PhaseArchive
	PhaseProgress
	PhaseComplete
	PhaseError
)

// statuses buffered between the archiving goroutine and the program loop
const statusBuffer = 64

// Wizard is the main orchestrator for the wizard interface.
type Wizard struct {
	state *State
	phase Phase

	// Screen instances
	sessionScreen     *screens.SessionScreen
	documentsScreen   *screens.DocumentsScreen
	measurementScreen *screens.MeasurementScreen
	summaryScreen     *screens.SummaryScreen
	archiveScreen     *screens.ArchiveScreen
	progressScreen    *screens.ProgressScreen
	completionScreen  *screens.CompletionScreen
	errorScreen       *screens.ErrorScreen

	// Screens edit a copy that is committed when they complete
	draft       *session.Record
	editing     session.Measurement
	editIndex   int
	initialFlow bool

	// Save protocol form
	saveForm     *huh.Form
	protocolPath string

	// Archiving
	archiveMsgs   <-chan tea.Msg
	cancelArchive context.CancelFunc

	notice string
	dirty  bool

	width  int
	height int

	cancelled bool
	finished  bool
	err       error
}

// NewWizard creates a wizard over state. A record that was not loaded from
// a file is entered screen by screen before the summary is shown.
func NewWizard(state *State) *Wizard {
	w := &Wizard{state: state}
	if state.ProtocolPath == "" {
		w.initialFlow = true
		w.transitionToSession()
	} else {
		w.phase = PhaseSummary
		w.notice = "Loaded " + state.ProtocolPath
		w.summaryScreen = screens.NewSummaryScreen(state.Record, w.notice)
	}
	return w
}

// Init implements tea.Model.
func (w *Wizard) Init() tea.Cmd {
	if w.phase == PhaseSummary {
		return w.summaryScreen.Init()
	}
	return w.sessionScreen.Init()
}

// Update implements tea.Model.
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		w.width = wsm.Width
		w.height = wsm.Height
	}

	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+c" {
		switch w.phase {
		case PhaseSession, PhaseDocuments, PhaseMeasurement, PhaseArchive:
			w.cancelled = true
			return w, tea.Quit
		}
	}

	switch w.phase {
	case PhaseSession:
		return w.updateSession(msg)
	case PhaseDocuments:
		return w.updateDocuments(msg)
	case PhaseMeasurement:
		return w.updateMeasurement(msg)
	case PhaseSummary:
		return w.updateSummary(msg)
	case PhaseSaveProtocol:
		return w.updateSaveProtocol(msg)
	case PhaseArchive:
		return w.updateArchive(msg)
	case PhaseProgress:
		return w.updateProgress(msg)
	case PhaseComplete:
		return w.updateComplete(msg)
	case PhaseError:
		return w.updateError(msg)
	}

	return w, nil
}

// View implements tea.Model.
func (w *Wizard) View() string {
	switch w.phase {
	case PhaseSession:
		return w.sessionScreen.View()
	case PhaseDocuments:
		return w.documentsScreen.View()
	case PhaseMeasurement:
		return w.measurementScreen.View()
	case PhaseSummary:
		return w.summaryScreen.View()
	case PhaseSaveProtocol:
		return w.viewSaveProtocol()
	case PhaseArchive:
		return w.archiveScreen.View()
	case PhaseProgress:
		return w.progressScreen.View()
	case PhaseComplete:
		return w.completionScreen.View()
	case PhaseError:
		return w.errorScreen.View()
	}

	return ""
}

func (w *Wizard) transitionToSession() {
	w.phase = PhaseSession
	w.draft = w.state.Record.Clone()
	w.sessionScreen = screens.NewSessionScreen(w.draft, w.state.Projects)
}

// leaveEditor handles Esc on an editing screen. During the first pass it
// steps back to the previous screen, or quits from the first one; later
// edits are dropped and the summary is shown again.
func (w *Wizard) leaveEditor() (tea.Model, tea.Cmd) {
	if !w.initialFlow {
		return w.transitionToSummary()
	}
	switch w.phase {
	case PhaseDocuments:
		w.transitionToSession()
		return w, w.sessionScreen.Init()
	case PhaseMeasurement:
		return w.transitionToDocuments()
	}
	w.cancelled = true
	return w, tea.Quit
}

// updateSession handles updates in the general information phase.
func (w *Wizard) updateSession(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.sessionScreen.Update(msg)
	if ss, ok := model.(*screens.SessionScreen); ok {
		w.sessionScreen = ss
	}

	if w.sessionScreen.Cancelled() {
		return w.leaveEditor()
	}

	if w.sessionScreen.Done() {
		w.commit(w.draft)
		w.state.applyProject()
		if w.initialFlow {
			return w.transitionToDocuments()
		}
		return w.transitionToSummary()
	}

	return w, cmd
}

func (w *Wizard) transitionToDocuments() (tea.Model, tea.Cmd) {
	w.phase = PhaseDocuments
	w.draft = w.state.Record.Clone()
	w.documentsScreen = screens.NewDocumentsScreen(w.draft)
	return w, w.documentsScreen.Init()
}

// updateDocuments handles updates in the documents phase.
func (w *Wizard) updateDocuments(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.documentsScreen.Update(msg)
	if ds, ok := model.(*screens.DocumentsScreen); ok {
		w.documentsScreen = ds
	}

	if w.documentsScreen.Cancelled() {
		return w.leaveEditor()
	}

	if w.documentsScreen.Done() {
		w.commit(w.draft)
		if w.initialFlow {
			return w.transitionToMeasurement(0)
		}
		return w.transitionToSummary()
	}

	return w, cmd
}

// transitionToMeasurement edits the measurement at index. An index past the
// end edits a new measurement that is appended on completion.
func (w *Wizard) transitionToMeasurement(index int) (tea.Model, tea.Cmd) {
	rec := w.state.Record
	if index >= len(rec.Measurements) {
		next := rec.Clone()
		next.AddMeasurement()
		index = len(rec.Measurements)
		w.editing = next.Measurements[index]
	} else {
		w.editing = rec.Clone().Measurements[index]
	}
	w.editIndex = index

	w.phase = PhaseMeasurement
	w.measurementScreen = screens.NewMeasurementScreen(&w.editing, w.state.measurementNames(w.editing.Type))
	return w, w.measurementScreen.Init()
}

// updateMeasurement handles updates in the measurement phase.
func (w *Wizard) updateMeasurement(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.measurementScreen.Update(msg)
	if ms, ok := model.(*screens.MeasurementScreen); ok {
		w.measurementScreen = ms
	}

	if w.measurementScreen.Cancelled() {
		return w.leaveEditor()
	}

	if w.measurementScreen.Done() {
		w.saveMeasurement()
		w.initialFlow = false
		return w.transitionToSummary()
	}

	return w, cmd
}

// saveMeasurement stores the edited measurement in the record.
func (w *Wizard) saveMeasurement() {
	rec := w.state.Record
	w.state.completeMeasurement(&w.editing)
	if w.editIndex >= len(rec.Measurements) {
		rec.Measurements = append(rec.Measurements, w.editing)
		w.notice = fmt.Sprintf("Added measurement %d", w.editing.Number)
	} else {
		rec.Measurements[w.editIndex] = w.editing
		w.notice = fmt.Sprintf("Updated measurement %d", w.editing.Number)
	}
	w.dirty = true
}

// commit replaces the record with an edited copy.
func (w *Wizard) commit(r *session.Record) {
	w.state.Record = r
	w.draft = nil
	w.dirty = true
}

func (w *Wizard) transitionToSummary() (tea.Model, tea.Cmd) {
	w.phase = PhaseSummary
	w.summaryScreen = screens.NewSummaryScreen(w.state.Record, w.notice)
	w.notice = ""
	return w, w.summaryScreen.Init()
}

// updateSummary handles updates in the summary phase.
func (w *Wizard) updateSummary(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.summaryScreen.Update(msg)
	if ss, ok := model.(*screens.SummaryScreen); ok {
		w.summaryScreen = ss
	}

	if w.summaryScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	if w.summaryScreen.Done() {
		switch w.summaryScreen.Action() {
		case screens.SummaryActionAdd:
			return w.transitionToMeasurement(len(w.state.Record.Measurements))

		case screens.SummaryActionEdit:
			return w.transitionToMeasurement(w.summaryScreen.Index())

		case screens.SummaryActionDeleteLast:
			if err := w.state.Record.DeleteLast(); err != nil {
				w.notice = err.Error()
			} else {
				w.notice = "Deleted last measurement"
				w.dirty = true
			}
			return w.transitionToSummary()

		case screens.SummaryActionSession:
			w.transitionToSession()
			return w, w.sessionScreen.Init()

		case screens.SummaryActionDocuments:
			return w.transitionToDocuments()

		case screens.SummaryActionSave:
			return w.transitionToSaveProtocol()

		case screens.SummaryActionArchive:
			return w.transitionToArchive()

		case screens.SummaryActionQuit:
			w.finished = true
			return w, tea.Quit
		}
	}

	return w, cmd
}

// transitionToSaveProtocol shows the save protocol dialog.
func (w *Wizard) transitionToSaveProtocol() (tea.Model, tea.Cmd) {
	w.phase = PhaseSaveProtocol
	w.protocolPath = w.state.protocolPath()

	w.saveForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("protocol_path").
				Title("Save protocol to").
				Description("Enter the path of the protocol text file").
				Value(&w.protocolPath).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("path is required")
					}
					return nil
				}),
		),
	).WithShowHelp(false)

	return w, w.saveForm.Init()
}

// updateSaveProtocol handles updates in the save protocol phase.
func (w *Wizard) updateSaveProtocol(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return w.transitionToSummary()
		case "ctrl+c":
			w.cancelled = true
			return w, tea.Quit
		}
	}

	form, cmd := w.saveForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		w.saveForm = f
	}

	if w.saveForm.State == huh.StateCompleted {
		if err := protocol.WriteFile(w.protocolPath, w.state.Record); err != nil {
			return w.showError(fmt.Errorf("saving protocol: %w", err))
		}
		w.state.ProtocolPath = w.protocolPath
		w.dirty = false
		w.notice = "Saved protocol to " + w.protocolPath
		return w.transitionToSummary()
	}

	return w, cmd
}

// viewSaveProtocol renders the save protocol dialog.
func (w *Wizard) viewSaveProtocol() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		components.Title("Save Protocol"),
		"",
		w.saveForm.View(),
		"",
		"Enter: Save | Esc: Back",
	)
}

func (w *Wizard) transitionToArchive() (tea.Model, tea.Cmd) {
	w.phase = PhaseArchive
	w.archiveScreen = screens.NewArchiveScreen(w.state.Archive, w.state.Record.SessionPath)
	return w, w.archiveScreen.Init()
}

// updateArchive handles updates in the archive options phase.
func (w *Wizard) updateArchive(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.archiveScreen.Update(msg)
	if as, ok := model.(*screens.ArchiveScreen); ok {
		w.archiveScreen = as
	}

	if w.archiveScreen.Cancelled() {
		return w.transitionToSummary()
	}

	if w.archiveScreen.Done() {
		w.state.Archive = w.archiveScreen.Settings()
		if w.archiveScreen.Remember() {
			if err := config.SaveArchive(w.state.ConfigPath, w.state.Archive); err != nil {
				return w.showError(fmt.Errorf("saving archive settings: %w", err))
			}
		}
		return w.startArchive()
	}

	return w, cmd
}

// startArchive archives the record in a goroutine. Its statuses reach the
// program loop through archiveMsgs.
func (w *Wizard) startArchive() (tea.Model, tea.Cmd) {
	opts := w.state.Archive.Options()
	rec := w.state.Record.Clone()

	ctx, cancel := context.WithCancel(context.Background())
	w.cancelArchive = cancel
	w.archiveMsgs = runArchive(ctx, rec, opts)

	w.phase = PhaseProgress
	w.progressScreen = screens.NewProgressScreen(rec.SessionPath(opts.Target))
	return w, waitForArchive(w.archiveMsgs)
}

// runArchive starts archiving and returns the channel its messages arrive
// on. Statuses are dropped when the channel is full; the final
// CompletionMsg or ErrorMsg is always delivered before the channel closes.
func runArchive(ctx context.Context, rec *session.Record, opts archive.Options) <-chan tea.Msg {
	msgs := make(chan tea.Msg, statusBuffer)
	rep := archive.ReporterFunc(func(s archive.Status) {
		select {
		case msgs <- screens.StatusMsg{Status: s}:
		default:
		}
	})

	go func() {
		defer close(msgs)
		start := time.Now()
		res, err := archive.Run(ctx, rec, opts, rep)
		if err != nil {
			msgs <- screens.ErrorMsg{Error: err}
			return
		}
		msgs <- screens.CompletionMsg{Result: res, Duration: time.Since(start)}
	}()

	return msgs
}

// waitForArchive returns a command that waits for the next archiving message.
func waitForArchive(msgs <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-msgs
		if !ok {
			return nil
		}
		return msg
	}
}

// updateProgress handles updates in the progress phase.
func (w *Wizard) updateProgress(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case screens.StatusMsg:
		w.progressScreen.Update(msg)
		return w, waitForArchive(w.archiveMsgs)

	case screens.CompletionMsg:
		w.stopArchive()
		w.state.Record = msg.Result.Record
		w.phase = PhaseComplete
		w.completionScreen = screens.NewCompletionScreen(msg)
		return w, nil

	case screens.ErrorMsg:
		w.stopArchive()
		if errors.Is(msg.Error, context.Canceled) {
			return w.showError(errors.New("archiving stopped, the session folder is incomplete"))
		}
		return w.showError(msg.Error)
	}

	model, cmd := w.progressScreen.Update(msg)
	if ps, ok := model.(*screens.ProgressScreen); ok {
		w.progressScreen = ps
	}

	if w.progressScreen.Cancelled() && w.cancelArchive != nil {
		w.cancelArchive()
	}

	return w, cmd
}

func (w *Wizard) stopArchive() {
	if w.cancelArchive != nil {
		w.cancelArchive()
		w.cancelArchive = nil
	}
	w.archiveMsgs = nil
}

// updateComplete handles updates in the completion phase.
func (w *Wizard) updateComplete(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.completionScreen.Update(msg)
	if cs, ok := model.(*screens.CompletionScreen); ok {
		w.completionScreen = cs
	}

	if w.completionScreen.Done() {
		if w.completionScreen.Quit() {
			w.finished = true
			return w, tea.Quit
		}
		w.notice = "Archived to " + w.progressScreen.SessionDir()
		return w.transitionToSummary()
	}

	return w, cmd
}

func (w *Wizard) showError(err error) (tea.Model, tea.Cmd) {
	w.phase = PhaseError
	w.err = err
	w.errorScreen = screens.NewErrorScreen(err)
	return w, nil
}

// updateError handles updates in the error phase.
func (w *Wizard) updateError(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.errorScreen.Update(msg)
	if es, ok := model.(*screens.ErrorScreen); ok {
		w.errorScreen = es
	}

	if w.errorScreen.Done() {
		if w.errorScreen.Quit() {
			w.finished = true
			return w, tea.Quit
		}
		w.err = nil
		return w.transitionToSummary()
	}

	return w, cmd
}

// Run starts the interactive wizard. With opts.From set the session is
// loaded from that protocol and the wizard opens on the summary.
func Run(opts Options) error {
	state, err := LoadState(opts)
	if err != nil {
		return err
	}

	wizard := NewWizard(state)
	p := tea.NewProgram(wizard, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("running wizard: %w", err)
	}

	if w, ok := finalModel.(*Wizard); ok {
		if w.cancelled {
			return nil
		}
		if w.err != nil {
			return w.err
		}
		if w.dirty {
			fmt.Println("Protocol changes were not saved.")
		}
	}

	return nil
}
