package archive

import "fmt"

// State is the phase an archiving run is in. Runs go through the states in
// order and never return to an earlier one.
type State int

const (
	Preparing State = iota
	PerMeasurement
	Finalizing
	Done
)

func (s State) String() string {
	switch s {
	case Preparing:
		return "Preparation"
	case PerMeasurement:
		return "Measurement"
	case Finalizing:
		return "Finalization"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status describes what a run is doing.
type Status struct {
	State       State
	Measurement int // measurement number, PerMeasurement only
	Index       int // 1-based position of the measurement
	Count       int // number of measurements
	Step        string
	Percent     int // progress of Step, 0 when unknown
}

func (s Status) String() string {
	phase := s.State.String()
	if s.State == PerMeasurement {
		phase = fmt.Sprintf("Measurement %d (%d of %d)", s.Measurement, s.Index, s.Count)
	}
	if s.Step == "" {
		return phase
	}
	if s.Percent > 0 {
		return fmt.Sprintf("%s: %s...%d%%", phase, s.Step, s.Percent)
	}
	return fmt.Sprintf("%s: %s...", phase, s.Step)
}

// Reporter receives progress from a running archive. Report is called on
// the archiving goroutine and must return promptly; implementations that
// hand statuses to another goroutine drop them rather than block.
type Reporter interface {
	Report(Status)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Status)

// Report calls f(s).
func (f ReporterFunc) Report(s Status) { f(s) }

// Discard is a Reporter that ignores all statuses.
var Discard Reporter = ReporterFunc(func(Status) {})

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}
