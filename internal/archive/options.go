// Package archive copies the data of a documented scan session from a
// scanner export into the canonical archive layout:
//
//	<target>/<project>/sub-NNN[-type]/ses-NNN[-type]/
//	    <type>/NNN-<name>/DICOM/...
//	    BV/...    hard links named for BrainVoyager
//	    TBV/...   Turbo-BrainVoyager working files and hard links
//	    <session files and documents>
//	    ScanProtocol_<...>.txt
//
// Only an existing or uncreatable session folder aborts a run. Every other
// problem is recorded as one warning line and the run continues.
package archive

import "errors"

var (
	// ErrSessionExists is returned when the session folder is already present.
	ErrSessionExists = errors.New("already exists")
	// ErrCreateSession is returned when the session folder cannot be created.
	ErrCreateSession = errors.New("could not create target directory")
)

// Options are the archiving parameters chosen for a run.
type Options struct {
	Source    string // scanner export to read
	Target    string // archive root
	BVLinks   bool   // create BrainVoyager links in BV/
	TBVLinks  bool   // copy and link Turbo-BrainVoyager files in TBV/
	TBVDir    string // Turbo-BrainVoyager working directory inside Source
	TBVPrefix string // name prefix of real-time runs
	Workers   int    // DICOM decoders; 0 = CPU cores
}

// DefaultOptions returns options with the usual Turbo-BrainVoyager names.
func DefaultOptions() Options {
	return Options{
		TBVDir:    "TBVFiles",
		TBVPrefix: "TBV_",
	}
}
