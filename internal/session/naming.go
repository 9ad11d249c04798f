package session

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SubjectLabel returns "sub-NNN" with "-<type>" appended when a subject type is set.
func (r *Record) SubjectLabel() string {
	return label("sub", r.SubjectNumber, r.SubjectType)
}

// SessionLabel returns "ses-NNN" with "-<type>" appended when a session type is set.
func (r *Record) SessionLabel() string {
	return label("ses", r.SessionNumber, r.SessionType)
}

func label(prefix string, number int, kind string) string {
	s := fmt.Sprintf("%s-%03d", prefix, number)
	if kind != "" {
		s += "-" + kind
	}
	return s
}

// SessionPath returns the archive folder of the session below root.
func (r *Record) SessionPath(root string) string {
	return filepath.Join(root, r.Project, r.SubjectLabel(), r.SessionLabel())
}

// Filename returns the protocol file name, without extension.
func (r *Record) Filename() string {
	project := r.Project
	if project == "" {
		project = "Project"
	}
	date := strings.ReplaceAll(r.Date, "-", "")
	if date == "" {
		date = "Date"
	}
	return strings.Join([]string{"ScanProtocol", project, r.SubjectLabel(), r.SessionLabel(), date}, "_")
}

// LinkPrefix returns the session part of BrainVoyager link names.
func (r *Record) LinkPrefix() string {
	return strings.ReplaceAll(r.Project+"_"+r.SubjectLabel()+"_"+r.SessionLabel(), "-", "")
}

// LogfileMask returns the mask stimulus software uses for the logfiles of
// the named measurement.
func (r *Record) LogfileMask(name string) string {
	return fmt.Sprintf("%s_%s_%s_%s.*", r.Project, r.SubjectLabel(), r.SessionLabel(), name)
}
