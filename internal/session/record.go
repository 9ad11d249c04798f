// Package session holds the in-memory record of one scan session: the
// general information, the document checklist and the ordered list of
// measurements acquired during the visit.
package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the layout of Record.Date.
const DateLayout = "2006-01-02"

// DefaultChecklist lists the documents every session starts with.
var DefaultChecklist = []string{
	"MR Safety Screening Form",
	"Participation Informed Consent Form",
}

// ErrDeleteRefused is returned by DeleteLast when the last measurement holds
// data or is the only one left.
var ErrDeleteRefused = errors.New("last measurement cannot be deleted")

// Measurement is one acquisition run declared by the operator. Number must
// equal the DICOM SeriesNumber of the images it stands for.
type Measurement struct {
	Number   int
	Type     Type
	Vols     int // expected volume count, 0 = unspecified
	Name     string
	Logfiles []string // file, directory or glob masks relative to the source root
	Comments string
}

// IsEmpty reports whether vols, name, logfiles and comments are all unset.
func (m Measurement) IsEmpty() bool {
	return m.Vols == 0 && m.Name == "" && len(m.Logfiles) == 0 && m.Comments == ""
}

// Folder returns the name of the folder the measurement is archived into.
func (m Measurement) Folder() string {
	return fmt.Sprintf("%03d-%s", m.Number, m.Name)
}

// ChecklistItem is one entry of the document checklist.
type ChecklistItem struct {
	Label   string
	Checked bool
}

// Record is the metadata of one scan session.
type Record struct {
	Project       string
	SubjectNumber int
	SubjectType   string
	SessionNumber int
	SessionType   string
	Date          string
	TimeA         string
	TimeB         string
	User1         string
	User2         string
	Notes         string

	Files        []string
	Checklist    []ChecklistItem
	Measurements []Measurement
}

// New returns a record for a session taking place today, with the default
// checklist and a single blank measurement.
func New() *Record {
	r := &Record{
		SubjectNumber: 1,
		SessionNumber: 1,
		Date:          time.Now().Format(DateLayout),
		Measurements:  []Measurement{{Number: 1, Type: Anat}},
	}
	for _, label := range DefaultChecklist {
		r.Checklist = append(r.Checklist, ChecklistItem{Label: label})
	}
	return r
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Files = slices.Clone(r.Files)
	c.Checklist = slices.Clone(r.Checklist)
	c.Measurements = make([]Measurement, len(r.Measurements))
	for i, m := range r.Measurements {
		m.Logfiles = slices.Clone(m.Logfiles)
		c.Measurements[i] = m
	}
	return &c
}

// AddMeasurement appends a blank measurement numbered after the current last
// one and inheriting its type.
func (r *Record) AddMeasurement() *Measurement {
	m := Measurement{Number: 1, Type: Anat}
	if n := len(r.Measurements); n > 0 {
		last := r.Measurements[n-1]
		m.Number = last.Number + 1
		m.Type = last.Type
	}
	r.Measurements = append(r.Measurements, m)
	return &r.Measurements[len(r.Measurements)-1]
}

// CanDeleteLast reports whether DeleteLast would succeed.
func (r *Record) CanDeleteLast() bool {
	n := len(r.Measurements)
	return n > 1 && r.Measurements[n-1].IsEmpty()
}

// DeleteLast removes the last measurement. Only an empty measurement can be
// removed, and at least one measurement always remains.
func (r *Record) DeleteLast() error {
	if !r.CanDeleteLast() {
		return ErrDeleteRefused
	}
	r.Measurements = r.Measurements[:len(r.Measurements)-1]
	return nil
}

// Checked returns the state of a checklist label; unknown labels are unchecked.
func (r *Record) Checked(label string) bool {
	for _, item := range r.Checklist {
		if item.Label == label {
			return item.Checked
		}
	}
	return false
}

// SetChecked sets a checklist label, appending it when absent.
func (r *Record) SetChecked(label string, checked bool) {
	for i := range r.Checklist {
		if r.Checklist[i].Label == label {
			r.Checklist[i].Checked = checked
			return
		}
	}
	r.Checklist = append(r.Checklist, ChecklistItem{Label: label, Checked: checked})
}

// Validate checks the fields archiving depends on.
func (r *Record) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Project) == "" {
		errs = append(errs, errors.New("project is required"))
	}
	if r.SubjectNumber < 1 || r.SubjectNumber > 999 {
		errs = append(errs, fmt.Errorf("subject number %d out of range 1-999", r.SubjectNumber))
	}
	if r.SessionNumber < 1 || r.SessionNumber > 999 {
		errs = append(errs, fmt.Errorf("session number %d out of range 1-999", r.SessionNumber))
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		errs = append(errs, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", r.Date))
	}
	if len(r.Measurements) == 0 {
		errs = append(errs, errors.New("at least one measurement is required"))
	}
	for _, m := range r.Measurements {
		if m.Number < 1 || m.Number > 999 {
			errs = append(errs, fmt.Errorf("measurement number %d out of range 1-999", m.Number))
		}
	}
	return errors.Join(errs...)
}
