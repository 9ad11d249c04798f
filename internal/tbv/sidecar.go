// Package tbv reads Turbo-BrainVoyager project sidecars and relocates the
// stimulation protocol reference of their run descriptors.
//
// The text format is undocumented. Fields are found by substring and their
// value is the last token of the line, so unknown lines and reordered fields
// are tolerated. A run is usable only when both its title and its first
// volume number were found.
package tbv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Field names looked up in sidecar files.
const (
	titleField  = "Title"
	numberField = "DicomFirstVolumeNr"
)

// ErrIncomplete is returned when a sidecar lacks its title or run number.
var ErrIncomplete = errors.New("incomplete sidecar")

// Run is one real-time run described by a project sidecar.
type Run struct {
	Number int    // DICOM series of the run
	Title  string // run folder and file stem
	Path   string // sidecar the run was read from
}

// ParseText scans a structured-text (.tbv) project.
func ParseText(r io.Reader) (Run, error) {
	var run Run
	var haveTitle, haveNumber bool

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		last := strings.TrimRight(fields[len(fields)-1], ",")

		if strings.Contains(line, numberField) {
			if n, err := strconv.Atoi(last); err == nil {
				run.Number = n
				haveNumber = true
			}
		}
		if strings.Contains(line, titleField) {
			run.Title = strings.ReplaceAll(last, `"`, "")
			haveTitle = run.Title != ""
		}
	}
	if err := scanner.Err(); err != nil {
		return Run{}, err
	}
	return run, complete(run, haveTitle, haveNumber)
}

// ParseJSON decodes a JSON (.tbvj) project.
func ParseJSON(data []byte) (Run, error) {
	var doc struct {
		Title          *string `json:"Title"`
		DataFormatInfo *struct {
			DicomFirstVolumeNr *json.Number `json:"DicomFirstVolumeNr"`
		} `json:"DataFormatInfo"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Run{}, err
	}

	var run Run
	haveTitle := doc.Title != nil && *doc.Title != ""
	if haveTitle {
		run.Title = *doc.Title
	}
	haveNumber := false
	if doc.DataFormatInfo != nil && doc.DataFormatInfo.DicomFirstVolumeNr != nil {
		n, err := strconv.Atoi(doc.DataFormatInfo.DicomFirstVolumeNr.String())
		if err != nil {
			return Run{}, fmt.Errorf("%s: %w", numberField, err)
		}
		run.Number = n
		haveNumber = true
	}
	return run, complete(run, haveTitle, haveNumber)
}

func complete(run Run, haveTitle, haveNumber bool) error {
	var missing []string
	if !haveTitle {
		missing = append(missing, titleField)
	}
	if !haveNumber {
		missing = append(missing, numberField)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// ParseFile reads a sidecar, choosing the format by extension.
func ParseFile(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, err
	}

	var run Run
	if filepath.Ext(path) == ".tbvj" {
		run, err = ParseJSON(data)
	} else {
		run, err = ParseText(strings.NewReader(string(data)))
	}
	if err != nil {
		return Run{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	run.Path = path
	return run, nil
}

// Scan reads the project sidecars directly inside dir. Text projects are
// preferred; JSON projects are only read when there is no .tbv file. Runs
// come back ordered by number. Unreadable sidecars are returned as errors
// and do not stop the scan.
func Scan(dir string) ([]Run, []error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.tbv"))
	if err == nil && len(files) == 0 {
		files, err = filepath.Glob(filepath.Join(dir, "*.tbvj"))
	}
	if err != nil {
		return nil, []error{err}
	}

	var runs []Run
	var errs []error
	for _, path := range files {
		run, err := ParseFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		runs = append(runs, run)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Number < runs[j].Number })
	return runs, errs
}
