package synth

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// tbvjProject is the subset of a JSON Turbo-BrainVoyager project written here.
type tbvjProject struct {
	FileVersion    int    `json:"FileVersion"`
	Title          string `json:"Title"`
	DataFormatInfo struct {
		DicomFirstVolumeNr int    `json:"DicomFirstVolumeNr"`
		DicomFileNames     string `json:"DicomFileNames"`
	} `json:"DataFormatInfo"`
}

// ScannerProtocolPath is the absolute protocol path written into generated
// .fmr files, as the real-time software on the scanner console would.
func ScannerProtocolPath(title string) string {
	return fmt.Sprintf(`"C:/TBV/Projects/%s.prt"`, title)
}

// writeTBV writes one project file, one run folder holding an .fmr
// descriptor, and one stimulation protocol per run.
func writeTBV(root string, tbv TBV) error {
	dir := filepath.Join(root, tbv.Dir)
	for _, run := range tbv.Runs {
		if tbv.JSON {
			var p tbvjProject
			p.FileVersion = 1
			p.Title = run.Title
			p.DataFormatInfo.DicomFirstVolumeNr = run.Series
			p.DataFormatInfo.DicomFileNames = fmt.Sprintf("001_%06d_", run.Series)
			data, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return fmt.Errorf("encode tbvj project: %w", err)
			}
			if err := writeText(filepath.Join(dir, run.Title+".tbvj"), string(data)+"\n"); err != nil {
				return err
			}
		} else {
			var b strings.Builder
			fmt.Fprintf(&b, "FileVersion:                  9\n")
			fmt.Fprintf(&b, "Title:                        \"%s\"\n", run.Title)
			fmt.Fprintf(&b, "DicomFirstVolumeNr:           %d\n", run.Series)
			fmt.Fprintf(&b, "DicomFileNames:               \"001_%06d_\"\n", run.Series)
			if err := writeText(filepath.Join(dir, run.Title+".tbv"), b.String()); err != nil {
				return err
			}
		}

		fmr := fmt.Sprintf("FileVersion:          7\n\nProtocolFile:         %s\n\nPrefix:               \"%s\"\n",
			ScannerProtocolPath(run.Title), run.Title)
		if err := writeText(filepath.Join(dir, run.Title, run.Title+".fmr"), fmr); err != nil {
			return err
		}
		if err := writeText(filepath.Join(dir, run.Title+".prt"), "FileVersion:        2\nResolutionOfTime:   Volumes\n"); err != nil {
			return err
		}
	}
	return nil
}
