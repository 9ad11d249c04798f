package archive

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/mrsinham/scansession/internal/dicom"
	"github.com/mrsinham/scansession/internal/protocol"
	"github.com/mrsinham/scansession/internal/session"
	"github.com/mrsinham/scansession/internal/synth"
)

type fixture struct {
	source string
	target string
}

func newFixture(t *testing.T, opts synth.Options) fixture {
	t.Helper()
	f := fixture{source: t.TempDir(), target: t.TempDir()}
	opts.OutputDir = f.source
	opts.Quiet = true
	if _, err := synth.Generate(context.Background(), opts); err != nil {
		t.Fatalf("synth.Generate failed: %v", err)
	}
	return f
}

func (f fixture) options() Options {
	opts := DefaultOptions()
	opts.Source = f.source
	opts.Target = f.target
	return opts
}

func newRecord(measurements ...session.Measurement) *session.Record {
	r := session.New()
	r.Project = "Lab1"
	r.SubjectNumber = 1
	r.SessionNumber = 7
	r.SessionType = "Transfer"
	r.Date = "2021-12-03"
	r.Measurements = measurements
	return r
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return n
}

func warningsContaining(res *Result, s string) []string {
	var out []string
	for _, w := range res.Warnings {
		if strings.Contains(w, s) {
			out = append(out, w)
		}
	}
	return out
}

func TestRun_ThreeImages(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{{Number: 1, Protocol: "Run1", Volumes: 3}},
	})
	r := newRecord(session.Measurement{Number: 1, Type: session.Func, Vols: 3, Name: "Run1"})

	res, err := Run(context.Background(), r, f.options(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantDir := filepath.Join(f.target, "Lab1", "sub-001", "ses-007-Transfer")
	if res.SessionDir != wantDir {
		t.Errorf("Expected session folder %s, got %s", wantDir, res.SessionDir)
	}
	dicomDir := filepath.Join(wantDir, "func", "001-Run1", "DICOM")
	if n := countFiles(t, dicomDir); n != 3 {
		t.Errorf("Expected 3 files in %s, got %d", dicomDir, n)
	}
	if got := warningsContaining(res, "measurement 1"); len(got) != 0 {
		t.Errorf("Expected no warnings for measurement 1, got %v", got)
	}
	if res.Files != 3 || res.Bytes == 0 {
		t.Errorf("Expected 3 files copied, got %d (%d bytes)", res.Files, res.Bytes)
	}

	saved, err := protocol.ReadFile(filepath.Join(wantDir, "ScanProtocol_Lab1_sub-001_ses-007-Transfer_20211203.txt"))
	if err != nil {
		t.Fatalf("Saved protocol not readable: %v", err)
	}
	if !reflect.DeepEqual(saved, res.Record) {
		t.Errorf("Saved protocol differs from archived record:\n%+v\n%+v", saved, res.Record)
	}
}

func TestRun_SessionExists(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{{Number: 1, Protocol: "T1", Volumes: 2}},
	})
	r := newRecord(session.Measurement{Number: 1, Type: session.Anat, Vols: 2, Name: "T1"})

	if _, err := Run(context.Background(), r, f.options(), nil); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	before := countFiles(t, f.target)

	res, err := Run(context.Background(), r, f.options(), nil)
	if !errors.Is(err, ErrSessionExists) {
		t.Fatalf("Expected ErrSessionExists, got %v", err)
	}
	if res != nil {
		t.Errorf("Expected no result on fatal error, got %+v", res)
	}
	if !strings.Contains(err.Error(), "ses-007-Transfer already exists") {
		t.Errorf("Expected error to name the session folder, got %q", err)
	}
	if after := countFiles(t, f.target); after != before {
		t.Errorf("Second run changed the target: %d files before, %d after", before, after)
	}
}

func TestRun_Preconditions(t *testing.T) {
	f := newFixture(t, synth.Options{})

	r := newRecord(session.Measurement{Number: 1, Type: session.Anat})
	r.Project = ""
	if _, err := Run(context.Background(), r, f.options(), nil); err == nil {
		t.Error("Expected error for record without project")
	}

	opts := f.options()
	opts.Source = filepath.Join(f.source, "missing")
	if _, err := Run(context.Background(), newRecord(session.Measurement{Number: 1}), opts, nil); err == nil {
		t.Error("Expected error for missing source")
	}

	if entries, _ := os.ReadDir(f.target); len(entries) != 0 {
		t.Errorf("Nothing should be created before preconditions pass, got %d entries", len(entries))
	}
}

func TestRun_PartialData(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{
			{Number: 1, Protocol: "Localizer", Volumes: 3},
			{Number: 3, Protocol: "Run2", Volumes: 4},
		},
		Corrupt: 1,
	})
	r := newRecord(
		session.Measurement{Number: 1, Type: session.Anat, Vols: 3, Name: "Localizer"},
		session.Measurement{Number: 2, Type: session.Func, Vols: 4, Name: "Run1"},
		session.Measurement{Number: 3, Type: session.Func, Vols: 5, Name: "Run2"},
		session.Measurement{Number: 4, Type: session.Misc, Name: ""},
		session.Measurement{Number: 5, Type: session.Misc, Name: "Rest"},
	)

	res, err := Run(context.Background(), r, f.options(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := warningsContaining(res, ProblemNoImages); len(got) != 1 || !strings.Contains(got[0], "measurement 2") {
		t.Errorf("Expected one No images found line for measurement 2, got %v", got)
	}
	if got := warningsContaining(res, ProblemNoName); len(got) != 1 {
		t.Errorf("Expected one Name not specified line, got %v", got)
	}
	if got := warningsContaining(res, ProblemNoVols); len(got) != 1 || !strings.Contains(got[0], "measurement 5") {
		t.Errorf("Expected one Vols not specified line for measurement 5, got %v", got)
	}
	if got := warningsContaining(res, "found 4 volumes, expected 5"); len(got) != 1 {
		t.Errorf("Expected the volume mismatch advisory, got %v", res.Warnings)
	}
	if got := warningsContaining(res, "Error reading DICOM image corrupt_001.dcm: "); len(got) != 1 {
		t.Errorf("Expected one line for the unreadable image, got %v", res.Warnings)
	}

	if n := countFiles(t, filepath.Join(res.SessionDir, "anat", "001-Localizer", "DICOM")); n != 3 {
		t.Errorf("Expected 3 Localizer images, got %d", n)
	}
	if n := countFiles(t, filepath.Join(res.SessionDir, "func", "003-Run2", "DICOM")); n != 4 {
		t.Errorf("Expected 4 Run2 images despite the mismatch, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(res.SessionDir, "func", "002-Run1")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("No folder should exist for a measurement without images, got %v", err)
	}
}

func TestRun_WildcardLogfiles(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series:   []synth.Series{{Number: 2, Protocol: "Run1", Volumes: 2}},
		Logfiles: []string{"run2.log", "run1.log", "other.log"},
	})
	r := newRecord(session.Measurement{
		Number:   2,
		Type:     session.Func,
		Vols:     2,
		Name:     "Run1",
		Logfiles: []string{"run*.log", "missing_*.log"},
	})

	res, err := Run(context.Background(), r, f.options(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	nameDir := filepath.Join(res.SessionDir, "func", "002-Run1")
	for _, name := range []string{"run1.log", "run2.log"} {
		if _, err := os.Stat(filepath.Join(nameDir, name)); err != nil {
			t.Errorf("Expected %s to be copied: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(nameDir, "other.log")); err == nil {
		t.Error("other.log should not be copied")
	}

	want := []string{"run1.log", "run2.log", "missing_*.log"}
	if got := res.Record.Measurements[0].Logfiles; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected logfiles %v, got %v", want, got)
	}
	if got := r.Measurements[0].Logfiles; !reflect.DeepEqual(got, []string{"run*.log", "missing_*.log"}) {
		t.Errorf("Input record should not change, got %v", got)
	}
	if got := warningsContaining(res, "Error copying logfiles 'missing_*.log': not found"); len(got) != 1 {
		t.Errorf("Expected one not-found line, got %v", res.Warnings)
	}

	data, err := os.ReadFile(filepath.Join(res.SessionDir, res.Record.Filename()+".txt"))
	if err != nil {
		t.Fatal(err)
	}
	wantText := "Logfiles:               run1.log\n                        run2.log\n"
	if !strings.Contains(string(data), wantText) {
		t.Errorf("Expected saved protocol to list expanded logfiles, got:\n%s", data)
	}
}

func TestRun_LogfileMasks(t *testing.T) {
	f := newFixture(t, synth.Options{
		Logfiles: []string{"Presentation/a.log", "Presentation/sub/b.log", "rest.txt"},
	})
	r := newRecord(
		session.Measurement{Number: 1, Type: session.Anat, Vols: 1, Name: "T1", Logfiles: []string{"rest.txt"}},
		session.Measurement{Number: 2, Type: session.Misc, Name: "Rest", Logfiles: []string{"Presentation", "rest.txt"}},
		session.Measurement{Number: 3, Type: session.Func, Logfiles: []string{"rest.txt"}},
	)

	res, err := Run(context.Background(), r, f.options(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	nameDir := filepath.Join(res.SessionDir, "misc", "002-Rest")
	for _, rel := range []string{"Presentation/a.log", "Presentation/sub/b.log", "rest.txt"} {
		if _, err := os.Stat(filepath.Join(nameDir, rel)); err != nil {
			t.Errorf("Expected %s to be copied: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(res.SessionDir, "anat", "001-T1", "rest.txt")); err == nil {
		t.Error("Logfiles of anat measurements should not be copied")
	}
	if got := warningsContaining(res, "Error copying logfiles for measurement 3"); len(got) != 1 {
		t.Errorf("Expected one line for logfiles of an unnamed measurement, got %v", res.Warnings)
	}
	// rest.txt is claimed by a logfile entry and is not a general document.
	if _, err := os.Stat(filepath.Join(res.SessionDir, "rest.txt")); err == nil {
		t.Error("rest.txt should not be copied as a general document")
	}
}

func TestRun_Documents(t *testing.T) {
	f := newFixture(t, synth.Options{
		Documents: []string{"consent.pdf", "notes.txt", "scan.png", "Lab1_sub-001_behaviour.csv"},
	})
	r := newRecord(session.Measurement{Number: 1, Type: session.Anat})
	r.Files = []string{"Lab1_*.csv"}

	res, err := Run(context.Background(), r, f.options(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, name := range []string{"consent.pdf", "notes.txt", "Lab1_sub-001_behaviour.csv"} {
		if _, err := os.Stat(filepath.Join(res.SessionDir, name)); err != nil {
			t.Errorf("Expected %s in the session folder: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(res.SessionDir, "scan.png")); err == nil {
		t.Error("scan.png is not a document")
	}
	if got := res.Record.Files; !reflect.DeepEqual(got, []string{"Lab1_sub-001_behaviour.csv"}) {
		t.Errorf("Expected expanded files entry, got %v", got)
	}
	if got := warningsContaining(res, "No general documents found"); len(got) != 0 {
		t.Errorf("Documents were found, got %v", got)
	}
}

func TestRun_BVLinks(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{
			{Number: 1, Protocol: "T1", Volumes: 2},
			{Number: 2, Protocol: "Fieldmap", Volumes: 1, Echoes: 2},
		},
	})
	r := newRecord(
		session.Measurement{Number: 1, Type: session.Anat, Vols: 2, Name: "T1"},
		session.Measurement{Number: 2, Type: session.Misc, Vols: 1, Name: "Fieldmap"},
	)
	opts := f.options()
	opts.BVLinks = true

	res, err := Run(context.Background(), r, opts, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Links != 4 {
		t.Errorf("Expected 4 links, got %d", res.Links)
	}

	bvDir := filepath.Join(res.SessionDir, "BV")
	links := map[string]string{
		"Lab1_sub001_ses007Transfer_001T1-0001-0002-00002.dcm":         filepath.Join("anat", "001-T1", "DICOM", "MR.0001.0002.1.dcm"),
		"Lab1_sub001_ses007Transfer_002Fieldmap_2-0002-0001-00001.dcm": filepath.Join("misc", "002-Fieldmap", "DICOM", "MR.0002.0001.2.dcm"),
	}
	for link, target := range links {
		li, err := os.Stat(filepath.Join(bvDir, link))
		if err != nil {
			t.Errorf("Expected link %s: %v", link, err)
			continue
		}
		ti, err := os.Stat(filepath.Join(res.SessionDir, target))
		if err != nil {
			t.Fatal(err)
		}
		if !os.SameFile(li, ti) {
			t.Errorf("%s is not a hard link of %s", link, target)
		}
	}
}

func TestRun_TBV(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{
			{Number: 3, Protocol: "TBV_NF1", Volumes: 3},
			{Number: 4, Protocol: "TBV_NF2", Volumes: 2},
		},
		TBV: &synth.TBV{
			Dir:  "TBVFiles",
			Runs: []synth.TBVRun{{Series: 4, Title: "NF2"}, {Series: 3, Title: "NF1"}, {Series: 9, Title: "NF9"}},
		},
	})
	r := newRecord(
		session.Measurement{Number: 3, Type: session.Func, Vols: 3, Name: "TBV_NF1"},
		session.Measurement{Number: 4, Type: session.Func, Vols: 2, Name: "TBV_NF2"},
	)
	opts := f.options()
	opts.TBVLinks = true

	res, err := Run(context.Background(), r, opts, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	tbvDir := filepath.Join(res.SessionDir, "TBV")
	for _, name := range []string{"001_000003_000001.dcm", "001_000003_000003.dcm", "001_000004_000002.dcm"} {
		if _, err := os.Stat(filepath.Join(tbvDir, name)); err != nil {
			t.Errorf("Expected link %s: %v", name, err)
		}
	}
	if res.Links != 5 {
		t.Errorf("Expected 5 links, got %d", res.Links)
	}
	if got := warningsContaining(res, "NF9"); len(got) != 1 {
		t.Errorf("Expected one line for the run without images, got %v", res.Warnings)
	}

	fmr, err := os.ReadFile(filepath.Join(tbvDir, "TBVFiles", "NF1", "NF1.fmr"))
	if err != nil {
		t.Fatalf("Expected copied fmr file: %v", err)
	}
	if !strings.Contains(string(fmr), `"./../NF1.prt"`) {
		t.Errorf("Expected relative protocol path, got:\n%s", fmr)
	}
	src, err := os.ReadFile(filepath.Join(f.source, "TBVFiles", "NF1", "NF1.fmr"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(src), synth.ScannerProtocolPath("NF1")) {
		t.Error("The source fmr file must not be modified")
	}
}

func TestRun_TBVLinkFailureSkipsOnlyThatLink(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{
			{Number: 3, Protocol: "TBV_NF1", Volumes: 3},
			{Number: 4, Protocol: "TBV_NF2", Volumes: 2},
		},
		TBV: &synth.TBV{
			Dir:  "TBVFiles",
			Runs: []synth.TBVRun{{Series: 3, Title: "NF1"}, {Series: 4, Title: "NF2"}},
		},
	})
	// a second project for series 3 makes every one of its links collide
	data, err := os.ReadFile(filepath.Join(f.source, "TBVFiles", "NF1.tbv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.source, "TBVFiles", "NF1_backup.tbv"), data, 0644); err != nil {
		t.Fatal(err)
	}
	r := newRecord(
		session.Measurement{Number: 3, Type: session.Func, Vols: 3, Name: "TBV_NF1"},
		session.Measurement{Number: 4, Type: session.Func, Vols: 2, Name: "TBV_NF2"},
	)
	opts := f.options()
	opts.TBVLinks = true

	res, err := Run(context.Background(), r, opts, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	tbvDir := filepath.Join(res.SessionDir, "TBV")
	for _, name := range []string{"001_000004_000001.dcm", "001_000004_000002.dcm"} {
		if _, err := os.Stat(filepath.Join(tbvDir, name)); err != nil {
			t.Errorf("Expected link %s after earlier failures: %v", name, err)
		}
	}
	if res.Links != 5 {
		t.Errorf("Expected 5 links, got %d", res.Links)
	}
	if got := warningsContaining(res, "Error creating Turbo-BrainVoyager links"); len(got) != 3 {
		t.Errorf("Expected one line per colliding link, got %v", res.Warnings)
	}
}

func TestRun_BVLinksSkipTBVDir(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{{Number: 1, Protocol: "T1", Volumes: 2}},
	})
	_, err := synth.Generate(context.Background(), synth.Options{
		OutputDir: filepath.Join(f.source, "TBVFiles"),
		Series:    []synth.Series{{Number: 2, Protocol: "TBV_NF1", Volumes: 2}},
		Quiet:     true,
	})
	if err != nil {
		t.Fatal(err)
	}
	r := newRecord(
		session.Measurement{Number: 1, Type: session.Anat, Vols: 2, Name: "T1"},
		session.Measurement{Number: 2, Type: session.Func, Vols: 2, Name: "TBV_NF1"},
	)
	opts := f.options()
	opts.BVLinks = true

	res, err := Run(context.Background(), r, opts, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	dicomDir := filepath.Join(res.SessionDir, "func", "002-TBV_NF1", "DICOM")
	if n := countFiles(t, dicomDir); n != 2 {
		t.Errorf("Expected 2 archived real-time images, got %d", n)
	}
	entries, err := os.ReadDir(filepath.Join(res.SessionDir, "BV"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 BrainVoyager links, got %d", len(entries))
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), "_002") {
			t.Errorf("Image from the Turbo-BrainVoyager directory was linked: %s", entry.Name())
		}
	}
	if res.Links != 2 {
		t.Errorf("Expected 2 links, got %d", res.Links)
	}
}

func TestRun_CopyFailureRemovesDICOMFolder(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{
			{Number: 1, Protocol: "T1", Volumes: 2},
			{Number: 2, Protocol: "Run1", Volumes: 1},
		},
	})
	// two images of series 1 now share a file name
	if err := os.MkdirAll(filepath.Join(f.source, "b"), 0755); err != nil {
		t.Fatal(err)
	}
	err := os.Rename(filepath.Join(f.source, "MR.0001.0002.1.dcm"), filepath.Join(f.source, "b", "MR.0001.0001.1.dcm"))
	if err != nil {
		t.Fatal(err)
	}
	r := newRecord(
		session.Measurement{Number: 1, Type: session.Anat, Vols: 2, Name: "T1"},
		session.Measurement{Number: 2, Type: session.Func, Vols: 1, Name: "Run1"},
	)

	res, err := Run(context.Background(), r, f.options(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := warningsContaining(res, "Error copying images for measurement 1"); len(got) != 1 {
		t.Errorf("Expected one copy failure for measurement 1, got %v", res.Warnings)
	}
	failed := filepath.Join(res.SessionDir, "anat", "001-T1", "DICOM")
	if _, err := os.Stat(failed); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected %s to be removed, got %v", failed, err)
	}
	next := filepath.Join(res.SessionDir, "func", "002-Run1", "DICOM")
	if n := countFiles(t, next); n != 1 {
		t.Errorf("Expected the next measurement to be archived, got %d files", n)
	}
}

func TestRun_TBVMissing(t *testing.T) {
	f := newFixture(t, synth.Options{})
	opts := f.options()
	opts.TBVLinks = true

	res, err := Run(context.Background(), newRecord(session.Measurement{Number: 1, Type: session.Anat}), opts, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := warningsContaining(res, "No Turbo-BrainVoyager files found"); len(got) != 1 {
		t.Errorf("Expected advisory for missing TBV directory, got %v", res.Warnings)
	}
}

func TestRun_Reporter(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{{Number: 1, Protocol: "T1", Volumes: 4}},
	})
	r := newRecord(
		session.Measurement{Number: 1, Type: session.Anat, Vols: 4, Name: "T1"},
		session.Measurement{Number: 2, Type: session.Anat},
	)

	var mu sync.Mutex
	var statuses []Status
	rep := ReporterFunc(func(s Status) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	})
	if _, err := Run(context.Background(), r, f.options(), rep); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(statuses) == 0 {
		t.Fatal("Expected statuses")
	}
	for i := 1; i < len(statuses); i++ {
		if statuses[i].State < statuses[i-1].State {
			t.Fatalf("State went back from %v to %v", statuses[i-1].State, statuses[i].State)
		}
	}
	if last := statuses[len(statuses)-1]; last.State != Done {
		t.Errorf("Expected last state Done, got %v", last.State)
	}

	var sawCopy bool
	for _, s := range statuses {
		if s.String() == "Measurement 1 (1 of 2): Copying DICOM files...100%" {
			sawCopy = true
		}
	}
	if !sawCopy {
		t.Error("Expected a completed copy status for measurement 1")
	}
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{{Number: 1, Protocol: "T1", Volumes: 2}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newRecord(session.Measurement{Number: 1, Type: session.Anat, Vols: 2, Name: "T1"})
	res, err := Run(ctx, r, f.options(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if res == nil {
		t.Fatal("Expected partial result")
	}
	if _, err := os.Stat(filepath.Join(res.SessionDir, "anat")); err == nil {
		t.Error("No measurement should be archived after cancellation")
	}
}

func TestMatch(t *testing.T) {
	idx := dicom.NewIndex()
	for instance := 1; instance <= 3; instance++ {
		idx.Add(dicom.Entry{SeriesNumber: 1, InstanceNumber: instance, EchoNumber: 1, Path: "a"})
	}

	tests := []struct {
		name         string
		m            session.Measurement
		wantProblem  string
		wantAdvisory string
		wantEntries  int
	}{
		{"name checked first", session.Measurement{Number: 9}, ProblemNoName, "", 0},
		{"vols checked second", session.Measurement{Number: 9, Name: "Run"}, ProblemNoVols, "", 0},
		{"no series", session.Measurement{Number: 9, Name: "Run", Vols: 3}, ProblemNoImages, "", 0},
		{"match", session.Measurement{Number: 1, Name: "Run", Vols: 3}, "", "", 3},
		{"mismatch", session.Measurement{Number: 1, Name: "Run", Vols: 10}, "", "found 3 volumes, expected 10", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Match(tt.m, idx)
			if res.Problem != tt.wantProblem {
				t.Errorf("Expected problem %q, got %q", tt.wantProblem, res.Problem)
			}
			if res.Advisory != tt.wantAdvisory {
				t.Errorf("Expected advisory %q, got %q", tt.wantAdvisory, res.Advisory)
			}
			if len(res.Entries) != tt.wantEntries {
				t.Errorf("Expected %d entries, got %d", tt.wantEntries, len(res.Entries))
			}
		})
	}
}

func TestCheck(t *testing.T) {
	f := newFixture(t, synth.Options{
		Series: []synth.Series{
			{Number: 1, Protocol: "T1", Volumes: 2},
			{Number: 5, Protocol: "Extra", Volumes: 1},
		},
	})
	r := newRecord(
		session.Measurement{Number: 1, Type: session.Anat, Vols: 2, Name: "T1"},
		session.Measurement{Number: 2, Type: session.Func, Vols: 2, Name: "Run1"},
	)

	plan, err := Check(context.Background(), r, f.options())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if plan.Images != 3 {
		t.Errorf("Expected 3 images, got %d", plan.Images)
	}
	if plan.Ready() {
		t.Error("Plan with a missing series should not be ready")
	}
	if !reflect.DeepEqual(plan.Unclaimed, []int{5}) {
		t.Errorf("Expected series 5 unclaimed, got %v", plan.Unclaimed)
	}
	text := plan.String()
	for _, want := range []string{"anat/001-T1", "2 files", ProblemNoImages, "series 5 has no measurement"} {
		if !strings.Contains(text, filepath.FromSlash(want)) {
			t.Errorf("Expected plan to contain %q, got:\n%s", want, text)
		}
	}
	if entries, _ := os.ReadDir(f.target); len(entries) != 0 {
		t.Error("Check must not write to the target")
	}
}

func TestResultReport(t *testing.T) {
	res := &Result{
		SessionDir: "/archive/Lab1/sub-001/ses-001",
		Warnings:   []string{"Error copying images for measurement 2: No images found", "No general documents found"},
		Files:      1200,
		Bytes:      3_000_000,
		Links:      12,
	}
	want := "Archived to: /archive/Lab1/sub-001/ses-001\n" +
		"Error copying images for measurement 2: No images found\n" +
		"No general documents found\n"
	if got := res.Report(); got != want {
		t.Errorf("Expected report:\n%s\ngot:\n%s", want, got)
	}
	if got := res.Summary(); got != "1,200 files (3.0 MB), 12 links" {
		t.Errorf("Unexpected summary %q", got)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Status{State: Preparing, Step: "Reading DICOM images", Percent: 42}, "Preparation: Reading DICOM images...42%"},
		{Status{State: PerMeasurement, Measurement: 3, Index: 2, Count: 5, Step: "Copying logfiles"}, "Measurement 3 (2 of 5): Copying logfiles..."},
		{Status{State: Finalizing, Step: "Copying files"}, "Finalization: Copying files..."},
		{Status{State: Done}, "Done"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}
