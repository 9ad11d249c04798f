package dicom

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/mrsinham/scansession/internal/synth"
)

func generate(t *testing.T, opts synth.Options) string {
	t.Helper()
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	opts.Quiet = true
	if _, err := synth.Generate(context.Background(), opts); err != nil {
		t.Fatalf("synth.Generate failed: %v", err)
	}
	return opts.OutputDir
}

func TestReadEntry(t *testing.T) {
	dir := generate(t, synth.Options{
		Series: []synth.Series{{Number: 7, Protocol: "ep2d_bold", Volumes: 2, Echoes: 3}},
	})

	e, err := ReadEntry(filepath.Join(dir, "MR.0007.0002.3.dcm"))
	if err != nil {
		t.Fatalf("ReadEntry failed: %v", err)
	}
	if e.SeriesNumber != 7 {
		t.Errorf("Expected SeriesNumber 7, got %d", e.SeriesNumber)
	}
	if e.InstanceNumber != 2 {
		t.Errorf("Expected InstanceNumber 2, got %d", e.InstanceNumber)
	}
	if e.AcquisitionNumber != 2 {
		t.Errorf("Expected AcquisitionNumber 2, got %d", e.AcquisitionNumber)
	}
	if e.EchoNumber != 3 {
		t.Errorf("Expected EchoNumber 3, got %d", e.EchoNumber)
	}
	if e.ProtocolName != "ep2d_bold" {
		t.Errorf("Expected ProtocolName ep2d_bold, got %q", e.ProtocolName)
	}
}

func TestReadEntry_NotDICOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.dcm")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadEntry(path); err == nil {
		t.Error("Expected error for non-DICOM file")
	}
}

func TestFindFiles(t *testing.T) {
	dir := generate(t, synth.Options{
		Series:     []synth.Series{{Number: 1, Protocol: "T1", Volumes: 2}},
		Subfolders: true,
		Logfiles:   []string{"run1.log"},
	})
	// Extension matching is case-sensitive
	for _, name := range []string{"upper.DCM", "lower.ima", "siemens.IMA"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := FindFiles(dir)
	if err != nil {
		t.Fatalf("FindFiles failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Expected 3 files, got %d: %v", len(files), files)
	}
	if filepath.Base(files[2]) != "siemens.IMA" {
		t.Errorf("Expected lexical order ending with siemens.IMA, got %v", files)
	}

	if _, err := FindFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing root")
	}
}

func TestBuildIndex(t *testing.T) {
	dir := generate(t, synth.Options{
		Series: []synth.Series{
			{Number: 1, Protocol: "Localizer", Volumes: 3},
			{Number: 2, Protocol: "Run1", Volumes: 5},
			{Number: 4, Protocol: "Fieldmap", Volumes: 2, Echoes: 2},
		},
		Corrupt: 1,
	})

	var last atomic.Int64
	idx, err := BuildIndex(context.Background(), dir, IndexOptions{
		Workers:          3,
		Quiet:            true,
		ProgressCallback: func(current, total int) { last.Store(int64(current*1000 + total)) },
	})
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	if idx.Total != 13 {
		t.Errorf("Expected 13 files, got %d", idx.Total)
	}
	if got := last.Load(); got != 13013 {
		t.Errorf("Expected final progress 13/13, got %d", got)
	}
	if len(idx.Failures) != 1 || filepath.Base(idx.Failures[0].Path) != "corrupt_001.dcm" {
		t.Errorf("Expected corrupt_001.dcm to fail, got %+v", idx.Failures)
	}

	if got := idx.SeriesNumbers(); len(got) != 3 || got[0] != 1 || got[2] != 4 {
		t.Errorf("Expected series [1 2 4], got %v", got)
	}
	if idx.Has(3) {
		t.Error("Series 3 should not exist")
	}
	if idx.Volumes(2) != 5 {
		t.Errorf("Expected 5 volumes in series 2, got %d", idx.Volumes(2))
	}
	if idx.Echoes(4) != 2 || idx.Echoes(1) != 1 {
		t.Errorf("Expected 2 echoes in series 4 and 1 in series 1, got %d/%d", idx.Echoes(4), idx.Echoes(1))
	}

	entries := idx.Entries(4)
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries in series 4, got %d", len(entries))
	}
	order := [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}}
	for i, e := range entries {
		if e.InstanceNumber != order[i][0] || e.EchoNumber != order[i][1] {
			t.Errorf("Entry %d: expected %v, got instance %d echo %d", i, order[i], e.InstanceNumber, e.EchoNumber)
		}
	}
	if idx.Series(1)[2][1].ProtocolName != "Localizer" {
		t.Errorf("Expected Localizer at 1/2/1, got %+v", idx.Series(1)[2][1])
	}
}

func TestBuildIndex_Empty(t *testing.T) {
	idx, err := BuildIndex(context.Background(), t.TempDir(), IndexOptions{Quiet: true})
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	if idx.Total != 0 || len(idx.SeriesNumbers()) != 0 {
		t.Errorf("Expected empty index, got %+v", idx)
	}
}

func TestBuildIndex_Cancelled(t *testing.T) {
	dir := generate(t, synth.Options{
		Series: []synth.Series{{Number: 1, Protocol: "T1", Volumes: 2}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := BuildIndex(ctx, dir, IndexOptions{Quiet: true}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestIndex_AddDuplicates(t *testing.T) {
	idx := NewIndex()
	idx.Add(Entry{SeriesNumber: 1, InstanceNumber: 1, EchoNumber: 1, Path: "b/img.dcm"})
	idx.Add(Entry{SeriesNumber: 1, InstanceNumber: 1, EchoNumber: 1, Path: "a/img.dcm"})
	idx.Add(Entry{SeriesNumber: 1, InstanceNumber: 1, EchoNumber: 1, Path: "c/img.dcm"})

	if got := idx.Series(1)[1][1].Path; got != "a/img.dcm" {
		t.Errorf("Expected a/img.dcm to win, got %s", got)
	}
	if len(idx.Duplicates) != 2 {
		t.Errorf("Expected 2 duplicates, got %v", idx.Duplicates)
	}
}
