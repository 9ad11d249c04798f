package synth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestGenerate_Basic(t *testing.T) {
	outputDir := t.TempDir()

	var calls int
	files, err := Generate(context.Background(), Options{
		OutputDir: outputDir,
		Series: []Series{
			{Number: 1, Protocol: "Localizer", Volumes: 3},
			{Number: 2, Protocol: "Fieldmap", Volumes: 2, Echoes: 2},
		},
		Quiet:            true,
		ProgressCallback: func(current, total int) { calls++ },
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(files) != 7 {
		t.Fatalf("Expected 7 files, got %d", len(files))
	}
	if calls != 7 {
		t.Errorf("Expected 7 progress callbacks, got %d", calls)
	}

	last := files[len(files)-1]
	if last.Series != 2 || last.Instance != 2 || last.Echo != 2 {
		t.Errorf("Expected last file 2/2/2, got %+v", last)
	}

	ds, err := dicom.ParseFile(last.Path, nil, dicom.SkipPixelData())
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	checks := map[tag.Tag]string{
		tag.SeriesNumber:   "2",
		tag.InstanceNumber: "2",
		tag.EchoNumbers:    "2",
		tag.ProtocolName:   "Fieldmap",
	}
	for tg, want := range checks {
		elem, err := ds.FindElementByTag(tg)
		if err != nil {
			t.Errorf("Missing tag %v: %v", tg, err)
			continue
		}
		got, ok := elem.Value.GetValue().([]string)
		if !ok || len(got) == 0 || strings.TrimSpace(got[0]) != want {
			t.Errorf("Tag %v = %v, want %s", tg, got, want)
		}
	}
}

func TestGenerate_SubfoldersAndExtension(t *testing.T) {
	outputDir := t.TempDir()

	files, err := Generate(context.Background(), Options{
		OutputDir:  outputDir,
		Series:     []Series{{Number: 4, Protocol: "ep2d bold", Volumes: 1}},
		Subfolders: true,
		Extension:  ".IMA",
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := filepath.Join(outputDir, "ep2d_bold_0004", "MR.0004.0001.1.IMA")
	if files[0].Path != want {
		t.Errorf("Expected %s, got %s", want, files[0].Path)
	}
}

func TestGenerate_CorruptFilesDoNotDecode(t *testing.T) {
	outputDir := t.TempDir()

	_, err := Generate(context.Background(), Options{
		OutputDir: outputDir,
		Series:    []Series{{Number: 1, Protocol: "T1", Volumes: 1}},
		Corrupt:   2,
		Quiet:     true,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, name := range []string{"corrupt_001.dcm", "corrupt_002.dcm"} {
		path := filepath.Join(outputDir, name)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("Expected %s to exist: %v", name, err)
		}
		if _, err := dicom.ParseFile(path, nil, dicom.SkipPixelData()); err == nil {
			t.Errorf("Expected %s to fail decoding", name)
		}
	}
}

func TestGenerate_AuxiliaryFiles(t *testing.T) {
	outputDir := t.TempDir()

	_, err := Generate(context.Background(), Options{
		OutputDir: outputDir,
		Logfiles:  []string{"run1.log", "logs/run2.log"},
		Documents: []string{"notes.txt"},
		TBV: &TBV{
			Dir:  "TBVFiles",
			Runs: []TBVRun{{Series: 2, Title: "TBV_Run1"}},
		},
		Quiet: true,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, rel := range []string{
		"run1.log",
		"logs/run2.log",
		"notes.txt",
		"TBVFiles/TBV_Run1.tbv",
		"TBVFiles/TBV_Run1.prt",
		"TBVFiles/TBV_Run1/TBV_Run1.fmr",
	} {
		if _, err := os.Stat(filepath.Join(outputDir, rel)); err != nil {
			t.Errorf("Expected %s to exist: %v", rel, err)
		}
	}

	fmr, err := os.ReadFile(filepath.Join(outputDir, "TBVFiles", "TBV_Run1", "TBV_Run1.fmr"))
	if err != nil {
		t.Fatalf("read fmr: %v", err)
	}
	if !strings.Contains(string(fmr), ScannerProtocolPath("TBV_Run1")) {
		t.Errorf("Expected scanner protocol path in fmr, got:\n%s", fmr)
	}
}

func TestGenerate_TBVJSON(t *testing.T) {
	outputDir := t.TempDir()

	_, err := Generate(context.Background(), Options{
		OutputDir: outputDir,
		TBV: &TBV{
			Dir:  "TBVFiles",
			Runs: []TBVRun{{Series: 3, Title: "TBV_Run2"}},
			JSON: true,
		},
		Quiet: true,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outputDir, "TBVFiles", "TBV_Run2.tbvj"))
	if err != nil {
		t.Fatalf("read tbvj: %v", err)
	}
	var p tbvjProject
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("decode tbvj: %v", err)
	}
	if p.Title != "TBV_Run2" || p.DataFormatInfo.DicomFirstVolumeNr != 3 {
		t.Errorf("Unexpected project %+v", p)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no output", Options{}},
		{"duplicate series", Options{OutputDir: t.TempDir(), Series: []Series{{Number: 1, Volumes: 1}, {Number: 1, Volumes: 1}}}},
		{"zero series number", Options{OutputDir: t.TempDir(), Series: []Series{{Number: 0, Volumes: 1}}}},
		{"corrupt without images", Options{OutputDir: t.TempDir(), Corrupt: 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Quiet = true
			if _, err := Generate(context.Background(), tc.opts); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Generate(ctx, Options{
		OutputDir: t.TempDir(),
		Series:    []Series{{Number: 1, Volumes: 4}},
		Quiet:     true,
	})
	if err == nil {
		t.Error("Expected error for cancelled context")
	}
}
