// Package synth writes synthetic scanner exports: DICOM series with the
// header fields the archiver keys on, stimulus logfiles, loose documents and
// Turbo-BrainVoyager working files. It is used to exercise the archiving
// pipeline without real acquisitions.
package synth

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	randv2 "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	mrImageStorage   = "1.2.840.10008.5.1.4.1.1.4"
	explicitVRLittle = "1.2.840.10008.1.2.1"
	uidRoot          = "1.2.826.0.1.3680043.8.498"
)

// Series describes one acquisition run to generate.
type Series struct {
	Number   int
	Protocol string
	Volumes  int
	Echoes   int // 0 means a single echo
}

// TBVRun is one Turbo-BrainVoyager project pointing at a functional series.
type TBVRun struct {
	Series int
	Title  string
}

// TBV describes the Turbo-BrainVoyager working directory to generate.
type TBV struct {
	Dir  string
	Runs []TBVRun
	JSON bool // write .tbvj projects instead of .tbv
}

// Options configures Generate.
type Options struct {
	OutputDir  string
	Series     []Series
	Subfolders bool   // one folder per series instead of a flat export
	Extension  string // ".dcm" (default) or ".IMA"
	Logfiles   []string
	Documents  []string
	TBV        *TBV
	Corrupt    int // number of additional truncated image files
	Width      int
	Height     int
	Seed       uint64

	Workers          int
	Quiet            bool                     // Suppress progress output
	ProgressCallback func(current, total int) // Optional callback for progress updates
}

// File is one generated image.
type File struct {
	Path     string
	Series   int
	Instance int
	Echo     int
}

// imageTask contains all data needed to write a single image
type imageTask struct {
	index    int
	file     File
	protocol string
	width    int
	height   int
	seed     uint64
}

// Generate writes the export described by opts and returns the images in
// series, instance and echo order.
func Generate(ctx context.Context, opts Options) ([]File, error) {
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if opts.Extension == "" {
		opts.Extension = ".dcm"
	}
	if opts.Width <= 0 {
		opts.Width = 64
	}
	if opts.Height <= 0 {
		opts.Height = 64
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tasks, err := planImages(opts)
	if err != nil {
		return nil, err
	}
	if err := writeImages(ctx, tasks, opts); err != nil {
		return nil, err
	}

	if err := writeCorrupt(tasks, opts); err != nil {
		return nil, err
	}
	for _, name := range opts.Logfiles {
		if err := writeText(filepath.Join(opts.OutputDir, name), fmt.Sprintf("logfile %s\n", filepath.Base(name))); err != nil {
			return nil, err
		}
	}
	for _, name := range opts.Documents {
		if err := writeText(filepath.Join(opts.OutputDir, name), fmt.Sprintf("document %s\n", name)); err != nil {
			return nil, err
		}
	}
	if opts.TBV != nil {
		if err := writeTBV(opts.OutputDir, *opts.TBV); err != nil {
			return nil, err
		}
	}

	files := make([]File, len(tasks))
	for i, task := range tasks {
		files[i] = task.file
	}
	if !opts.Quiet {
		fmt.Printf("\n✓ %d DICOM files created in: %s/\n", len(files), opts.OutputDir)
	}
	return files, nil
}

// planImages computes the path and seed of every image up front so workers
// only do the writing.
func planImages(opts Options) ([]imageTask, error) {
	var tasks []imageTask
	seen := make(map[int]bool)
	for _, s := range opts.Series {
		if s.Number < 1 {
			return nil, fmt.Errorf("series number %d must be positive", s.Number)
		}
		if seen[s.Number] {
			return nil, fmt.Errorf("series %d declared twice", s.Number)
		}
		seen[s.Number] = true

		dir := opts.OutputDir
		if opts.Subfolders {
			dir = filepath.Join(dir, fmt.Sprintf("%s_%04d", sanitize(s.Protocol), s.Number))
		}
		echoes := max(1, s.Echoes)
		for instance := 1; instance <= s.Volumes; instance++ {
			for echo := 1; echo <= echoes; echo++ {
				name := fmt.Sprintf("MR.%04d.%04d.%d%s", s.Number, instance, echo, opts.Extension)
				tasks = append(tasks, imageTask{
					index:    len(tasks),
					file:     File{Path: filepath.Join(dir, name), Series: s.Number, Instance: instance, Echo: echo},
					protocol: s.Protocol,
					width:    opts.Width,
					height:   opts.Height,
					seed:     imageSeed(opts.Seed, s.Number, instance, echo),
				})
			}
		}
	}
	return tasks, nil
}

func imageSeed(seed uint64, series, instance, echo int) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%d/%d/%d", seed, series, instance, echo)
	return h.Sum64()
}

func writeImages(ctx context.Context, tasks []imageTask, opts Options) error {
	if len(tasks) == 0 {
		return nil
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	// Don't use more workers than tasks
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	if !opts.Quiet {
		fmt.Printf("\nGenerating %d images with %d parallel workers...\n", len(tasks), numWorkers)
	}

	type result struct {
		index int
		err   error
	}
	taskChan := make(chan imageTask, len(tasks))
	resultChan := make(chan result, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				if err := ctx.Err(); err != nil {
					resultChan <- result{task.index, err}
					continue
				}
				resultChan <- result{task.index, writeImage(task)}
			}
		}()
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	completed := 0
	var firstErr error
	for res := range resultChan {
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write image %s: %w", tasks[res.index].file.Path, res.err)
		}
		completed++
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(completed, len(tasks))
		}
		if !opts.Quiet && (completed%50 == 0 || completed == len(tasks)) {
			progress := float64(completed) / float64(len(tasks)) * 100
			fmt.Printf("  Progress: %d/%d (%.0f%%)\n", completed, len(tasks), progress)
		}
	}
	return firstErr
}

// writeImage renders one frame and writes it as an Explicit VR Little Endian file.
func writeImage(task imageTask) error {
	if err := os.MkdirAll(filepath.Dir(task.file.Path), 0755); err != nil {
		return err
	}

	width, height := task.width, task.height
	rng := randv2.New(randv2.NewPCG(task.seed, task.seed))
	nativeFrame := frame.NewNativeFrame[uint16](16, height, width, width*height, 1)
	cx, cy := float64(width)/2, float64(height)/2
	maxDist := math.Hypot(cx, cy)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dist := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
			v := 800 + (1-dist)*1600 + (rng.Float64()-0.5)*300
			nativeFrame.RawData[y*width+x] = uint16(math.Max(0, math.Min(65535, v)))
		}
	}
	f := task.file
	drawLabel(nativeFrame, width, height, fmt.Sprintf("S%d V%d E%d", f.Series, f.Instance, f.Echo))

	sopInstanceUID := fmt.Sprintf("%s.%d.%d.%d.%d", uidRoot, task.seed%1000000007, f.Series, f.Instance, f.Echo)
	elements := []*dicom.Element{
		mustNewElement(tag.MediaStorageSOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(tag.TransferSyntaxUID, []string{explicitVRLittle}),
		mustNewElement(tag.SOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(tag.Modality, []string{"MR"}),
		mustNewElement(tag.SeriesDescription, []string{task.protocol}),
		mustNewElement(tag.PatientName, []string{"Synthetic^Subject"}),
		mustNewElement(tag.EchoNumbers, []string{strconv.Itoa(f.Echo)}),
		mustNewElement(tag.ProtocolName, []string{task.protocol}),
		mustNewElement(tag.SeriesNumber, []string{strconv.Itoa(f.Series)}),
		mustNewElement(tag.AcquisitionNumber, []string{strconv.Itoa(f.Instance)}),
		mustNewElement(tag.InstanceNumber, []string{strconv.Itoa(f.Instance)}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.Rows, []int{height}),
		mustNewElement(tag.Columns, []int{width}),
		mustNewElement(tag.BitsAllocated, []int{16}),
		mustNewElement(tag.BitsStored, []int{16}),
		mustNewElement(tag.HighBit, []int{15}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.PixelData, dicom.PixelDataInfo{
			Frames: []*frame.Frame{{Encapsulated: false, NativeData: nativeFrame}},
		}),
	}

	out, err := os.Create(task.file.Path)
	if err != nil {
		return err
	}
	if err := dicom.Write(out, dicom.Dataset{Elements: elements}); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// writeCorrupt adds truncated copies of generated images. They keep an image
// extension but cannot be decoded.
func writeCorrupt(tasks []imageTask, opts Options) error {
	if opts.Corrupt <= 0 {
		return nil
	}
	if len(tasks) == 0 {
		return fmt.Errorf("corrupt files need at least one generated image")
	}
	for i := 0; i < opts.Corrupt; i++ {
		src := tasks[i%len(tasks)].file.Path
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read image for corruption: %w", err)
		}
		dst := filepath.Join(opts.OutputDir, fmt.Sprintf("corrupt_%03d%s", i+1, opts.Extension))
		if err := os.WriteFile(dst, data[:min(len(data), 64)], 0644); err != nil {
			return fmt.Errorf("write corrupt file: %w", err)
		}
	}
	return nil
}

func writeText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// mustNewElement creates a new DICOM element, panicking on error.
func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

func sanitize(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "series"
	}
	return string(out)
}
