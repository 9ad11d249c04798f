package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mrsinham/scansession/internal/dicom"
	"github.com/mrsinham/scansession/internal/protocol"
	"github.com/mrsinham/scansession/internal/session"
)

// Documents copied from the top of the source when no mask names them.
var documentExtensions = []string{".txt", ".pdf", ".odt", ".doc", ".docx"}

// Result is what an archiving run did.
type Result struct {
	SessionDir string
	Record     *session.Record // the archived record, with expanded masks
	Warnings   []string
	Files      int   // files copied
	Links      int   // hard links created
	Bytes      int64 // bytes copied
}

// Report returns the one-line summary followed by one line per warning.
func (r *Result) Report() string {
	dir := r.SessionDir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Archived to: %s\n", dir)
	for _, w := range r.Warnings {
		b.WriteString(w)
		b.WriteByte('\n')
	}
	return b.String()
}

// Summary returns copy statistics for humans.
func (r *Result) Summary() string {
	return fmt.Sprintf("%s files (%s), %s links",
		humanize.Comma(int64(r.Files)), humanize.Bytes(uint64(r.Bytes)), humanize.Comma(int64(r.Links)))
}

type executor struct {
	ctx  context.Context
	rec  *session.Record
	opts Options
	rep  Reporter
	idx  *dicom.Index
	dir  string
	res  *Result
}

// Run archives the session described by r from opts.Source into
// opts.Target. r is not modified; the archived copy, with wildcard masks
// replaced by the files they matched, is Result.Record.
//
// Run fails before touching the target when r is invalid, when a directory
// is missing, or when the session folder exists or cannot be created. After
// that it only returns an error when ctx is cancelled, which is checked
// between measurements; the partial result is returned with it.
func Run(ctx context.Context, r *session.Record, opts Options, rep Reporter) (*Result, error) {
	if rep == nil {
		rep = Discard
	}
	defaults := DefaultOptions()
	if opts.TBVDir == "" {
		opts.TBVDir = defaults.TBVDir
	}
	if opts.TBVPrefix == "" {
		opts.TBVPrefix = defaults.TBVPrefix
	}

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	for _, d := range []string{opts.Source, opts.Target} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", d)
		}
	}

	e := &executor{
		ctx:  ctx,
		rec:  r.Clone(),
		opts: opts,
		rep:  rep,
	}
	e.dir = e.rec.SessionPath(opts.Target)
	e.res = &Result{SessionDir: e.dir, Record: e.rec}

	if err := e.prepare(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return e.res, err
	}

	for i := range e.rec.Measurements {
		if err := ctx.Err(); err != nil {
			return e.res, err
		}
		e.measurement(i)
	}
	if err := ctx.Err(); err != nil {
		return e.res, err
	}

	e.finalize()
	e.rep.Report(Status{State: Done})
	return e.res, nil
}

func (e *executor) warn(format string, args ...any) {
	e.res.Warnings = append(e.res.Warnings, fmt.Sprintf(format, args...))
}

// prepare creates the session folder and indexes the source.
func (e *executor) prepare() error {
	e.rep.Report(Status{State: Preparing, Step: "Creating session folder"})
	if _, err := os.Lstat(e.dir); err == nil {
		return fmt.Errorf("%s %w", e.dir, ErrSessionExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrCreateSession, err)
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrCreateSession, err)
	}

	e.rep.Report(Status{State: Preparing, Step: "Reading DICOM images"})
	idx, err := dicom.BuildIndex(e.ctx, e.opts.Source, dicom.IndexOptions{
		Workers: e.opts.Workers,
		Quiet:   true,
		ProgressCallback: func(current, total int) {
			e.rep.Report(Status{State: Preparing, Step: "Reading DICOM images", Percent: percent(current, total)})
		},
	})
	if err != nil {
		e.idx = dicom.NewIndex()
		if e.ctx.Err() != nil {
			return nil
		}
		e.warn("Error reading DICOM images: %v", err)
		return nil
	}
	e.idx = idx

	for _, f := range idx.Failures {
		e.warn("Error reading DICOM image %s: %v", e.relative(f.Path), f.Err)
	}
	for _, path := range idx.Duplicates {
		e.warn("Duplicate DICOM image skipped: %s", e.relative(path))
	}
	return nil
}

func (e *executor) relative(path string) string {
	if rel, err := filepath.Rel(e.opts.Source, path); err == nil {
		return rel
	}
	return path
}

// measurement archives the images and logfiles of measurement i.
func (e *executor) measurement(i int) {
	m := &e.rec.Measurements[i]
	status := func(step string, pct int) {
		e.rep.Report(Status{
			State:       PerMeasurement,
			Measurement: m.Number,
			Index:       i + 1,
			Count:       len(e.rec.Measurements),
			Step:        step,
			Percent:     pct,
		})
	}
	nameDir := filepath.Join(e.dir, m.Type.String(), m.Folder())

	res := Match(*m, e.idx)
	switch {
	case res.Problem != "":
		e.warn("Error copying images for measurement %d: %s", m.Number, res.Problem)
	case os.MkdirAll(nameDir, 0755) != nil:
		e.warn("Error creating directory structure for measurement %d", m.Number)
	default:
		if res.Advisory != "" {
			e.warn("Measurement %d: %s", m.Number, res.Advisory)
		}
		status("Copying DICOM files", 0)
		archived, ok := e.copyImages(m, res.Entries, nameDir, status)
		if ok && e.opts.BVLinks {
			status("Creating BrainVoyager links", 0)
			e.linkBV(m, res.Entries, archived, status)
		}
	}

	if !m.Type.HasLogfiles() || len(m.Logfiles) == 0 {
		return
	}
	if m.Name == "" {
		e.warn("Error copying logfiles for measurement %d: %s", m.Number, ProblemNoName)
		return
	}
	status("Copying logfiles", 0)
	m.Logfiles = e.copyMasks(m.Logfiles, nameDir)
}

// copyImages copies the images into <nameDir>/DICOM and returns the archived
// path of each entry. On failure the DICOM folder is removed.
func (e *executor) copyImages(m *session.Measurement, entries []dicom.Entry, nameDir string, status func(string, int)) ([]string, bool) {
	dicomDir := filepath.Join(nameDir, "DICOM")
	fail := func(err error) ([]string, bool) {
		e.warn("Error copying images for measurement %d: %v", m.Number, err)
		_ = os.RemoveAll(dicomDir)
		return nil, false
	}
	if err := os.MkdirAll(dicomDir, 0755); err != nil {
		return fail(err)
	}

	archived := make([]string, len(entries))
	taken := make(map[string]string, len(entries))
	files, bytes := 0, int64(0)
	for j, entry := range entries {
		name := filepath.Base(entry.Path)
		if prev, ok := taken[name]; ok {
			return fail(fmt.Errorf("file name %s used by %s and %s", name, e.relative(prev), e.relative(entry.Path)))
		}
		taken[name] = entry.Path

		archived[j] = filepath.Join(dicomDir, name)
		n, err := copyFile(entry.Path, archived[j])
		if err != nil {
			return fail(err)
		}
		files++
		bytes += n
		status("Copying DICOM files", percent(j+1, len(entries)))
	}
	e.res.Files += files
	e.res.Bytes += bytes
	return archived, true
}

// linkBV hard-links the archived images into BV/ under BrainVoyager names.
// Images from the Turbo-BrainVoyager working directory are left out.
func (e *executor) linkBV(m *session.Measurement, entries []dicom.Entry, archived []string, status func(string, int)) {
	bvDir := filepath.Join(e.dir, "BV")
	if err := os.MkdirAll(bvDir, 0755); err != nil {
		e.warn("Error creating BrainVoyager links for measurement %d: %v", m.Number, err)
		return
	}

	series := e.idx.Series(m.Number)
	for j, entry := range entries {
		status("Creating BrainVoyager links", percent(j+1, len(entries)))
		if withinDir(e.opts.Source, entry.Path, e.opts.TBVDir) {
			continue
		}
		name := fmt.Sprintf("%s_%03d%s", e.rec.LinkPrefix(), m.Number, m.Name)
		if len(series[entry.InstanceNumber]) > 1 {
			name += fmt.Sprintf("_%d", entry.EchoNumber)
		}
		name += fmt.Sprintf("-%04d-%04d-%05d.dcm", m.Number, entry.AcquisitionNumber, entry.InstanceNumber)

		if err := os.Link(archived[j], filepath.Join(bvDir, name)); err != nil {
			e.warn("Error creating BrainVoyager links for measurement %d: %v", m.Number, err)
			continue
		}
		e.res.Links++
	}
}

// finalize handles the session-wide files and saves the protocol.
func (e *executor) finalize() {
	final := func(step string, pct int) {
		e.rep.Report(Status{State: Finalizing, Step: step, Percent: pct})
	}

	if e.opts.TBVLinks {
		e.archiveTBV(final)
	}

	final("Copying files", 0)
	e.rec.Files = e.copyMasks(e.rec.Files, e.dir)
	e.copyDocuments()

	final("Saving scan protocol", 0)
	path := filepath.Join(e.dir, e.rec.Filename()+".txt")
	if err := protocol.WriteFile(path, e.rec); err != nil {
		e.warn("Error saving scan protocol: %v", err)
	}
}

// copyDocuments copies the documents at the top of the source that no
// logfile or file mask accounted for.
func (e *executor) copyDocuments() {
	claimed := make(map[string]bool)
	for _, m := range e.rec.Measurements {
		for _, name := range m.Logfiles {
			claimed[filepath.Base(name)] = true
		}
	}
	for _, name := range e.rec.Files {
		claimed[filepath.Base(name)] = true
	}

	entries, err := os.ReadDir(e.opts.Source)
	if err != nil {
		e.warn("Error copying general documents: %v", err)
		return
	}
	found := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || claimed[entry.Name()] || !isDocument(entry.Name()) {
			continue
		}
		n, err := copyFile(filepath.Join(e.opts.Source, entry.Name()), filepath.Join(e.dir, entry.Name()))
		if err != nil {
			e.warn("Error copying general document %s: %v", entry.Name(), err)
			continue
		}
		found++
		e.res.Files++
		e.res.Bytes += n
	}
	if found == 0 {
		e.warn("No general documents found")
	}
}

func isDocument(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range documentExtensions {
		if ext == want {
			return true
		}
	}
	return false
}
