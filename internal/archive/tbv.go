package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrsinham/scansession/internal/tbv"
)

// archiveTBV copies the Turbo-BrainVoyager working directory into TBV/ and
// links the archived images of every real-time run there as
// 001_<run>_<volume>.dcm, the names the software expects.
func (e *executor) archiveTBV(status func(string, int)) {
	src := filepath.Join(e.opts.Source, e.opts.TBVDir)
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		e.warn("No Turbo-BrainVoyager files found in %s", e.opts.TBVDir)
		return
	}

	tbvDir := filepath.Join(e.dir, "TBV")
	workDir := filepath.Join(tbvDir, e.opts.TBVDir)
	status("Copying Turbo-BrainVoyager files", 0)
	files, bytes, err := copyTree(src, workDir, func(done, total int) {
		status("Copying Turbo-BrainVoyager files", percent(done, total))
	})
	e.res.Files += files
	e.res.Bytes += bytes
	if err != nil {
		e.warn("Error copying Turbo-BrainVoyager files: %v", err)
	}

	status("Creating Turbo-BrainVoyager links", 0)
	runs, errs := tbv.Scan(workDir)
	for _, err := range errs {
		e.warn("Error reading Turbo-BrainVoyager project: %v", err)
	}

	type link struct{ src, dst string }
	var links []link
	for _, run := range runs {
		pattern := filepath.Join(e.dir, "func", fmt.Sprintf("%03d-%s*", run.Number, e.opts.TBVPrefix))
		folders, _ := filepath.Glob(pattern)
		if len(folders) == 0 {
			e.warn("Error creating Turbo-BrainVoyager links for %s: no archived run %03d-%s*", run.Title, run.Number, e.opts.TBVPrefix)
		} else {
			dicomDir := filepath.Join(folders[0], "DICOM")
			images, err := os.ReadDir(dicomDir)
			if err != nil {
				e.warn("Error creating Turbo-BrainVoyager links for %s: %v", run.Title, err)
			}
			for v, image := range images {
				links = append(links, link{
					src: filepath.Join(dicomDir, image.Name()),
					dst: filepath.Join(tbvDir, fmt.Sprintf("001_%06d_%06d.dcm", run.Number, v+1)),
				})
			}
		}

		fmr := filepath.Join(workDir, run.Title, run.Title+".fmr")
		if _, err := os.Stat(fmr); err != nil {
			continue
		}
		if err := tbv.RewriteProtocolPath(fmr, run.Title); err != nil {
			e.warn("Error adjusting the protocol path in %s.fmr: %v", run.Title, err)
		}
	}

	for i, l := range links {
		status("Creating Turbo-BrainVoyager links", percent(i+1, len(links)))
		if err := os.Link(l.src, l.dst); err != nil {
			e.warn("Error creating Turbo-BrainVoyager links: %v", err)
			continue
		}
		e.res.Links++
	}
}
