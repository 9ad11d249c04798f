package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrsinham/scansession/internal/dicom"
	"github.com/mrsinham/scansession/internal/session"
)

// Planned is one measurement of a Plan.
type Planned struct {
	Measurement session.Measurement
	Resolution
	Folder string // destination relative to the session folder
}

// Plan is what Run would do, computed without writing anything.
type Plan struct {
	SessionDir   string
	Exists       bool // Run would fail
	Images       int  // image files found
	Failures     []dicom.Failure
	Measurements []Planned
	Unclaimed    []int // series no measurement refers to
}

// Check indexes the source and matches every measurement of r.
func Check(ctx context.Context, r *session.Record, opts Options) (*Plan, error) {
	idx, err := dicom.BuildIndex(ctx, opts.Source, dicom.IndexOptions{Workers: opts.Workers, Quiet: true})
	if err != nil {
		return nil, err
	}

	p := &Plan{
		SessionDir: r.SessionPath(opts.Target),
		Images:     idx.Total,
		Failures:   idx.Failures,
	}
	if _, err := os.Lstat(p.SessionDir); err == nil {
		p.Exists = true
	}

	claimed := make(map[int]bool)
	for _, m := range r.Measurements {
		claimed[m.Number] = true
		p.Measurements = append(p.Measurements, Planned{
			Measurement: m,
			Resolution:  Match(m, idx),
			Folder:      filepath.Join(m.Type.String(), m.Folder()),
		})
	}
	for _, n := range idx.SeriesNumbers() {
		if !claimed[n] {
			p.Unclaimed = append(p.Unclaimed, n)
		}
	}
	return p, nil
}

// Ready reports whether every measurement has images to copy and the
// session folder is free.
func (p *Plan) Ready() bool {
	if p.Exists {
		return false
	}
	for _, m := range p.Measurements {
		if m.Problem != "" {
			return false
		}
	}
	return true
}

func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session folder: %s", p.SessionDir)
	if p.Exists {
		b.WriteString(" (already exists)")
	}
	fmt.Fprintf(&b, "\nDICOM images:   %d (%d unreadable)\n\n", p.Images, len(p.Failures))
	for _, m := range p.Measurements {
		switch {
		case m.Problem != "":
			fmt.Fprintf(&b, "  %03d  %-28s %s\n", m.Measurement.Number, m.Folder, m.Problem)
		case m.Advisory != "":
			fmt.Fprintf(&b, "  %03d  %-28s %d files, %s\n", m.Measurement.Number, m.Folder, len(m.Entries), m.Advisory)
		default:
			fmt.Fprintf(&b, "  %03d  %-28s %d files\n", m.Measurement.Number, m.Folder, len(m.Entries))
		}
	}
	for _, n := range p.Unclaimed {
		fmt.Fprintf(&b, "  series %d has no measurement\n", n)
	}
	return b.String()
}
