package archive

import (
	"fmt"

	"github.com/mrsinham/scansession/internal/dicom"
	"github.com/mrsinham/scansession/internal/session"
)

// Problems that keep the images of a measurement from being copied.
const (
	ProblemNoName   = "Name not specified"
	ProblemNoVols   = "Vols not specified"
	ProblemNoImages = "No images found"
)

// Resolution is the outcome of matching one measurement against the index.
type Resolution struct {
	Entries  []dicom.Entry // images to copy, by instance then echo
	Problem  string        // non-empty when no image will be copied
	Advisory string        // non-blocking remark
}

// Match finds the images of m, the series whose number equals m.Number.
// Checks run in order and the first failing one is the problem.
func Match(m session.Measurement, idx *dicom.Index) Resolution {
	switch {
	case m.Name == "":
		return Resolution{Problem: ProblemNoName}
	case m.Vols <= 0:
		return Resolution{Problem: ProblemNoVols}
	case idx == nil || !idx.Has(m.Number):
		return Resolution{Problem: ProblemNoImages}
	}

	res := Resolution{Entries: idx.Entries(m.Number)}
	if found := idx.Volumes(m.Number); found != m.Vols {
		res.Advisory = fmt.Sprintf("found %d volumes, expected %d", found, m.Vols)
	}
	return res
}
