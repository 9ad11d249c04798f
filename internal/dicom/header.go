package dicom

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// ErrMissingField is returned when a required header field is absent or empty.
var ErrMissingField = errors.New("missing header field")

// Entry is the header information of one image file.
type Entry struct {
	SeriesNumber      int
	AcquisitionNumber int
	InstanceNumber    int
	EchoNumber        int
	ProtocolName      string
	Path              string
}

// ReadEntry decodes the header of the image at path without loading pixel
// data. SeriesNumber and InstanceNumber are required; a missing
// AcquisitionNumber reads as 0, a missing EchoNumbers as 1.
func ReadEntry(path string) (Entry, error) {
	ds, err := parseHeader(path)
	if err != nil {
		return Entry{}, fmt.Errorf("parse header: %w", err)
	}

	e := Entry{Path: path, EchoNumber: 1}
	if e.SeriesNumber, err = intField(ds, tag.SeriesNumber); err != nil {
		return Entry{}, fmt.Errorf("SeriesNumber: %w", err)
	}
	if e.InstanceNumber, err = intField(ds, tag.InstanceNumber); err != nil {
		return Entry{}, fmt.Errorf("InstanceNumber: %w", err)
	}
	if n, err := intField(ds, tag.AcquisitionNumber); err == nil {
		e.AcquisitionNumber = n
	} else if !errors.Is(err, ErrMissingField) {
		return Entry{}, fmt.Errorf("AcquisitionNumber: %w", err)
	}
	if n, err := intField(ds, tag.EchoNumbers); err == nil {
		e.EchoNumber = n
	} else if !errors.Is(err, ErrMissingField) {
		return Entry{}, fmt.Errorf("EchoNumbers: %w", err)
	}
	if s, err := stringField(ds, tag.ProtocolName); err == nil {
		e.ProtocolName = s
	}
	return e, nil
}

// parseHeader parses a file element by element up to the end of the
// relationship group (0020), tolerating errors in later elements such as
// malformed private tags or truncated pixel data.
func parseHeader(path string) (dicom.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return dicom.Dataset{}, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return dicom.Dataset{}, err
	}

	p, err := dicom.NewParser(f, info.Size(), nil, dicom.SkipPixelData())
	if err != nil {
		return dicom.Dataset{}, err
	}

	var elements []*dicom.Element
	for {
		elem, err := p.Next()
		if err != nil {
			// Stop on any error - we've collected what we can
			break
		}
		if elem.Tag.Group > relationshipGroup {
			break
		}
		elements = append(elements, elem)
	}
	if len(elements) == 0 {
		return dicom.Dataset{}, fmt.Errorf("no elements parsed")
	}

	meta := p.GetMetadata()
	return dicom.Dataset{Elements: append(meta.Elements, elements...)}, nil
}

// relationshipGroup holds SeriesNumber, AcquisitionNumber and InstanceNumber.
const relationshipGroup = 0x0020

func intField(ds dicom.Dataset, t tag.Tag) (int, error) {
	s, err := stringField(ds, t)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

// stringField returns the first value of an element as a string.
func stringField(ds dicom.Dataset, t tag.Tag) (string, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return "", ErrMissingField
	}
	switch v := elem.Value.GetValue().(type) {
	case []string:
		if len(v) > 0 {
			if s := strings.Trim(v[0], " \x00"); s != "" {
				return s, nil
			}
		}
	case []int:
		if len(v) > 0 {
			return strconv.Itoa(v[0]), nil
		}
	default:
		return "", fmt.Errorf("unexpected value type %v", elem.Value.ValueType())
	}
	return "", ErrMissingField
}
