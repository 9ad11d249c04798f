// Package dicom indexes the images of a scanner export by the header fields
// that identify an acquisition: series, instance (volume) and echo.
package dicom

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
)

// Extensions lists the image file extensions that are indexed. Matching is
// case-sensitive.
var Extensions = []string{".dcm", ".IMA"}

// IndexOptions configures BuildIndex.
type IndexOptions struct {
	Workers          int                      // Decoders; 0 = CPU cores
	Quiet            bool                     // Suppress progress output
	ProgressCallback func(current, total int) // Optional callback for progress updates
}

// Failure is an image file whose header could not be decoded.
type Failure struct {
	Path string
	Err  error
}

// Index maps series number → instance number → echo number → entry.
type Index struct {
	series map[int]map[int]map[int]Entry

	// Total is the number of files found, decoded or not.
	Total      int
	Failures   []Failure
	Duplicates []string // files whose series/instance/echo was already taken
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{series: make(map[int]map[int]map[int]Entry)}
}

// Add inserts e. When the same series/instance/echo is added twice the entry
// with the lexically smaller path is kept and the other path is recorded as
// a duplicate, so the result does not depend on insertion order.
func (idx *Index) Add(e Entry) {
	instances, ok := idx.series[e.SeriesNumber]
	if !ok {
		instances = make(map[int]map[int]Entry)
		idx.series[e.SeriesNumber] = instances
	}
	echoes, ok := instances[e.InstanceNumber]
	if !ok {
		echoes = make(map[int]Entry)
		instances[e.InstanceNumber] = echoes
	}
	if prev, ok := echoes[e.EchoNumber]; ok {
		if prev.Path <= e.Path {
			idx.Duplicates = append(idx.Duplicates, e.Path)
			return
		}
		idx.Duplicates = append(idx.Duplicates, prev.Path)
	}
	echoes[e.EchoNumber] = e
}

// Has reports whether any image belongs to series n.
func (idx *Index) Has(n int) bool {
	return len(idx.series[n]) > 0
}

// Series returns the instance → echo → entry mapping of series n.
func (idx *Index) Series(n int) map[int]map[int]Entry {
	return idx.series[n]
}

// SeriesNumbers returns the indexed series numbers in ascending order.
func (idx *Index) SeriesNumbers() []int {
	numbers := make([]int, 0, len(idx.series))
	for n := range idx.series {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// Entries returns the images of series n ordered by instance, then echo.
func (idx *Index) Entries(n int) []Entry {
	var entries []Entry
	for _, echoes := range idx.series[n] {
		for _, e := range echoes {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].InstanceNumber != entries[j].InstanceNumber {
			return entries[i].InstanceNumber < entries[j].InstanceNumber
		}
		return entries[i].EchoNumber < entries[j].EchoNumber
	})
	return entries
}

// Volumes returns the number of distinct instances in series n.
func (idx *Index) Volumes(n int) int {
	return len(idx.series[n])
}

// Echoes returns the highest number of echoes any instance of series n has.
func (idx *Index) Echoes(n int) int {
	most := 0
	for _, echoes := range idx.series[n] {
		most = max(most, len(echoes))
	}
	return most
}

// FindFiles returns every indexable file below root in lexical order.
func FindFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		for _, want := range Extensions {
			if ext == want {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}

// BuildIndex decodes the headers of all images below root across a pool of
// workers. Results are consumed in completion order. A file that fails to
// decode is recorded in Failures and does not stop the build; only a failed
// directory scan or a cancelled context returns an error.
func BuildIndex(ctx context.Context, root string, opts IndexOptions) (*Index, error) {
	files, err := FindFiles(root)
	if err != nil {
		return nil, err
	}

	idx := NewIndex()
	idx.Total = len(files)
	if len(files) == 0 {
		return idx, nil
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	// Don't use more workers than files
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	if !opts.Quiet {
		fmt.Printf("Reading %d DICOM headers with %d parallel workers...\n", len(files), numWorkers)
	}

	type result struct {
		entry Entry
		path  string
		err   error
	}
	pathChan := make(chan string, len(files))
	resultChan := make(chan result, len(files))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range pathChan {
				if ctx.Err() != nil {
					resultChan <- result{path: path, err: ctx.Err()}
					continue
				}
				e, err := ReadEntry(path)
				resultChan <- result{entry: e, path: path, err: err}
			}
		}()
	}

	for _, path := range files {
		pathChan <- path
	}
	close(pathChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	completed := 0
	for res := range resultChan {
		completed++
		if res.err != nil {
			idx.Failures = append(idx.Failures, Failure{Path: res.path, Err: res.err})
		} else {
			idx.Add(res.entry)
		}
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(completed, len(files))
		}
		if !opts.Quiet && (completed%100 == 0 || completed == len(files)) {
			progress := float64(completed) / float64(len(files)) * 100
			fmt.Printf("  Progress: %d/%d (%.0f%%)\n", completed, len(files), progress)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(idx.Failures, func(i, j int) bool { return idx.Failures[i].Path < idx.Failures[j].Path })
	sort.Strings(idx.Duplicates)
	return idx, nil
}
