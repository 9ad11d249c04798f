package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var errNotFound = errors.New("not found")

// copyFile copies src to dst and returns the number of bytes written.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return n, nil
}

// copyTree copies the directory src to dst, keeping relative paths.
// progress, when set, is called after each file with the file count.
func copyTree(src, dst string, progress func(done, total int)) (files int, bytes int64, err error) {
	var paths []string
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(filepath.Join(dst, rel), 0755)
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	for _, rel := range paths {
		n, err := copyFile(filepath.Join(src, rel), filepath.Join(dst, rel))
		if err != nil {
			return files, bytes, err
		}
		files++
		bytes += n
		if progress != nil {
			progress(files, len(paths))
		}
	}
	return files, bytes, nil
}

// copyMasks copies the files named by masks from the source root into dst
// and returns the masks as they should be recorded: a wildcard mask is
// replaced by the sorted names of the files it matched. A mask that fails
// keeps its text and adds one warning.
func (e *executor) copyMasks(masks []string, dst string) []string {
	var out []string
	for _, mask := range masks {
		mask = strings.TrimSpace(mask)
		if mask == "" {
			continue
		}
		copied, err := e.copyMask(mask, dst)
		if err != nil {
			e.warn("Error copying logfiles '%s': %v", mask, err)
			out = append(out, mask)
			continue
		}
		out = append(out, copied...)
	}
	return out
}

func (e *executor) copyMask(mask, dst string) ([]string, error) {
	src := filepath.Join(e.opts.Source, mask)

	if info, err := os.Stat(src); err == nil && info.IsDir() {
		files, bytes, err := copyTree(src, filepath.Join(dst, mask), nil)
		e.res.Files += files
		e.res.Bytes += bytes
		if err != nil {
			return nil, err
		}
		return []string{mask}, nil
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(src)
	if err != nil {
		return nil, err
	}
	var copied []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		name := filepath.Base(match)
		n, err := copyFile(match, filepath.Join(dst, name))
		if err != nil {
			return nil, err
		}
		e.res.Files++
		e.res.Bytes += n
		copied = append(copied, name)
	}
	if len(copied) == 0 {
		return nil, errNotFound
	}
	if !strings.Contains(mask, "*") {
		return []string{mask}, nil
	}
	sort.Strings(copied)
	return copied, nil
}

// withinDir reports whether path lies below a directory named dir, relative
// to root.
func withinDir(root, path, dir string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts[:len(parts)-1] {
		if part == dir {
			return true
		}
	}
	return false
}
