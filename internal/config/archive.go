package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/scansession/internal/archive"
)

// Archive holds the archiving settings that can be kept between runs.
type Archive struct {
	Source    string `yaml:"source"`
	Target    string `yaml:"target"`
	BVLinks   bool   `yaml:"bv_links"`
	TBVLinks  bool   `yaml:"tbv_links"`
	TBVDir    string `yaml:"tbv_dir"`
	TBVPrefix string `yaml:"tbv_prefix"`
	Workers   int    `yaml:"workers,omitempty"`
}

// DefaultArchive returns the settings used when no file exists.
func DefaultArchive() Archive {
	opts := archive.DefaultOptions()
	return Archive{TBVDir: opts.TBVDir, TBVPrefix: opts.TBVPrefix}
}

// LoadArchive reads settings from path. A missing file yields the defaults;
// fields absent from the file keep their default value.
func LoadArchive(path string) (Archive, error) {
	s := DefaultArchive()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read archive settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultArchive(), fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// SaveArchive writes s to path, creating the parent directory.
func SaveArchive(path string, s Archive) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode archive settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write archive settings: %w", err)
	}
	return nil
}

// Options converts the settings to executor options.
func (s Archive) Options() archive.Options {
	opts := archive.DefaultOptions()
	opts.Source = s.Source
	opts.Target = s.Target
	opts.BVLinks = s.BVLinks
	opts.TBVLinks = s.TBVLinks
	if s.TBVDir != "" {
		opts.TBVDir = s.TBVDir
	}
	if s.TBVPrefix != "" {
		opts.TBVPrefix = s.TBVPrefix
	}
	opts.Workers = s.Workers
	return opts
}
