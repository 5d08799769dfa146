// Package dataset handles raw record storage and result exports.
//
// Raw collector output lives as JSON under a raw directory; pipeline results
// are exported as CSV under a processed directory. When no collected data is
// available, a seeded generator produces a realistic sample population so the
// pipeline stays runnable end to end.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Raw data file names.
const (
	CommentsFile = "comments.json"
	ProfilesFile = "profiles.json"
	PostsFile    = "posts.json"
)

// Raw holds one collection's worth of unprocessed records.
type Raw struct {
	Comments []map[string]any
	Profiles []map[string]any
	Posts    []map[string]any
}

// Load reads the three raw JSON files from dir. A missing file yields an
// empty slice, not an error; a file whose top level is a single object is
// wrapped into a one-element list.
func Load(dir string) (*Raw, error) {
	raw := &Raw{}
	var err error
	if raw.Comments, err = loadJSON(filepath.Join(dir, CommentsFile)); err != nil {
		return nil, err
	}
	if raw.Profiles, err = loadJSON(filepath.Join(dir, ProfilesFile)); err != nil {
		return nil, err
	}
	if raw.Posts, err = loadJSON(filepath.Join(dir, PostsFile)); err != nil {
		return nil, err
	}
	return raw, nil
}

// Save writes the three raw JSON files to dir, creating it if needed.
func Save(dir string, raw *Raw) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create raw directory: %w", err)
	}
	if err := saveJSON(filepath.Join(dir, CommentsFile), raw.Comments); err != nil {
		return err
	}
	if err := saveJSON(filepath.Join(dir, ProfilesFile), raw.Profiles); err != nil {
		return err
	}
	return saveJSON(filepath.Join(dir, PostsFile), raw.Posts)
}

// Empty reports whether any of the three raw files is missing from dir.
// The generator kicks in when collection has not produced a complete set.
func Empty(dir string) bool {
	for _, name := range []string{CommentsFile, ProfilesFile, PostsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return true
		}
	}
	return false
}

func loadJSON(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied config
	if errors.Is(err, os.ErrNotExist) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	// A single top-level object is accepted as a one-record list.
	var single map[string]any
	if err := json.Unmarshal(data, &single); err == nil {
		return []map[string]any{single}, nil
	}

	return nil, fmt.Errorf("parse %s: expected a JSON list or object", path)
}

func saveJSON(path string, records []map[string]any) error {
	if records == nil {
		records = []map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Captions and bios carry Korean text; keep it readable on disk.
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
