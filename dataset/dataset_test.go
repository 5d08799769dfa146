package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFiles(t *testing.T) {
	raw, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(raw.Comments) != 0 || len(raw.Profiles) != 0 || len(raw.Posts) != 0 {
		t.Errorf("Load() of empty dir = %+v, want empty slices", raw)
	}
	if raw.Comments == nil {
		t.Error("missing file should yield an empty slice, not nil")
	}
}

func TestLoadWrapsSingleObject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProfilesFile), `{"username": "solo", "followers": 10}`)

	raw, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(raw.Profiles) != 1 || raw.Profiles[0]["username"] != "solo" {
		t.Errorf("Profiles = %v, want single wrapped record", raw.Profiles)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, CommentsFile), `"just a string"`)

	if _, err := Load(dir); err == nil {
		t.Error("Load() of non-list JSON should fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &Raw{
		Comments: []map[string]any{{"username": "a", "comment_text": "참여합니다!"}},
		Profiles: []map[string]any{{"username": "a", "followers": float64(100)}},
		Posts:    []map[string]any{{"username": "a", "like_count": float64(5)}},
	}
	if err := Save(dir, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	out, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestSaveKeepsKoreanReadable(t *testing.T) {
	dir := t.TempDir()
	raw := &Raw{Comments: []map[string]any{{"comment_text": "러닝 <3"}}}
	if err := Save(dir, raw); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, CommentsFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "러닝 <3") {
		t.Errorf("saved JSON escaped readable text: %s", data)
	}
}

func TestEmpty(t *testing.T) {
	dir := t.TempDir()
	if !Empty(dir) {
		t.Error("Empty() on fresh dir should be true")
	}
	if err := Save(dir, &Raw{}); err != nil {
		t.Fatal(err)
	}
	if Empty(dir) {
		t.Error("Empty() after Save should be false")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

