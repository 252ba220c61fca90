package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func writeAsset(t *testing.T, dir, file string, asset any) {
	t.Helper()

	data, err := json.Marshal(asset)
	if err != nil {
		t.Fatalf("marshalling asset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), data, 0644); err != nil {
		t.Fatalf("writing asset: %v", err)
	}
}

func testAsset(id, name string) Asset[*testSpec] {
	return Asset[*testSpec]{
		Version:    1,
		Kind:       "test",
		Identifier: id,
		Spec:       &testSpec{Name: name, Valid: true},
	}
}

func TestNewFileStore(t *testing.T) {
	tests := map[string]struct {
		files     map[string]any
		expErr    string
		expIDs    string
		nonExists bool
	}{
		"empty directory": {
			files: map[string]any{},
		},
		"loads json files": {
			files: map[string]any{
				"easy.json": testAsset("easy", "Easy"),
				"hard.json": testAsset("hard", "Hard"),
			},
			expIDs: "easy,hard",
		},
		"ignores other files": {
			files: map[string]any{
				"easy.json":  testAsset("easy", "Easy"),
				"README.txt": "not an asset",
			},
			expIDs: "easy",
		},
		"invalid json": {
			files: map[string]any{
				"bad.json": "{",
			},
			expErr: "unmarshalling asset",
		},
		"validation failure": {
			files: map[string]any{
				"bad.json": Asset[*testSpec]{Version: 1, Kind: "test", Identifier: "bad", Spec: &testSpec{}},
			},
			expErr: "validating bad.json",
		},
		"duplicate id": {
			files: map[string]any{
				"one.json": testAsset("same", "One"),
				"two.json": testAsset("same", "Two"),
			},
			expErr: "duplicate key detected: same",
		},
		"missing directory": {
			nonExists: true,
			expErr:    "no such file",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for file, content := range tt.files {
				if raw, ok := content.(string); ok {
					if err := os.WriteFile(filepath.Join(dir, file), []byte(raw), 0644); err != nil {
						t.Fatalf("writing file: %v", err)
					}
					continue
				}
				writeAsset(t, dir, file, content)
			}
			if tt.nonExists {
				dir = filepath.Join(dir, "missing")
			}

			store, err := NewFileStore[*testSpec](dir, "test")

			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "ids", strings.Join(store.IDs(), ","), tt.expIDs)
		})
	}
}

func TestFileStore_Get(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "easy.json", testAsset("easy", "Easy"))

	store, err := NewFileStore[*testSpec](dir, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec, ok := store.Get("easy")
	testutil.AssertEqual(t, "found", ok, true)
	testutil.AssertEqual(t, "name", spec.Name, "Easy")

	_, ok = store.Get("missing")
	testutil.AssertEqual(t, "missing found", ok, false)

	all := store.GetAll()
	delete(all, "easy")
	_, ok = store.Get("easy")
	testutil.AssertEqual(t, "GetAll returns a copy", ok, true)
}

func TestFileStore_Reload(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "easy.json", testAsset("easy", "Easy"))

	store, err := NewFileStore[*testSpec](dir, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeAsset(t, dir, "hard.json", testAsset("hard", "Hard"))
	if err := store.Reload(); err != nil {
		t.Fatalf("reloading: %v", err)
	}
	testutil.AssertEqual(t, "after reload", strings.Join(store.IDs(), ","), "easy,hard")

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	testutil.AssertErrorContains(t, store.Reload(), "broken.json")
	testutil.AssertEqual(t, "kept on failure", strings.Join(store.IDs(), ","), "easy,hard")
}
