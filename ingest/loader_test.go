package ingest

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLoadValidArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	writeFile(t, path, `[{"room_id": 1}, {"room_id": 2, "name": "B"}]`)

	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d; want 2", len(records))
	}
	// Element bytes survive untouched for payload storage.
	if string(records[0]) != `{"room_id": 1}` {
		t.Errorf("records[0] = %s; raw bytes should be preserved", records[0])
	}
}

func TestLoadEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	writeFile(t, path, `[]`)

	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d; want 0", len(records))
	}
}

func TestLoadRejectsNonArrayTopLevel(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"object", `{"not": "an array"}`},
		{"string", `"hello"`},
		{"number", `42`},
		{"null", `null`},
		{"boolean", `true`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json")
			writeFile(t, path, tt.content)

			_, err := Load(path)
			var shapeErr *ShapeError
			if !errors.As(err, &shapeErr) {
				t.Fatalf("Load(%s) error = %v; want *ShapeError", tt.content, err)
			}
		})
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated object", `{"room_id": `},
		{"truncated array", `[{"room_id": 1},`},
		{"garbage", `not json at all`},
		{"empty file", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json")
			writeFile(t, path, tt.content)

			_, err := Load(path)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Load(%q) error = %v; want *ParseError", tt.content, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Load of a missing file should error")
	}
	var parseErr *ParseError
	var shapeErr *ShapeError
	if errors.As(err, &parseErr) || errors.As(err, &shapeErr) {
		t.Errorf("missing file should be a plain read error, got %v", err)
	}
}
