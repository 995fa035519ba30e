package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// ParseError means a file's content is not valid JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError means a file parsed as valid JSON but the top-level value is not
// an array. A top-level object is the common malformed case and is rejected,
// never coerced into a single-element batch.
type ShapeError struct {
	Path string
	Got  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected a JSON array at top level, got %s", e.Path, e.Got)
}

// Load reads one file and parses it as a JSON array of listing records. Each
// element keeps its original bytes so the raw payload can be stored verbatim.
// Individual elements are not validated here; malformed records are rejected
// later, one by one, during normalization.
func Load(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		if json.Valid(trimmed) {
			return nil, &ShapeError{Path: path, Got: topLevelKind(trimmed)}
		}
		return nil, &ParseError{Path: path, Err: fmt.Errorf("unexpected content")}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return records, nil
}

func topLevelKind(data []byte) string {
	if len(data) == 0 {
		return "empty input"
	}
	switch data[0] {
	case '{':
		return "an object"
	case '"':
		return "a string"
	case 't', 'f':
		return "a boolean"
	case 'n':
		return "null"
	default:
		return "a number"
	}
}
