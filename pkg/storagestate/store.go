package storagestate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// DefaultPath is the conventional location of the persisted state file.
const DefaultPath = "auth-state.json"

// ErrMalformed is returned when bytes cannot be decoded as a storage state.
var ErrMalformed = errors.New("malformed storage state")

// Parse decodes a storage state document.
func Parse(data []byte) (*State, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}

	var state State
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &state, nil
}

// Encode serializes a state with the indentation Playwright uses.
func Encode(state *State) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("cannot encode nil storage state")
	}
	// Playwright always writes both arrays, never null.
	out := State{Cookies: state.Cookies, Origins: append([]Origin{}, state.Origins...)}
	if out.Cookies == nil {
		out.Cookies = []Cookie{}
	}
	for i := range out.Origins {
		if out.Origins[i].LocalStorage == nil {
			out.Origins[i].LocalStorage = []NameValue{}
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal storage state: %w", err)
	}
	return append(data, '\n'), nil
}

// Exists reports whether a regular file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Load reads and decodes the state file at path.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage state %s: %w", path, err)
	}
	state, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse storage state %s: %w", path, err)
	}
	return state, nil
}

// Save encodes state and writes it atomically to path.
func Save(path string, state *State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	return WriteRaw(path, data)
}

// WriteRaw writes data to path verbatim. The write goes through a temp file in
// the same directory followed by a rename, so concurrent readers only ever see
// the previous or the new content.
func WriteRaw(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	file, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tempPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Chmod(tempPath, 0600); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set state file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp state file: %w", err)
	}

	return nil
}
