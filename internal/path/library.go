package path

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"jordanella.com/escort-bot/internal/logging"
)

// ConfigurationError reports a missing or malformed path document
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("path document %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ErrUnknownSequence is returned when a named sequence is not in the library
var ErrUnknownSequence = errors.New("unknown sequence")

// Library holds named movement sequences
type Library struct {
	sequences map[string]Sequence
}

type document struct {
	Paths map[string]json.RawMessage `json:"paths"`
}

type wrappedSequence struct {
	Data Sequence `json:"data"`
}

// NewLibrary builds a library from already-decoded sequences
func NewLibrary(sequences map[string]Sequence) *Library {
	l := &Library{sequences: make(map[string]Sequence, len(sequences))}
	for name, seq := range sequences {
		l.sequences[name] = seq
	}
	return l
}

// LoadLibrary reads an escort path document:
//
//	{"paths": {"NAME": {"data": [events...]} | [events...]}}
func LoadLibrary(filePath string) (*Library, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &ConfigurationError{Path: filePath, Err: err}
	}
	lib, err := ParseLibrary(data)
	if err != nil {
		return nil, &ConfigurationError{Path: filePath, Err: err}
	}
	return lib, nil
}

// LoadLibraryOrEmpty logs a ConfigurationError and returns an empty library
func LoadLibraryOrEmpty(filePath string, logger *logging.Logger) *Library {
	lib, err := LoadLibrary(filePath)
	if err != nil {
		logger.ErrorWithContext("Failed to load escort paths, playback disabled", err, map[string]interface{}{
			"file": filePath,
		})
		return NewLibrary(nil)
	}
	logger.InfoWithContext("Loaded escort paths", map[string]interface{}{
		"file":      filePath,
		"sequences": lib.Len(),
	})
	return lib
}

// ParseLibrary decodes an escort path document
func ParseLibrary(data []byte) (*Library, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if doc.Paths == nil {
		return nil, fmt.Errorf("missing 'paths' object")
	}

	lib := &Library{sequences: make(map[string]Sequence, len(doc.Paths))}
	for name, raw := range doc.Paths {
		seq, err := decodeSequence(raw)
		if err != nil {
			return nil, fmt.Errorf("sequence %s: %w", name, err)
		}
		lib.sequences[name] = seq
	}
	return lib, nil
}

func decodeSequence(raw json.RawMessage) (Sequence, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var seq Sequence
		if err := json.Unmarshal(trimmed, &seq); err != nil {
			return nil, err
		}
		return seq, nil
	}

	var wrapped wrappedSequence
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Data, nil
}

// Get returns a copy of the named sequence
func (l *Library) Get(name string) (Sequence, error) {
	seq, ok := l.sequences[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSequence, name)
	}
	out := make(Sequence, len(seq))
	copy(out, seq)
	return out, nil
}

// Has reports whether the library contains name
func (l *Library) Has(name string) bool {
	_, ok := l.sequences[name]
	return ok
}

// Names returns the sequence names in sorted order
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.sequences))
	for name := range l.sequences {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of sequences
func (l *Library) Len() int {
	return len(l.sequences)
}
