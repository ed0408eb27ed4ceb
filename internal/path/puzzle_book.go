package path

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"os"
)

// Puzzle solve paths are recorded against a 1920x1080 client area
const (
	PuzzleBaseWidth  = 1920
	PuzzleBaseHeight = 1080
)

// PuzzlePoint is a recorded drag point at base resolution. Recordings may
// carry fractional coordinates; they are kept until the path is scaled.
type PuzzlePoint struct {
	X, Y float64
}

// PuzzleBook holds drag paths keyed by puzzle template name
type PuzzleBook struct {
	paths map[string][]PuzzlePoint
}

type coordinatesEntry struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// LoadPuzzleBook reads a puzzle path document:
//
//	{"paths": {"puzzle_1": {"coordinates": [[x,y],...]} | [[x,y],...]}}
func LoadPuzzleBook(filePath string) (*PuzzleBook, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &ConfigurationError{Path: filePath, Err: err}
	}
	book, err := ParsePuzzleBook(data)
	if err != nil {
		return nil, &ConfigurationError{Path: filePath, Err: err}
	}
	return book, nil
}

// ParsePuzzleBook decodes a puzzle path document, accepting the legacy bare list form
func ParsePuzzleBook(data []byte) (*PuzzleBook, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if doc.Paths == nil {
		return nil, fmt.Errorf("missing 'paths' object")
	}

	book := &PuzzleBook{paths: make(map[string][]PuzzlePoint, len(doc.Paths))}
	for name, raw := range doc.Paths {
		var coords [][]float64
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &coords); err != nil {
				return nil, fmt.Errorf("puzzle %s: %w", name, err)
			}
		} else {
			var entry coordinatesEntry
			if err := json.Unmarshal(trimmed, &entry); err != nil {
				return nil, fmt.Errorf("puzzle %s: %w", name, err)
			}
			coords = entry.Coordinates
		}

		points := make([]PuzzlePoint, 0, len(coords))
		for i, c := range coords {
			if len(c) < 2 {
				return nil, fmt.Errorf("puzzle %s point %d: expected [x, y]", name, i)
			}
			points = append(points, PuzzlePoint{X: c[0], Y: c[1]})
		}
		book.paths[name] = points
	}
	return book, nil
}

// NewPuzzleBook builds a book from base-resolution points
func NewPuzzleBook(paths map[string][]PuzzlePoint) *PuzzleBook {
	book := &PuzzleBook{paths: make(map[string][]PuzzlePoint, len(paths))}
	for name, pts := range paths {
		book.paths[name] = append([]PuzzlePoint(nil), pts...)
	}
	return book
}

// Scaled returns the named path scaled from 1920x1080 to a width x height
// client area. Coordinates are truncated only after scaling.
func (b *PuzzleBook) Scaled(name string, width, height int) ([]image.Point, bool) {
	pts, ok := b.paths[name]
	if !ok || len(pts) == 0 {
		return nil, false
	}

	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Point{
			X: int(p.X * float64(width) / PuzzleBaseWidth),
			Y: int(p.Y * float64(height) / PuzzleBaseHeight),
		}
	}
	return out, true
}

// Len returns the number of puzzle paths
func (b *PuzzleBook) Len() int {
	return len(b.paths)
}
