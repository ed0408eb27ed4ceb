package path

import "strings"

// Segment is a contiguous run of a Sequence
type Segment struct {
	Events       []Event
	EndsOnMarker bool
}

// MarkerFunc reports whether an event closes a segment
type MarkerFunc func(Event) bool

// KeyReleaseMarker matches the release of key
func KeyReleaseMarker(key string) MarkerFunc {
	key = strings.ToLower(key)
	return func(e Event) bool {
		return e.Type == EventKeyUp && strings.ToLower(e.Key) == key
	}
}

// DefaultMarker is the release of the interact key
var DefaultMarker = KeyReleaseMarker("f")

// Split cuts seq after every event matching marker. The marker event belongs to
// the segment it closes and any trailing events form a final segment. An empty
// sequence yields no segments.
func Split(seq Sequence, marker MarkerFunc) []Segment {
	if marker == nil {
		marker = DefaultMarker
	}

	var segments []Segment
	var current []Event
	for _, e := range seq {
		current = append(current, e)
		if marker(e) {
			segments = append(segments, Segment{Events: current, EndsOnMarker: true})
			current = nil
		}
	}
	if len(current) > 0 {
		segments = append(segments, Segment{Events: current})
	}
	return segments
}

// Join concatenates segments back into one sequence
func Join(segments []Segment) Sequence {
	var seq Sequence
	for _, s := range segments {
		seq = append(seq, s.Events...)
	}
	return seq
}
