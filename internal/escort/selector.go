package escort

import (
	"math"
	"sort"

	"jordanella.com/escort-bot/internal/cv"
)

// ReferencePoint ties an escort branch to where the position marker sits when
// that branch is the right one. Coordinates are at the base resolution.
type ReferencePoint struct {
	PathID int    `yaml:"id"`
	Name   string `yaml:"sequence"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
}

// DefaultReferencePoints are authored at 3840x2160
func DefaultReferencePoints() []ReferencePoint {
	return []ReferencePoint{
		{PathID: 1, Name: "ESCORT_PATH_A_1", X: 1902, Y: 431},
		{PathID: 2, Name: "ESCORT_PATH_A_2", X: 1719, Y: 438},
		{PathID: 3, Name: "ESCORT_PATH_A_3", X: 2284, Y: 461},
		{PathID: 4, Name: "ESCORT_PATH_A_4", X: 2898, Y: 688},
	}
}

// ScaleReferencePoints maps points from baseW x baseH to a width x height
// frame, truncating to whole pixels, and returns them ordered by PathID
func ScaleReferencePoints(points []ReferencePoint, baseW, baseH, width, height int) []ReferencePoint {
	sx := float64(width) / float64(baseW)
	sy := float64(height) / float64(baseH)

	scaled := make([]ReferencePoint, len(points))
	for i, p := range points {
		scaled[i] = p
		scaled[i].X = int(float64(p.X) * sx)
		scaled[i].Y = int(float64(p.Y) * sy)
	}
	sort.SliceStable(scaled, func(i, j int) bool { return scaled[i].PathID < scaled[j].PathID })
	return scaled
}

// Selection is the chosen branch and how far the marker was from it
type Selection struct {
	ReferencePoint
	Distance  float64
	Distances map[int]float64
}

// SelectNearest returns the point closest to marker. Points are compared in
// the order given with a strict less-than, so ties keep the earlier point.
func SelectNearest(points []ReferencePoint, marker cv.Point) (Selection, bool) {
	if len(points) == 0 {
		return Selection{}, false
	}

	sel := Selection{Distance: math.Inf(1), Distances: make(map[int]float64, len(points))}
	for _, p := range points {
		d := marker.Distance(cv.Point{X: p.X, Y: p.Y})
		sel.Distances[p.PathID] = d
		if d < sel.Distance {
			sel.Distance = d
			sel.ReferencePoint = p
		}
	}
	return sel, true
}
