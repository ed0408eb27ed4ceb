package cv

import (
	"image"
	"math"
)

// Image region types
type Region struct {
	X1, Y1, X2, Y2 int
}

type Point struct {
	X, Y int
}

// NewRegion creates a new region
func NewRegion(x1, y1, x2, y2 int) Region {
	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Contains checks if a point is within the region
func (r Region) Contains(p Point) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}

// Width returns the width of the region
func (r Region) Width() int {
	return r.X2 - r.X1
}

// Height returns the height of the region
func (r Region) Height() int {
	return r.Y2 - r.Y1
}

// ToImageRectangle converts Region to *image.Rectangle for use with CV operations
func (r Region) ToImageRectangle() *image.Rectangle {
	return &image.Rectangle{
		Min: image.Point{X: r.X1, Y: r.Y1},
		Max: image.Point{X: r.X2, Y: r.Y2},
	}
}

// Scale maps a region authored at baseW x baseH onto a width x height frame
func (r Region) Scale(baseW, baseH, width, height int) Region {
	sx := float64(width) / float64(baseW)
	sy := float64(height) / float64(baseH)
	return Region{
		X1: int(float64(r.X1) * sx),
		Y1: int(float64(r.Y1) * sy),
		X2: int(float64(r.X2) * sx),
		Y2: int(float64(r.Y2) * sy),
	}
}

// Distance returns the Euclidean distance between two points
func (p Point) Distance(q Point) float64 {
	dx := float64(p.X - q.X)
	dy := float64(p.Y - q.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Box is a detection result in frame coordinates
type Box struct {
	Name       string
	X, Y       int
	Width      int
	Height     int
	Confidence float64
}

// Center returns the middle of the box
func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}
