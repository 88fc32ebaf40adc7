package geometry

import "math"

// Vec is a point or displacement in diagram coordinates.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + other.
func (v Vec) Add(other Vec) Vec {
	return Vec{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec) Sub(other Vec) Vec {
	return Vec{v.X - other.X, v.Y - other.Y}
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect (inclusive bounds).
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// RectFromCorners returns the axis-aligned rect spanned by two opposite
// corners, in any order.
func RectFromCorners(a, b Vec) Rect {
	minX := min(a.X, b.X)
	minY := min(a.Y, b.Y)
	return Rect{
		X:      minX,
		Y:      minY,
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
}

// Centroid returns the arithmetic mean of the given points.
// Returns the zero vector for an empty slice.
func Centroid(points []Vec) Vec {
	if len(points) == 0 {
		return Vec{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Vec{sx / n, sy / n}
}

// RotateQuarter rotates each point around the pivot by turns quarter
// turns (positive = +90°, negative = -90°). The rotation is computed by
// coordinate swap/negate so repeated application is exact — no
// trigonometric drift accumulates.
func RotateQuarter(points []Vec, pivot Vec, turns int) []Vec {
	// Normalize to 0..3 quarter turns.
	t := ((turns % 4) + 4) % 4
	out := make([]Vec, len(points))
	for i, p := range points {
		dx := p.X - pivot.X
		dy := p.Y - pivot.Y
		for range t {
			// (dx, dy) -> (-dy, dx) is a +90° rotation in a y-up frame.
			dx, dy = -dy, dx
		}
		out[i] = Vec{pivot.X + dx, pivot.Y + dy}
	}
	return out
}

// Axis selects the mirror axis orientation.
type Axis int

const (
	// AxisVertical mirrors across a vertical line (left-right flip).
	AxisVertical Axis = iota
	// AxisHorizontal mirrors across a horizontal line (up-down flip).
	AxisHorizontal
)

// Mirror reflects each point across the pivot's axis. For AxisVertical
// x' = 2*pivot.X - x; for AxisHorizontal y' = 2*pivot.Y - y.
func Mirror(points []Vec, pivot Vec, axis Axis) []Vec {
	out := make([]Vec, len(points))
	for i, p := range points {
		switch axis {
		case AxisVertical:
			out[i] = Vec{2*pivot.X - p.X, p.Y}
		case AxisHorizontal:
			out[i] = Vec{p.X, 2*pivot.Y - p.Y}
		default:
			out[i] = p
		}
	}
	return out
}

// BoundsOf returns the axis-aligned bounds of the given points.
// Returns an empty rect for no points.
func BoundsOf(points []Vec) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// FitScale returns the largest scale ≤ maxScale at which bounds, grown
// by the padding fraction on every side, fit inside viewportW×viewportH.
// Degenerate bounds or viewport yield maxScale.
func FitScale(bounds Rect, viewportW, viewportH, padding, maxScale float64) float64 {
	padW := bounds.Width * (1 + 2*padding)
	padH := bounds.Height * (1 + 2*padding)
	if padW <= 0 || padH <= 0 || viewportW <= 0 || viewportH <= 0 {
		return maxScale
	}
	scale := min(viewportW/padW, viewportH/padH)
	return min(scale, maxScale)
}
