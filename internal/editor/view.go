package editor

import "github.com/voltmap/voltmap/internal/geometry"

// ViewTransform maps diagram coordinates to viewport coordinates:
// viewport = diagram*Scale + Offset.
type ViewTransform struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`

	initialScale   float64
	initialOffsetX float64
	initialOffsetY float64
	zoomFactor     float64
}

// NewViewTransform creates a view transform with the given initial
// configuration. zoomFactor is the per-wheel-notch scale multiplier
// (> 1, typically close to 1).
func NewViewTransform(scale, offsetX, offsetY, zoomFactor float64) *ViewTransform {
	return &ViewTransform{
		Scale:          scale,
		OffsetX:        offsetX,
		OffsetY:        offsetY,
		initialScale:   scale,
		initialOffsetX: offsetX,
		initialOffsetY: offsetY,
		zoomFactor:     zoomFactor,
	}
}

// Pan shifts the offset by the given viewport delta. Offsets are
// unconstrained and may go negative.
func (vt *ViewTransform) Pan(dx, dy float64) {
	vt.OffsetX += dx
	vt.OffsetY += dy
}

// ZoomAt scales around the cursor so the diagram point under the cursor
// stays under the cursor. Negative wheelDelta zooms in.
func (vt *ViewTransform) ZoomAt(cursor geometry.Vec, wheelDelta float64) {
	factor := vt.zoomFactor
	if wheelDelta >= 0 {
		factor = 1 / vt.zoomFactor
	}
	vt.Scale *= factor
	vt.OffsetX = cursor.X - (cursor.X-vt.OffsetX)*factor
	vt.OffsetY = cursor.Y - (cursor.Y-vt.OffsetY)*factor
}

// Reset restores the initial scale and offset.
func (vt *ViewTransform) Reset() {
	vt.Scale = vt.initialScale
	vt.OffsetX = vt.initialOffsetX
	vt.OffsetY = vt.initialOffsetY
}

// FitToBounds picks the largest scale ≤ maxScale at which the padded
// bounds fit the viewport and translates the bounds' top-left corner
// to the viewport origin. Padding affects the scale only; the content
// itself starts at the origin.
func (vt *ViewTransform) FitToBounds(bounds geometry.Rect, viewportW, viewportH, padding, maxScale float64) {
	scale := geometry.FitScale(bounds, viewportW, viewportH, padding, maxScale)
	vt.Scale = scale
	vt.OffsetX = -bounds.X * scale
	vt.OffsetY = -bounds.Y * scale
}

// ToViewport maps a diagram-space point to viewport space.
func (vt *ViewTransform) ToViewport(p geometry.Vec) geometry.Vec {
	return geometry.Vec{
		X: p.X*vt.Scale + vt.OffsetX,
		Y: p.Y*vt.Scale + vt.OffsetY,
	}
}

// ToDiagram maps a viewport-space point back to diagram space.
func (vt *ViewTransform) ToDiagram(p geometry.Vec) geometry.Vec {
	return geometry.Vec{
		X: (p.X - vt.OffsetX) / vt.Scale,
		Y: (p.Y - vt.OffsetY) / vt.Scale,
	}
}
