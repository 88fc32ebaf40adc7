package editor

import (
	"math"
	"testing"

	"github.com/voltmap/voltmap/internal/geometry"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestZoomAtKeepsCursorInvariant(t *testing.T) {
	vt := NewViewTransform(1.0, 0, 0, 1.1)
	cursor := geometry.Vec{X: 100, Y: 100}

	before := vt.ToDiagram(cursor)
	vt.ZoomAt(cursor, -1)
	after := vt.ToDiagram(cursor)

	if !almostEqual(vt.Scale, 1.1) {
		t.Errorf("scale = %v, want 1.1", vt.Scale)
	}
	if !almostEqual(vt.OffsetX, -10) || !almostEqual(vt.OffsetY, -10) {
		t.Errorf("offset = (%v, %v), want (-10, -10)", vt.OffsetX, vt.OffsetY)
	}
	if !almostEqual(before.X, after.X) || !almostEqual(before.Y, after.Y) {
		t.Errorf("diagram point under cursor moved: %v -> %v", before, after)
	}
}

func TestZoomDirection(t *testing.T) {
	tests := []struct {
		name       string
		wheelDelta float64
		wantScale  float64
	}{
		{"negative delta zooms in", -3, 1.1},
		{"positive delta zooms out", 3, 1 / 1.1},
		{"zero delta zooms out", 0, 1 / 1.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vt := NewViewTransform(1.0, 0, 0, 1.1)
			vt.ZoomAt(geometry.Vec{X: 50, Y: 50}, tt.wheelDelta)
			if !almostEqual(vt.Scale, tt.wantScale) {
				t.Errorf("scale = %v, want %v", vt.Scale, tt.wantScale)
			}
		})
	}
}

func TestZoomInOutRoundTrip(t *testing.T) {
	vt := NewViewTransform(1.0, 20, -30, 1.1)
	cursor := geometry.Vec{X: 400, Y: 300}

	vt.ZoomAt(cursor, -1)
	vt.ZoomAt(cursor, +1)

	if !almostEqual(vt.Scale, 1.0) {
		t.Errorf("scale after round trip = %v, want 1.0", vt.Scale)
	}
	if !almostEqual(vt.OffsetX, 20) || !almostEqual(vt.OffsetY, -30) {
		t.Errorf("offset after round trip = (%v, %v), want (20, -30)", vt.OffsetX, vt.OffsetY)
	}
}

func TestPanAndReset(t *testing.T) {
	vt := NewViewTransform(2.0, 5, 5, 1.1)
	vt.Pan(10, -20)
	if vt.OffsetX != 15 || vt.OffsetY != -15 {
		t.Errorf("offset after pan = (%v, %v), want (15, -15)", vt.OffsetX, vt.OffsetY)
	}

	vt.ZoomAt(geometry.Vec{}, -1)
	vt.Reset()
	if vt.Scale != 2.0 || vt.OffsetX != 5 || vt.OffsetY != 5 {
		t.Errorf("reset = (%v, %v, %v), want (2, 5, 5)", vt.Scale, vt.OffsetX, vt.OffsetY)
	}
}

func TestToViewportToDiagramRoundTrip(t *testing.T) {
	vt := NewViewTransform(1.5, -40, 12, 1.1)
	p := geometry.Vec{X: 123.5, Y: -9}
	got := vt.ToDiagram(vt.ToViewport(p))
	if !almostEqual(got.X, p.X) || !almostEqual(got.Y, p.Y) {
		t.Errorf("round trip = %v, want %v", got, p)
	}
}

func TestFitToBounds(t *testing.T) {
	vt := NewViewTransform(1.0, 0, 0, 1.1)
	bounds := geometry.Rect{X: 100, Y: 200, Width: 100, Height: 50}

	vt.FitToBounds(bounds, 220, 220, 0.05, 4)

	if !almostEqual(vt.Scale, 2) {
		t.Errorf("scale = %v, want 2", vt.Scale)
	}
	// The bounds' top-left corner maps to the viewport origin; padding
	// only enters the scale computation.
	corner := vt.ToViewport(geometry.Vec{X: 100, Y: 200})
	if !almostEqual(corner.X, 0) || !almostEqual(corner.Y, 0) {
		t.Errorf("corner maps to (%v, %v), want origin", corner.X, corner.Y)
	}
}
