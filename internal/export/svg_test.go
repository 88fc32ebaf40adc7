package export

import (
	"strings"
	"testing"

	"github.com/voltmap/voltmap/internal/diagram"
)

func testSnapshot() diagram.LayoutSnapshot {
	return diagram.LayoutSnapshot{
		IRI:  "urn:d1",
		Name: "North & South",
		Objects: []diagram.ObjectSnapshot{
			{
				IRI:  "urn:o1",
				Name: "Busbar <A>",
				Points: []diagram.Point{
					{IRI: "urn:p0", X: 0, Y: 100},
					{IRI: "urn:p1", X: 400, Y: 100},
				},
			},
			{
				IRI:     "urn:o2",
				Name:    "Transformer",
				Polygon: true,
				Points: []diagram.Point{
					{IRI: "urn:q0", X: 50, Y: 150},
					{IRI: "urn:q1", X: 90, Y: 150},
					{IRI: "urn:q2", X: 70, Y: 190},
				},
			},
		},
		Glue: []diagram.GluePair{{A: "urn:p1", B: "urn:q0"}},
	}
}

func TestRenderSVG(t *testing.T) {
	svg := string(RenderSVG(testSnapshot()))

	if !strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg"`) {
		t.Fatalf("not an svg document:\n%s", svg)
	}
	// Bounds are (0,100)-(400,190), padded by 20 on every side.
	if !strings.Contains(svg, `viewBox="-20 80 440 130"`) {
		t.Errorf("wrong viewBox:\n%s", svg)
	}
	if !strings.Contains(svg, "<title>North &amp; South</title>") {
		t.Errorf("diagram title missing or unescaped:\n%s", svg)
	}

	if !strings.Contains(svg, `<polyline points="0,100 400,100"`) {
		t.Errorf("busbar polyline missing:\n%s", svg)
	}
	if !strings.Contains(svg, "<title>Busbar &lt;A&gt;</title>") {
		t.Errorf("object name not escaped:\n%s", svg)
	}
	if !strings.Contains(svg, `<polygon points="50,150 90,150 70,190"`) {
		t.Errorf("transformer polygon missing:\n%s", svg)
	}

	// One point marker per point, glue markers only on the glued pair.
	if got := strings.Count(svg, `fill="#1e293b"/>`); got != 5 {
		t.Errorf("point markers = %d, want 5", got)
	}
	if got := strings.Count(svg, `stroke="#d97706"`); got != 2 {
		t.Errorf("glue markers = %d, want 2", got)
	}
	if !strings.Contains(svg, `<circle cx="400" cy="100" r="5"`) {
		t.Errorf("glue marker not at glued point:\n%s", svg)
	}
}

func TestRenderSVGEmptySnapshot(t *testing.T) {
	svg := string(RenderSVG(diagram.LayoutSnapshot{Name: "Empty"}))

	if !strings.Contains(svg, `viewBox="-20 -20 140 140"`) {
		t.Errorf("fallback viewBox missing:\n%s", svg)
	}
	if strings.Contains(svg, "<polyline") || strings.Contains(svg, "<polygon") {
		t.Errorf("empty snapshot rendered shapes:\n%s", svg)
	}
	if !strings.HasSuffix(svg, "</svg>\n") {
		t.Errorf("document not closed:\n%s", svg)
	}
}

func TestRenderSVGSample(t *testing.T) {
	d, glue := diagram.NewSampleDiagram()
	svg := string(RenderSVG(diagram.Snapshot(d, glue)))

	if !strings.Contains(svg, "<polygon") {
		t.Errorf("sample transformer not rendered as polygon")
	}
	if strings.Count(svg, "<polyline") != 3 {
		t.Errorf("sample has %d polylines, want 3", strings.Count(svg, "<polyline"))
	}
}
