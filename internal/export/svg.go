package export

import (
	"bytes"
	"fmt"

	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/geometry"
)

const (
	strokeWidth    = 2.0
	pointRadius    = 3.0
	glueRadius     = 5.0
	canvasPadding  = 20.0
	fallbackExtent = 100.0
)

// RenderSVG draws a layout snapshot as a standalone SVG document.
// Objects render as polylines, closed polygons as filled polygons, and
// every glued point gets a hollow marker.
func RenderSVG(snap diagram.LayoutSnapshot) []byte {
	bounds := snapshotBounds(snap)

	var buf bytes.Buffer
	fmt.Fprintf(&buf,
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s">`+"\n",
		coord(bounds.X-canvasPadding), coord(bounds.Y-canvasPadding),
		coord(bounds.Width+2*canvasPadding), coord(bounds.Height+2*canvasPadding))
	fmt.Fprintf(&buf, `<title>%s</title>`+"\n", escapeText(snap.Name))

	glued := make(map[string]bool)
	for _, pair := range snap.Glue {
		glued[pair.A] = true
		glued[pair.B] = true
	}

	for _, obj := range snap.Objects {
		writeObject(&buf, obj)
	}

	// Glue markers sit on top of the object strokes.
	for _, obj := range snap.Objects {
		for _, p := range obj.Points {
			if !glued[p.IRI] {
				continue
			}
			fmt.Fprintf(&buf,
				`<circle cx="%s" cy="%s" r="%s" fill="none" stroke="#d97706" stroke-width="%s"/>`+"\n",
				coord(p.X), coord(p.Y), coord(glueRadius), coord(strokeWidth))
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func writeObject(buf *bytes.Buffer, obj diagram.ObjectSnapshot) {
	if len(obj.Points) == 0 {
		return
	}

	var pts bytes.Buffer
	for i, p := range obj.Points {
		if i > 0 {
			pts.WriteByte(' ')
		}
		fmt.Fprintf(&pts, "%s,%s", coord(p.X), coord(p.Y))
	}

	if obj.Polygon {
		fmt.Fprintf(buf,
			`<polygon points="%s" fill="#e2e8f0" stroke="#1e293b" stroke-width="%s"><title>%s</title></polygon>`+"\n",
			pts.String(), coord(strokeWidth), escapeText(obj.Name))
	} else {
		fmt.Fprintf(buf,
			`<polyline points="%s" fill="none" stroke="#1e293b" stroke-width="%s"><title>%s</title></polyline>`+"\n",
			pts.String(), coord(strokeWidth), escapeText(obj.Name))
	}

	for _, p := range obj.Points {
		fmt.Fprintf(buf,
			`<circle cx="%s" cy="%s" r="%s" fill="#1e293b"/>`+"\n",
			coord(p.X), coord(p.Y), coord(pointRadius))
	}
}

func snapshotBounds(snap diagram.LayoutSnapshot) geometry.Rect {
	var vecs []geometry.Vec
	for _, obj := range snap.Objects {
		for _, p := range obj.Points {
			vecs = append(vecs, geometry.Vec{X: p.X, Y: p.Y})
		}
	}
	if len(vecs) == 0 {
		return geometry.Rect{Width: fallbackExtent, Height: fallbackExtent}
	}
	return geometry.BoundsOf(vecs)
}

func coord(v float64) string {
	return fmt.Sprintf("%g", v)
}

func escapeText(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
