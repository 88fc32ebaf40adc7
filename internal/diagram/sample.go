package diagram

import (
	"fmt"

	"github.com/voltmap/voltmap/internal/typeid"
)

// NewSampleDiagram builds a small substation layout used by the
// playground and the wasm demo: a busbar, two feeder lines and a
// transformer outline, with the feeders glued to the busbar.
func NewSampleDiagram() (*Diagram, *GlueGraph) {
	d := New(typeid.NewDiagramID(), "Sample substation", "cgmes3")
	glue := NewGlueGraph()

	busbar := &Object{IRI: typeid.NewObjectIRI(), Name: "Busbar A"}
	busbarPts := []*Point{
		{IRI: typeid.NewPointIRI(), X: 0, Y: 100},
		{IRI: typeid.NewPointIRI(), X: 100, Y: 100},
		{IRI: typeid.NewPointIRI(), X: 300, Y: 100},
		{IRI: typeid.NewPointIRI(), X: 400, Y: 100},
	}

	feeder1 := &Object{IRI: typeid.NewObjectIRI(), Name: "Feeder 1"}
	feeder1Pts := []*Point{
		{IRI: typeid.NewPointIRI(), X: 100, Y: 100},
		{IRI: typeid.NewPointIRI(), X: 100, Y: 220},
		{IRI: typeid.NewPointIRI(), X: 140, Y: 280},
	}

	feeder2 := &Object{IRI: typeid.NewObjectIRI(), Name: "Feeder 2"}
	feeder2Pts := []*Point{
		{IRI: typeid.NewPointIRI(), X: 300, Y: 100},
		{IRI: typeid.NewPointIRI(), X: 300, Y: 260},
	}

	transformer := &Object{IRI: typeid.NewObjectIRI(), Name: "Transformer T1", Polygon: true}
	transformerPts := []*Point{
		{IRI: typeid.NewPointIRI(), X: 140, Y: 280},
		{IRI: typeid.NewPointIRI(), X: 180, Y: 280},
		{IRI: typeid.NewPointIRI(), X: 180, Y: 320},
		{IRI: typeid.NewPointIRI(), X: 140, Y: 320},
	}

	for _, add := range []struct {
		obj *Object
		pts []*Point
	}{
		{busbar, busbarPts},
		{feeder1, feeder1Pts},
		{feeder2, feeder2Pts},
		{transformer, transformerPts},
	} {
		if err := d.AddObject(add.obj, add.pts); err != nil {
			panic(fmt.Sprintf("sample diagram: %v", err))
		}
	}

	// Feeder heads ride the busbar; feeder 1's tail meets the
	// transformer corner.
	glue.Glue(feeder1Pts[0].IRI, busbarPts[1].IRI)
	glue.Glue(feeder2Pts[0].IRI, busbarPts[2].IRI)
	glue.Glue(feeder1Pts[2].IRI, transformerPts[0].IRI)

	return d, glue
}
