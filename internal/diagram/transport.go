package diagram

// LayoutSnapshot is the wire form of a loaded layout, sent to clients
// over the session socket and the catalog API.
type LayoutSnapshot struct {
	IRI     string           `json:"iri"`
	Name    string           `json:"name"`
	Profile string           `json:"profile"`
	Objects []ObjectSnapshot `json:"objects"`
	Glue    []GluePair       `json:"glue,omitempty"`
}

// ObjectSnapshot is one object with its points inlined in sequence
// order.
type ObjectSnapshot struct {
	IRI      string  `json:"iri"`
	Name     string  `json:"name"`
	OffsetX  float64 `json:"offsetX"`
	OffsetY  float64 `json:"offsetY"`
	Rotation float64 `json:"rotation"`
	Polygon  bool    `json:"polygon"`
	Points   []Point `json:"points"`
}

// Snapshot flattens the diagram and the glue graph for transport.
func Snapshot(d *Diagram, glue *GlueGraph) LayoutSnapshot {
	snap := LayoutSnapshot{
		IRI:     d.IRI,
		Name:    d.Name,
		Profile: d.Profile,
	}
	for _, objIRI := range d.Objects {
		obj := d.Object(objIRI)
		os := ObjectSnapshot{
			IRI:      obj.IRI,
			Name:     obj.Name,
			OffsetX:  obj.OffsetX,
			OffsetY:  obj.OffsetY,
			Rotation: obj.Rotation,
			Polygon:  obj.Polygon,
		}
		for _, p := range d.PointsOf(obj) {
			os.Points = append(os.Points, *p)
		}
		snap.Objects = append(snap.Objects, os)
	}
	if glue != nil {
		snap.Glue = glue.Pairs()
	}
	return snap
}

// FromSnapshot rebuilds a diagram and glue graph from the wire form.
func FromSnapshot(snap LayoutSnapshot) (*Diagram, *GlueGraph, error) {
	d := New(snap.IRI, snap.Name, snap.Profile)
	for _, os := range snap.Objects {
		obj := &Object{
			IRI:      os.IRI,
			Name:     os.Name,
			OffsetX:  os.OffsetX,
			OffsetY:  os.OffsetY,
			Rotation: os.Rotation,
			Polygon:  os.Polygon,
		}
		points := make([]*Point, len(os.Points))
		for i := range os.Points {
			p := os.Points[i]
			points[i] = &p
		}
		if err := d.AddObject(obj, points); err != nil {
			return nil, nil, err
		}
	}
	glue := NewGlueGraph()
	for _, pair := range snap.Glue {
		glue.Glue(pair.A, pair.B)
	}
	return d, glue, nil
}
