// Package diagram holds the in-memory model of a power-grid diagram
// layout: diagram objects (polylines/polygons), their ordered points,
// and the glue relations linking points across objects.
package diagram

import (
	"errors"
	"fmt"

	"github.com/voltmap/voltmap/internal/geometry"
)

var (
	ErrPointNotFound  = errors.New("point not found")
	ErrObjectNotFound = errors.New("diagram object not found")
	// ErrProtectedPoint is returned when deleting the first or last
	// point of an object. Endpoints anchor the object's topology.
	ErrProtectedPoint = errors.New("first and last points cannot be deleted")
	ErrBadIndex       = errors.New("insertion index out of range")
)

// Point is a vertex of a DiagramObject. The parent relation is stored
// as an IRI lookup rather than a pointer, so the model stays an arena
// of identifier-keyed records.
type Point struct {
	IRI            string  `json:"iri"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Z              float64 `json:"z"`
	SequenceNumber int     `json:"sequenceNumber"`
	ObjectIRI      string  `json:"objectIri"`
}

// Vec returns the point's 2D position.
func (p *Point) Vec() geometry.Vec {
	return geometry.Vec{X: p.X, Y: p.Y}
}

// Object is a polyline or polygon entity of the diagram, owning an
// ordered sequence of points by IRI. sequenceNumber values of the owned
// points are always exactly 0..n-1 in list order.
type Object struct {
	IRI      string   `json:"iri"`
	Name     string   `json:"name"`
	OffsetX  float64  `json:"offsetX"`
	OffsetY  float64  `json:"offsetY"`
	Rotation float64  `json:"rotation"`
	Polygon  bool     `json:"polygon"`
	Points   []string `json:"points"`
}

// Diagram is the aggregate for one loaded layout. Objects and the
// flattened point list are kept in sync: every point appears once in
// AllPoints and once in its owner's Points slice.
type Diagram struct {
	IRI     string   `json:"iri"`
	Name    string   `json:"name"`
	Profile string   `json:"profile"`
	Objects []string `json:"objects"`

	objects map[string]*Object
	points  map[string]*Point
	// Flattened point order, mirroring object membership.
	allPoints []string
}

// New creates an empty diagram.
func New(iri, name, profile string) *Diagram {
	return &Diagram{
		IRI:     iri,
		Name:    name,
		Profile: profile,
		objects: make(map[string]*Object),
		points:  make(map[string]*Point),
	}
}

// AddObject registers an object and its points, assigning sequence
// numbers from list order. Used by the loaders; editing goes through
// InsertPoint/DeletePoint.
func (d *Diagram) AddObject(obj *Object, points []*Point) error {
	if _, ok := d.objects[obj.IRI]; ok {
		return fmt.Errorf("duplicate object %s", obj.IRI)
	}
	obj.Points = obj.Points[:0]
	for i, p := range points {
		if _, ok := d.points[p.IRI]; ok {
			return fmt.Errorf("duplicate point %s", p.IRI)
		}
		p.ObjectIRI = obj.IRI
		p.SequenceNumber = i
		d.points[p.IRI] = p
		d.allPoints = append(d.allPoints, p.IRI)
		obj.Points = append(obj.Points, p.IRI)
	}
	d.objects[obj.IRI] = obj
	d.Objects = append(d.Objects, obj.IRI)
	return nil
}

// Object returns the object with the given IRI, or nil.
func (d *Diagram) Object(iri string) *Object {
	return d.objects[iri]
}

// Point returns the point with the given IRI, or nil.
func (d *Diagram) Point(iri string) *Point {
	return d.points[iri]
}

// ParentOf returns the object owning the given point, or nil.
func (d *Diagram) ParentOf(pointIRI string) *Object {
	p := d.points[pointIRI]
	if p == nil {
		return nil
	}
	return d.objects[p.ObjectIRI]
}

// PointsOf returns the object's points in sequence order.
func (d *Diagram) PointsOf(obj *Object) []*Point {
	out := make([]*Point, 0, len(obj.Points))
	for _, iri := range obj.Points {
		out = append(out, d.points[iri])
	}
	return out
}

// AllPoints returns every point of the diagram in flattened order.
func (d *Diagram) AllPoints() []*Point {
	out := make([]*Point, 0, len(d.allPoints))
	for _, iri := range d.allPoints {
		out = append(out, d.points[iri])
	}
	return out
}

// PointCount returns the number of points in the diagram.
func (d *Diagram) PointCount() int {
	return len(d.allPoints)
}

// InsertPoint splices a new point into the object's ordered list at
// index and renumbers the object's points to 0..n-1. The point is also
// appended to the diagram's flattened collection.
func (d *Diagram) InsertPoint(objectIRI, pointIRI string, index int, x, y float64) (*Point, error) {
	obj, ok := d.objects[objectIRI]
	if !ok {
		return nil, ErrObjectNotFound
	}
	if index < 0 || index > len(obj.Points) {
		return nil, ErrBadIndex
	}
	if _, ok := d.points[pointIRI]; ok {
		return nil, fmt.Errorf("duplicate point %s", pointIRI)
	}

	p := &Point{IRI: pointIRI, X: x, Y: y, ObjectIRI: objectIRI}
	obj.Points = append(obj.Points, "")
	copy(obj.Points[index+1:], obj.Points[index:])
	obj.Points[index] = pointIRI

	d.points[pointIRI] = p
	d.allPoints = append(d.allPoints, pointIRI)
	d.renumber(obj)
	return p, nil
}

// DeletePoint removes an interior point from its object and from the
// flattened collection, then renumbers the remaining points. Deleting
// the first or last point fails with ErrProtectedPoint.
func (d *Diagram) DeletePoint(pointIRI string) error {
	p, ok := d.points[pointIRI]
	if !ok {
		return ErrPointNotFound
	}
	obj := d.objects[p.ObjectIRI]
	if obj == nil {
		return ErrObjectNotFound
	}
	if len(obj.Points) > 0 && (obj.Points[0] == pointIRI || obj.Points[len(obj.Points)-1] == pointIRI) {
		return ErrProtectedPoint
	}

	kept := obj.Points[:0]
	for _, iri := range obj.Points {
		if iri != pointIRI {
			kept = append(kept, iri)
		}
	}
	obj.Points = kept

	flat := d.allPoints[:0]
	for _, iri := range d.allPoints {
		if iri != pointIRI {
			flat = append(flat, iri)
		}
	}
	d.allPoints = flat

	delete(d.points, pointIRI)
	d.renumber(obj)
	return nil
}

// RemoveObject detaches an object and all of its points from the
// diagram. Returns the IRIs of the removed points.
func (d *Diagram) RemoveObject(objectIRI string) ([]string, error) {
	obj, ok := d.objects[objectIRI]
	if !ok {
		return nil, ErrObjectNotFound
	}

	removed := make(map[string]bool, len(obj.Points))
	for _, iri := range obj.Points {
		removed[iri] = true
		delete(d.points, iri)
	}

	flat := d.allPoints[:0]
	for _, iri := range d.allPoints {
		if !removed[iri] {
			flat = append(flat, iri)
		}
	}
	d.allPoints = flat

	objs := d.Objects[:0]
	for _, iri := range d.Objects {
		if iri != objectIRI {
			objs = append(objs, iri)
		}
	}
	d.Objects = objs
	delete(d.objects, objectIRI)

	iris := make([]string, 0, len(removed))
	for iri := range removed {
		iris = append(iris, iri)
	}
	return iris, nil
}

// SequenceUpdates returns the pointIRI → sequenceNumber map for an
// object's current point order, used to persist renumbering alongside
// a structural change.
func (d *Diagram) SequenceUpdates(objectIRI string) map[string]int {
	obj := d.objects[objectIRI]
	if obj == nil {
		return nil
	}
	out := make(map[string]int, len(obj.Points))
	for i, iri := range obj.Points {
		out[iri] = i
	}
	return out
}

// Bounds returns the axis-aligned bounds over all points.
func (d *Diagram) Bounds() geometry.Rect {
	vecs := make([]geometry.Vec, 0, len(d.allPoints))
	for _, iri := range d.allPoints {
		vecs = append(vecs, d.points[iri].Vec())
	}
	return geometry.BoundsOf(vecs)
}

func (d *Diagram) renumber(obj *Object) {
	for i, iri := range obj.Points {
		d.points[iri].SequenceNumber = i
	}
}
