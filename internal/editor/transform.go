package editor

import (
	"errors"

	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/geometry"
	"github.com/voltmap/voltmap/internal/graphstore"
	"github.com/voltmap/voltmap/internal/typeid"
)

// RotateSelection rotates the selected points by turns quarter turns
// (+1 = +90°, -1 = -90°) around their centroid, exactly. The new
// positions are persisted; on failure the snapshot is restored.
func (e *Editor) RotateSelection(turns int) error {
	pts, err := e.selectedForTransform()
	if err != nil {
		return err
	}

	vecs := make([]geometry.Vec, len(pts))
	for i, p := range pts {
		vecs[i] = p.Vec()
	}
	rotated := geometry.RotateQuarter(vecs, geometry.Centroid(vecs), turns)
	e.applyTransformed(pts, vecs, rotated)
	e.Status("rotated %d points", len(pts))
	return nil
}

// MirrorSelection reflects the selected points across the centroid's
// vertical or horizontal axis and persists the result.
func (e *Editor) MirrorSelection(axis geometry.Axis) error {
	pts, err := e.selectedForTransform()
	if err != nil {
		return err
	}

	vecs := make([]geometry.Vec, len(pts))
	for i, p := range pts {
		vecs[i] = p.Vec()
	}
	mirrored := geometry.Mirror(vecs, geometry.Centroid(vecs), axis)
	e.applyTransformed(pts, vecs, mirrored)
	e.Status("mirrored %d points", len(pts))
	return nil
}

func (e *Editor) selectedForTransform() ([]*diagram.Point, error) {
	if e.diag == nil {
		return nil, validationErr("no diagram loaded")
	}
	if e.sync.Loading() {
		return nil, validationErr("previous change still saving")
	}
	if len(e.selOrder) == 0 {
		return nil, validationErr("no points selected")
	}
	pts := make([]*diagram.Point, 0, len(e.selOrder))
	for _, iri := range e.selOrder {
		if p := e.diag.Point(iri); p != nil {
			pts = append(pts, p)
		}
	}
	return pts, nil
}

// applyTransformed mutates the points in place and issues the
// persistence call with a snapshot-restore rollback.
func (e *Editor) applyTransformed(pts []*diagram.Point, before, after []geometry.Vec) {
	snapshot := make(map[string]geometry.Vec, len(pts))
	positions := make([]graphstore.PointPosition, len(pts))
	for i, p := range pts {
		snapshot[p.IRI] = before[i]
		p.X = after[i].X
		p.Y = after[i].Y
		positions[i] = graphstore.PointPosition{IRI: p.IRI, X: p.X, Y: p.Y}
	}
	e.notify(EventDiagram, "")

	e.sync.UpdatePoints(positions, func() {
		e.restore(snapshot)
		e.notify(EventDiagram, "")
	})
}

// InsertPointOnLine creates a new point at pos, splices it into the
// object at index and renumbers the object's points. The insertion and
// the renumbering are persisted together; failure reloads the layout.
func (e *Editor) InsertPointOnLine(objectIRI string, index int, pos geometry.Vec) (string, error) {
	if e.diag == nil {
		return "", validationErr("no diagram loaded")
	}
	if e.sync.Loading() {
		return "", validationErr("previous change still saving")
	}

	iri := typeid.NewPointIRI()
	p, err := e.diag.InsertPoint(objectIRI, iri, index, pos.X, pos.Y)
	if err != nil {
		if errors.Is(err, diagram.ErrObjectNotFound) || errors.Is(err, diagram.ErrBadIndex) {
			return "", validationErr("insert point: %v", err)
		}
		return "", structuralErr(err, "insert point")
	}
	e.notify(EventDiagram, "")

	e.sync.InsertPoint(graphstore.NewPoint{
		IRI:            p.IRI,
		ObjectIRI:      objectIRI,
		X:              p.X,
		Y:              p.Y,
		Z:              p.Z,
		SequenceNumber: p.SequenceNumber,
	}, e.diag.SequenceUpdates(objectIRI))
	e.Status("point inserted")
	return p.IRI, nil
}

// DeleteSelectedPoint deletes the single selected point. First and last
// points of an object are protected; glue relations touching the point
// are removed with it. Failure reloads the layout.
func (e *Editor) DeleteSelectedPoint() error {
	if e.diag == nil {
		return validationErr("no diagram loaded")
	}
	if e.sync.Loading() {
		return validationErr("previous change still saving")
	}
	if len(e.selOrder) != 1 {
		return validationErr("exactly one point must be selected")
	}

	iri := e.selOrder[0]
	obj := e.diag.ParentOf(iri)
	if obj == nil {
		return validationErr("unknown point %s", iri)
	}
	if err := e.diag.DeletePoint(iri); err != nil {
		if errors.Is(err, diagram.ErrProtectedPoint) {
			return structuralErr(err, "delete point")
		}
		return validationErr("delete point: %v", err)
	}
	e.glue.RemovePoint(iri)
	e.clearSelection()
	e.notify(EventDiagram, "")
	e.notify(EventSelection, "")

	e.sync.DeletePoint(iri, e.diag.SequenceUpdates(obj.IRI))
	e.Status("point deleted")
	return nil
}

// GlueSelected glues the two selected points. They must belong to
// different objects. Rolled back by ungluing on sync failure.
func (e *Editor) GlueSelected() error {
	a, b, err := e.gluePairFromSelection()
	if err != nil {
		return err
	}
	if e.diag.Point(a).ObjectIRI == e.diag.Point(b).ObjectIRI {
		return structuralErr(diagram.ErrSameObject, "glue points")
	}
	if err := e.glue.Glue(a, b); err != nil {
		return structuralErr(err, "glue points")
	}
	e.notify(EventDiagram, "")

	e.sync.GluePoints(a, b, func() {
		e.glue.Unglue(a, b)
		e.notify(EventDiagram, "")
	})
	e.Status("points glued")
	return nil
}

// UnglueSelected removes the glue relation between the two selected,
// currently glued points. Rolled back by re-gluing on sync failure.
func (e *Editor) UnglueSelected() error {
	a, b, err := e.gluePairFromSelection()
	if err != nil {
		return err
	}
	if err := e.glue.Unglue(a, b); err != nil {
		return structuralErr(err, "unglue points")
	}
	e.notify(EventDiagram, "")

	e.sync.UngluePoints(a, b, func() {
		e.glue.Glue(a, b)
		e.notify(EventDiagram, "")
	})
	e.Status("points unglued")
	return nil
}

func (e *Editor) gluePairFromSelection() (string, string, error) {
	if e.diag == nil {
		return "", "", validationErr("no diagram loaded")
	}
	if e.sync.Loading() {
		return "", "", validationErr("previous change still saving")
	}
	if len(e.selOrder) != 2 {
		return "", "", validationErr("exactly two points must be selected")
	}
	a, b := e.selOrder[0], e.selOrder[1]
	if e.diag.Point(a) == nil || e.diag.Point(b) == nil {
		return "", "", validationErr("unknown point in selection")
	}
	return a, b, nil
}

// selectedObjectIRIs returns the objects owning at least one selected
// point, in first-selection order.
func (e *Editor) selectedObjectIRIs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, iri := range e.selOrder {
		p := e.diag.Point(iri)
		if p == nil {
			continue
		}
		if _, ok := seen[p.ObjectIRI]; !ok {
			seen[p.ObjectIRI] = struct{}{}
			out = append(out, p.ObjectIRI)
		}
	}
	return out
}

// DuplicateSelection copies the objects owning the selected points,
// shifted by (dx, dy), re-creating glue relations whose endpoints are
// both inside the copied set. Each duplicate is persisted; failure
// reloads the layout.
func (e *Editor) DuplicateSelection(dx, dy float64) ([]string, error) {
	if e.diag == nil {
		return nil, validationErr("no diagram loaded")
	}
	if e.sync.Loading() {
		return nil, validationErr("previous change still saving")
	}
	objIRIs := e.selectedObjectIRIs()
	if len(objIRIs) == 0 {
		return nil, validationErr("no points selected")
	}

	newIRIs, err := diagram.DuplicateObjects(e.diag, e.glue, objIRIs, dx, dy, typeid.NewObjectIRI, typeid.NewPointIRI)
	if err != nil {
		return nil, validationErr("duplicate: %v", err)
	}
	e.notify(EventDiagram, "")

	batch := make([]graphstore.NewObject, 0, len(newIRIs))
	for _, iri := range newIRIs {
		obj := e.diag.Object(iri)
		points := make([]graphstore.NewPoint, 0, len(obj.Points))
		var glued []diagram.GluePair
		for _, pIRI := range obj.Points {
			p := e.diag.Point(pIRI)
			points = append(points, graphstore.NewPoint{
				IRI:            p.IRI,
				ObjectIRI:      obj.IRI,
				X:              p.X,
				Y:              p.Y,
				Z:              p.Z,
				SequenceNumber: p.SequenceNumber,
			})
			for _, other := range e.glue.GluedTo(pIRI) {
				if pIRI < other {
					glued = append(glued, diagram.GluePair{A: pIRI, B: other})
				}
			}
		}
		batch = append(batch, graphstore.NewObject{DiagramIRI: e.diag.IRI, Object: obj, Points: points, Glue: glued})
	}
	e.sync.CreateObjects(batch)
	e.Status("duplicated %d objects", len(newIRIs))
	return newIRIs, nil
}

// GlueBrokenByObjectDelete returns the glue relations that would break
// if the object were deleted: pairs linking one of its points to a
// point outside it. Callers surface these for confirmation before
// DeleteObject proceeds.
func (e *Editor) GlueBrokenByObjectDelete(objectIRI string) ([]diagram.GluePair, error) {
	if e.diag == nil {
		return nil, validationErr("no diagram loaded")
	}
	obj := e.diag.Object(objectIRI)
	if obj == nil {
		return nil, validationErr("unknown object %s", objectIRI)
	}
	removed := make(map[string]bool, len(obj.Points))
	for _, iri := range obj.Points {
		removed[iri] = true
	}
	return e.glue.BrokenBy(removed), nil
}

// DeleteObject removes an object and its points, dropping glue
// relations that touch them. The caller is expected to have confirmed
// any relations reported by GlueBrokenByObjectDelete. Failure reloads
// the layout.
func (e *Editor) DeleteObject(objectIRI string) error {
	if e.diag == nil {
		return validationErr("no diagram loaded")
	}
	if e.sync.Loading() {
		return validationErr("previous change still saving")
	}

	removed, err := e.diag.RemoveObject(objectIRI)
	if err != nil {
		return validationErr("delete object: %v", err)
	}
	for _, iri := range removed {
		e.glue.RemovePoint(iri)
		if e.IsSelected(iri) {
			delete(e.selected, iri)
			order := e.selOrder[:0]
			for _, s := range e.selOrder {
				if s != iri {
					order = append(order, s)
				}
			}
			e.selOrder = order
		}
	}
	e.notify(EventSelection, "")
	e.notify(EventDiagram, "")

	e.sync.DeleteObject(objectIRI, removed)
	e.Status("object deleted")
	return nil
}
