package editor

import (
	"errors"
	"testing"

	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/geometry"
)

func TestRotateSelection(t *testing.T) {
	e, store := testEditor(t)
	// Three collinear points with centroid (10, 0).
	mustSelect(t, e, "a0", "a1", "a2")

	if err := e.RotateSelection(1); err != nil {
		t.Fatalf("RotateSelection: %v", err)
	}

	// (0,0) -> (10,-10), (10,0) stays, (20,0) -> (10,10).
	pointAt(t, e, "a0", 10, -10)
	pointAt(t, e, "a1", 10, 0)
	pointAt(t, e, "a2", 10, 10)

	if c := waitCompletion(t, e); c.Err != nil {
		t.Fatalf("completion error: %v", c.Err)
	}
	storedPointAt(t, store, "a0", 10, -10)
}

func TestRotateFourTimesIsIdentity(t *testing.T) {
	e, _ := testEditor(t)
	mustSelect(t, e, "a0", "a1", "a2")

	for range 4 {
		if err := e.RotateSelection(1); err != nil {
			t.Fatalf("RotateSelection: %v", err)
		}
		if c := waitCompletion(t, e); c.Err != nil {
			t.Fatalf("completion error: %v", c.Err)
		}
	}

	pointAt(t, e, "a0", 0, 0)
	pointAt(t, e, "a1", 10, 0)
	pointAt(t, e, "a2", 20, 0)
}

func TestMirrorSelection(t *testing.T) {
	e, _ := testEditor(t)
	mustSelect(t, e, "a0", "a2") // centroid (10, 0)

	if err := e.MirrorSelection(geometry.AxisVertical); err != nil {
		t.Fatalf("MirrorSelection: %v", err)
	}
	pointAt(t, e, "a0", 20, 0)
	pointAt(t, e, "a2", 0, 0)

	if c := waitCompletion(t, e); c.Err != nil {
		t.Fatalf("completion error: %v", c.Err)
	}
}

func TestTransformRequiresSelection(t *testing.T) {
	e, _ := testEditor(t)

	err := e.RotateSelection(1)
	if kind, ok := KindOf(err); !ok || kind != KindValidation {
		t.Errorf("rotate with no selection: got %v, want validation error", err)
	}
	err = e.MirrorSelection(geometry.AxisHorizontal)
	if kind, ok := KindOf(err); !ok || kind != KindValidation {
		t.Errorf("mirror with no selection: got %v, want validation error", err)
	}
}

func TestInsertPointOnLine(t *testing.T) {
	e, store := testEditor(t)

	iri, err := e.InsertPointOnLine("line1", 1, geometry.Vec{X: 5, Y: 1})
	if err != nil {
		t.Fatalf("InsertPointOnLine: %v", err)
	}

	obj := e.Diagram().Object("line1")
	want := []string{"a0", iri, "a1", "a2"}
	for i, got := range obj.Points {
		if got != want[i] {
			t.Errorf("position %d holds %s, want %s", i, got, want[i])
		}
		if seq := e.Diagram().Point(got).SequenceNumber; seq != i {
			t.Errorf("point %s has sequenceNumber %d, want %d", got, seq, i)
		}
	}

	if c := waitCompletion(t, e); c.Err != nil {
		t.Fatalf("completion error: %v", c.Err)
	}
	storedPointAt(t, store, iri, 5, 1)
}

func TestInsertPointBadIndex(t *testing.T) {
	e, _ := testEditor(t)

	_, err := e.InsertPointOnLine("line1", 9, geometry.Vec{})
	if kind, ok := KindOf(err); !ok || kind != KindValidation {
		t.Errorf("bad index: got %v, want validation error", err)
	}
	_, err = e.InsertPointOnLine("missing", 0, geometry.Vec{})
	if kind, ok := KindOf(err); !ok || kind != KindValidation {
		t.Errorf("unknown object: got %v, want validation error", err)
	}
}

func TestDeleteSelectedPoint(t *testing.T) {
	e, store := testEditor(t)
	mustSelect(t, e, "a1")

	if err := e.DeleteSelectedPoint(); err != nil {
		t.Fatalf("DeleteSelectedPoint: %v", err)
	}
	if e.Diagram().Point("a1") != nil {
		t.Errorf("deleted point still in model")
	}
	if len(e.SelectedPoints()) != 0 {
		t.Errorf("selection not cleared after delete")
	}
	// The a1-b1 glue relation dies with the point.
	if got := e.Glue().GluedTo("b1"); len(got) != 0 {
		t.Errorf("b1 still glued to %v", got)
	}

	if c := waitCompletion(t, e); c.Err != nil {
		t.Fatalf("completion error: %v", c.Err)
	}
	d, _, _ := store.LoadLayout(t.Context(), "diag")
	if d.Point("a1") != nil {
		t.Errorf("deleted point still in store")
	}
}

func TestDeleteSelectedPointProtected(t *testing.T) {
	e, _ := testEditor(t)
	mustSelect(t, e, "a0")

	err := e.DeleteSelectedPoint()
	if kind, ok := KindOf(err); !ok || kind != KindStructural {
		t.Fatalf("delete endpoint: got %v, want structural error", err)
	}
	if !errors.Is(err, diagram.ErrProtectedPoint) {
		t.Errorf("error does not wrap ErrProtectedPoint: %v", err)
	}
	if e.Diagram().Point("a0") == nil {
		t.Errorf("protected point was deleted")
	}
}

func TestDeleteSelectedPointNeedsExactlyOne(t *testing.T) {
	e, _ := testEditor(t)

	if err := e.DeleteSelectedPoint(); err == nil {
		t.Errorf("delete with empty selection succeeded")
	}
	mustSelect(t, e, "a1", "b1")
	if err := e.DeleteSelectedPoint(); err == nil {
		t.Errorf("delete with two selected points succeeded")
	}
}

func TestGlueSelected(t *testing.T) {
	e, store := testEditor(t)
	mustSelect(t, e, "a2", "b2")

	if err := e.GlueSelected(); err != nil {
		t.Fatalf("GlueSelected: %v", err)
	}
	if !e.Glue().IsGlued("a2", "b2") {
		t.Errorf("points not glued locally")
	}

	if c := waitCompletion(t, e); c.Err != nil {
		t.Fatalf("completion error: %v", c.Err)
	}
	_, g, _ := store.LoadLayout(t.Context(), "diag")
	if !g.IsGlued("a2", "b2") {
		t.Errorf("glue not persisted")
	}
}

func TestGlueSelectedSameObject(t *testing.T) {
	e, _ := testEditor(t)
	mustSelect(t, e, "a0", "a2")

	err := e.GlueSelected()
	if kind, ok := KindOf(err); !ok || kind != KindStructural {
		t.Fatalf("same-object glue: got %v, want structural error", err)
	}
	if !errors.Is(err, diagram.ErrSameObject) {
		t.Errorf("error does not wrap ErrSameObject: %v", err)
	}
}

func TestGlueSelectedNeedsExactlyTwo(t *testing.T) {
	e, _ := testEditor(t)
	mustSelect(t, e, "a0")
	if err := e.GlueSelected(); err == nil {
		t.Errorf("glue with one selected point succeeded")
	}
}

func TestUnglueSelected(t *testing.T) {
	e, _ := testEditor(t)
	mustSelect(t, e, "a1", "b1")

	if err := e.UnglueSelected(); err != nil {
		t.Fatalf("UnglueSelected: %v", err)
	}
	if e.Glue().IsGlued("a1", "b1") {
		t.Errorf("points still glued locally")
	}
	if c := waitCompletion(t, e); c.Err != nil {
		t.Fatalf("completion error: %v", c.Err)
	}

	mustSelect(t, e, "a1", "b1") // toggles both off
	mustSelect(t, e, "a0", "b0")
	if err := e.UnglueSelected(); err == nil {
		t.Errorf("ungluing unrelated points succeeded")
	}
}

func TestDuplicateSelection(t *testing.T) {
	e, store := testEditor(t)
	mustSelect(t, e, "a1", "b1")

	newIRIs, err := e.DuplicateSelection(5, 5)
	if err != nil {
		t.Fatalf("DuplicateSelection: %v", err)
	}
	if len(newIRIs) != 2 {
		t.Fatalf("duplicated %d objects, want 2", len(newIRIs))
	}

	copy1 := e.Diagram().Object(newIRIs[0])
	if copy1.Name != "Line 1 (copy)" {
		t.Errorf("copy name = %q", copy1.Name)
	}
	pointAt(t, e, copy1.Points[1], 15, 5)

	// a1-b1 is re-created between the copies.
	copy2 := e.Diagram().Object(newIRIs[1])
	if !e.Glue().IsGlued(copy1.Points[1], copy2.Points[1]) {
		t.Errorf("glue not re-created inside the duplicated set")
	}

	if c := waitCompletion(t, e); c.Err != nil {
		t.Fatalf("completion error: %v", c.Err)
	}
	d, g, _ := store.LoadLayout(t.Context(), "diag")
	if d.Object(newIRIs[0]) == nil || d.Object(newIRIs[1]) == nil {
		t.Errorf("duplicates not persisted")
	}
	if !g.IsGlued(copy1.Points[1], copy2.Points[1]) {
		t.Errorf("duplicated glue not persisted")
	}
}

func TestDuplicateSingleObjectDropsCrossGlue(t *testing.T) {
	e, _ := testEditor(t)
	mustSelect(t, e, "a0")

	newIRIs, err := e.DuplicateSelection(1, 1)
	if err != nil {
		t.Fatalf("DuplicateSelection: %v", err)
	}
	for _, pIRI := range e.Diagram().Object(newIRIs[0]).Points {
		if got := e.Glue().GluedTo(pIRI); len(got) != 0 {
			t.Errorf("duplicated point %s glued to %v", pIRI, got)
		}
	}
	waitCompletion(t, e)
}

func TestGlueBrokenByObjectDelete(t *testing.T) {
	e, _ := testEditor(t)

	broken, err := e.GlueBrokenByObjectDelete("line1")
	if err != nil {
		t.Fatalf("GlueBrokenByObjectDelete: %v", err)
	}
	if len(broken) != 1 {
		t.Fatalf("broken = %v, want the a1-b1 pair", broken)
	}
	got := broken[0]
	if !(got.A == "a1" && got.B == "b1") && !(got.A == "b1" && got.B == "a1") {
		t.Errorf("broken pair = %+v, want a1-b1", got)
	}

	if _, err := e.GlueBrokenByObjectDelete("missing"); err == nil {
		t.Errorf("unknown object succeeded")
	}
}

func TestDeleteObject(t *testing.T) {
	e, store := testEditor(t)
	mustSelect(t, e, "a0", "b0")

	if err := e.DeleteObject("line1"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if e.Diagram().Object("line1") != nil || e.Diagram().Point("a1") != nil {
		t.Errorf("object or points survived deletion")
	}
	if got := e.SelectedPoints(); len(got) != 1 || got[0] != "b0" {
		t.Errorf("selection after delete = %v, want [b0]", got)
	}
	if got := e.Glue().GluedTo("b1"); len(got) != 0 {
		t.Errorf("b1 still glued to %v", got)
	}

	if c := waitCompletion(t, e); c.Err != nil {
		t.Fatalf("completion error: %v", c.Err)
	}
	d, _, _ := store.LoadLayout(t.Context(), "diag")
	if d.Object("line1") != nil {
		t.Errorf("object still in store")
	}
}
