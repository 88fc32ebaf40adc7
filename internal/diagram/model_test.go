package diagram

import (
	"errors"
	"testing"
)

// lineDiagram builds a diagram with a single object "obj" holding
// points p0..p(n-1) on the x axis.
func lineDiagram(t *testing.T, n int) *Diagram {
	t.Helper()
	d := New("diag", "Test", "cgmes3")
	obj := &Object{IRI: "obj", Name: "Line"}
	points := make([]*Point, n)
	for i := range n {
		points[i] = &Point{IRI: pointIRI(i), X: float64(i * 10)}
	}
	if err := d.AddObject(obj, points); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	return d
}

func pointIRI(i int) string {
	return string(rune('a'+i)) + "0"
}

func assertSequence(t *testing.T, d *Diagram, objIRI string, want []string) {
	t.Helper()
	obj := d.Object(objIRI)
	if len(obj.Points) != len(want) {
		t.Fatalf("object has %d points, want %d", len(obj.Points), len(want))
	}
	for i, iri := range obj.Points {
		if iri != want[i] {
			t.Errorf("position %d holds %s, want %s", i, iri, want[i])
		}
		if got := d.Point(iri).SequenceNumber; got != i {
			t.Errorf("point %s has sequenceNumber %d, want %d", iri, got, i)
		}
	}
}

func TestAddObjectAssignsSequence(t *testing.T) {
	d := lineDiagram(t, 3)
	assertSequence(t, d, "obj", []string{"a0", "b0", "c0"})
	if d.PointCount() != 3 {
		t.Errorf("PointCount = %d, want 3", d.PointCount())
	}
}

func TestInsertPoint(t *testing.T) {
	d := lineDiagram(t, 3)

	p, err := d.InsertPoint("obj", "new", 1, 5, 5)
	if err != nil {
		t.Fatalf("InsertPoint: %v", err)
	}
	if p.SequenceNumber != 1 {
		t.Errorf("inserted sequenceNumber = %d, want 1", p.SequenceNumber)
	}
	assertSequence(t, d, "obj", []string{"a0", "new", "b0", "c0"})

	if d.Point("new").ObjectIRI != "obj" {
		t.Errorf("inserted point not owned by obj")
	}
}

func TestInsertPointAtEnds(t *testing.T) {
	d := lineDiagram(t, 2)

	if _, err := d.InsertPoint("obj", "head", 0, -1, 0); err != nil {
		t.Fatalf("insert at 0: %v", err)
	}
	if _, err := d.InsertPoint("obj", "tail", 3, 99, 0); err != nil {
		t.Fatalf("insert at end: %v", err)
	}
	assertSequence(t, d, "obj", []string{"head", "a0", "b0", "tail"})
}

func TestInsertPointErrors(t *testing.T) {
	d := lineDiagram(t, 2)

	if _, err := d.InsertPoint("missing", "new", 0, 0, 0); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("unknown object: got %v, want ErrObjectNotFound", err)
	}
	if _, err := d.InsertPoint("obj", "new", 3, 0, 0); !errors.Is(err, ErrBadIndex) {
		t.Errorf("index past end: got %v, want ErrBadIndex", err)
	}
	if _, err := d.InsertPoint("obj", "new", -1, 0, 0); !errors.Is(err, ErrBadIndex) {
		t.Errorf("negative index: got %v, want ErrBadIndex", err)
	}
	if _, err := d.InsertPoint("obj", "a0", 1, 0, 0); err == nil {
		t.Errorf("duplicate point IRI accepted")
	}
}

func TestDeletePoint(t *testing.T) {
	d := lineDiagram(t, 4)

	if err := d.DeletePoint("b0"); err != nil {
		t.Fatalf("DeletePoint: %v", err)
	}
	assertSequence(t, d, "obj", []string{"a0", "c0", "d0"})
	if d.Point("b0") != nil {
		t.Errorf("deleted point still resolvable")
	}
	if d.PointCount() != 3 {
		t.Errorf("PointCount = %d, want 3", d.PointCount())
	}
}

func TestDeletePointProtectsEndpoints(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		d := lineDiagram(t, n)
		first := d.Object("obj").Points[0]
		last := d.Object("obj").Points[n-1]

		if err := d.DeletePoint(first); !errors.Is(err, ErrProtectedPoint) {
			t.Errorf("n=%d delete first: got %v, want ErrProtectedPoint", n, err)
		}
		if err := d.DeletePoint(last); !errors.Is(err, ErrProtectedPoint) {
			t.Errorf("n=%d delete last: got %v, want ErrProtectedPoint", n, err)
		}
		if d.PointCount() != n {
			t.Errorf("n=%d point count changed to %d", n, d.PointCount())
		}
	}
}

func TestDeletePointUnknown(t *testing.T) {
	d := lineDiagram(t, 2)
	if err := d.DeletePoint("missing"); !errors.Is(err, ErrPointNotFound) {
		t.Errorf("got %v, want ErrPointNotFound", err)
	}
}

func TestRemoveObject(t *testing.T) {
	d := New("diag", "Test", "cgmes3")
	d.AddObject(&Object{IRI: "keep"}, []*Point{{IRI: "k0"}, {IRI: "k1"}})
	d.AddObject(&Object{IRI: "drop"}, []*Point{{IRI: "d0"}, {IRI: "d1"}, {IRI: "d2"}})

	removed, err := d.RemoveObject("drop")
	if err != nil {
		t.Fatalf("RemoveObject: %v", err)
	}
	if len(removed) != 3 {
		t.Errorf("removed %d points, want 3", len(removed))
	}
	if d.Object("drop") != nil || d.Point("d1") != nil {
		t.Errorf("object or point still resolvable after removal")
	}
	if d.PointCount() != 2 {
		t.Errorf("PointCount = %d, want 2", d.PointCount())
	}

	if _, err := d.RemoveObject("missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("got %v, want ErrObjectNotFound", err)
	}
}

func TestSequenceUpdates(t *testing.T) {
	d := lineDiagram(t, 3)
	d.DeletePoint("b0")

	got := d.SequenceUpdates("obj")
	want := map[string]int{"a0": 0, "c0": 1}
	if len(got) != len(want) {
		t.Fatalf("SequenceUpdates = %v, want %v", got, want)
	}
	for iri, seq := range want {
		if got[iri] != seq {
			t.Errorf("SequenceUpdates[%s] = %d, want %d", iri, got[iri], seq)
		}
	}
}

func TestBounds(t *testing.T) {
	d := New("diag", "Test", "cgmes3")
	d.AddObject(&Object{IRI: "o"}, []*Point{
		{IRI: "p0", X: -5, Y: 10},
		{IRI: "p1", X: 15, Y: 2},
	})
	b := d.Bounds()
	if b.X != -5 || b.Y != 2 || b.Width != 20 || b.Height != 8 {
		t.Errorf("Bounds = %+v", b)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	d, glue := NewSampleDiagram()
	snap := Snapshot(d, glue)

	d2, glue2, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if d2.PointCount() != d.PointCount() {
		t.Errorf("point count %d, want %d", d2.PointCount(), d.PointCount())
	}
	if len(d2.Objects) != len(d.Objects) {
		t.Errorf("object count %d, want %d", len(d2.Objects), len(d.Objects))
	}
	if len(glue2.Pairs()) != len(glue.Pairs()) {
		t.Errorf("glue pairs %d, want %d", len(glue2.Pairs()), len(glue.Pairs()))
	}
}

func TestSampleDiagramGluedPointsCoincide(t *testing.T) {
	d, glue := NewSampleDiagram()
	for _, pair := range glue.Pairs() {
		a, b := d.Point(pair.A), d.Point(pair.B)
		if a == nil || b == nil {
			t.Fatalf("glue pair references unknown point: %+v", pair)
		}
		if a.X != b.X || a.Y != b.Y {
			t.Errorf("glued points %s and %s are at (%v,%v) and (%v,%v)", a.IRI, b.IRI, a.X, a.Y, b.X, b.Y)
		}
		if a.ObjectIRI == b.ObjectIRI {
			t.Errorf("glue pair %+v links points of the same object", pair)
		}
	}
}
