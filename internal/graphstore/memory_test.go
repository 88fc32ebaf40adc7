package graphstore

import (
	"errors"
	"testing"

	"github.com/voltmap/voltmap/internal/diagram"
)

func seededMemStore(t *testing.T) *MemStore {
	t.Helper()
	d := diagram.New("urn:d1", "Test Grid", "cgmes3")
	obj := &diagram.Object{IRI: "urn:o1", Name: "Line"}
	points := []*diagram.Point{
		{IRI: "urn:p0", X: 0, Y: 0},
		{IRI: "urn:p1", X: 10, Y: 0},
		{IRI: "urn:p2", X: 20, Y: 0},
	}
	if err := d.AddObject(obj, points); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	m := NewMemStore()
	m.Put(d, diagram.NewGlueGraph())
	return m
}

func TestMemStoreListAndLoad(t *testing.T) {
	m := seededMemStore(t)

	infos, err := m.ListDiagrams(t.Context())
	if err != nil {
		t.Fatalf("ListDiagrams: %v", err)
	}
	if len(infos) != 1 || infos[0].IRI != "urn:d1" || infos[0].Name != "Test Grid" {
		t.Errorf("ListDiagrams = %+v", infos)
	}

	d, _, err := m.LoadLayout(t.Context(), "urn:d1")
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if len(d.Objects) != 1 || len(d.Object("urn:o1").Points) != 3 {
		t.Errorf("loaded %d objects", len(d.Objects))
	}

	if _, _, err := m.LoadLayout(t.Context(), "urn:nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing diagram: got %v, want ErrNotFound", err)
	}
}

func TestMemStoreLoadReturnsCopy(t *testing.T) {
	m := seededMemStore(t)

	d1, _, err := m.LoadLayout(t.Context(), "urn:d1")
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	d1.Point("urn:p0").X = 999

	d2, _, err := m.LoadLayout(t.Context(), "urn:d1")
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if d2.Point("urn:p0").X != 0 {
		t.Errorf("mutating a loaded layout leaked into the store")
	}
}

func TestMemStoreUpdatePositions(t *testing.T) {
	m := seededMemStore(t)

	if err := m.UpdatePositions(t.Context(), []string{"urn:p0", "urn:p2"}, 3, -4); err != nil {
		t.Fatalf("UpdatePositions: %v", err)
	}
	d, _, _ := m.LoadLayout(t.Context(), "urn:d1")
	if p := d.Point("urn:p0"); p.X != 3 || p.Y != -4 {
		t.Errorf("p0 = (%g,%g)", p.X, p.Y)
	}
	if p := d.Point("urn:p1"); p.X != 10 || p.Y != 0 {
		t.Errorf("p1 moved: (%g,%g)", p.X, p.Y)
	}

	if err := m.UpdatePositions(t.Context(), []string{"urn:ghost"}, 1, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown point: got %v, want ErrNotFound", err)
	}
}

func TestMemStoreFailNextConsumedOnce(t *testing.T) {
	m := seededMemStore(t)
	boom := errors.New("endpoint unreachable")
	m.FailNext = boom

	if err := m.GluePoints(t.Context(), "urn:p0", "urn:p2"); !errors.Is(err, boom) {
		t.Fatalf("first mutation: got %v, want injected failure", err)
	}
	if err := m.GluePoints(t.Context(), "urn:p0", "urn:p2"); err != nil {
		t.Fatalf("second mutation still failing: %v", err)
	}

	_, g, _ := m.LoadLayout(t.Context(), "urn:d1")
	if !g.IsGlued("urn:p0", "urn:p2") {
		t.Errorf("glue not persisted after retry")
	}
}

func TestMemStoreInsertAndDeletePoint(t *testing.T) {
	m := seededMemStore(t)

	np := NewPoint{IRI: "urn:pn", ObjectIRI: "urn:o1", X: 5, Y: 1, SequenceNumber: 1}
	if err := m.InsertPoint(t.Context(), np, nil); err != nil {
		t.Fatalf("InsertPoint: %v", err)
	}
	d, _, _ := m.LoadLayout(t.Context(), "urn:d1")
	obj := d.Object("urn:o1")
	if len(obj.Points) != 4 || obj.Points[1] != "urn:pn" {
		t.Fatalf("points after insert = %v", obj.Points)
	}

	if err := m.DeletePoint(t.Context(), "urn:pn", nil); err != nil {
		t.Fatalf("DeletePoint: %v", err)
	}
	d, _, _ = m.LoadLayout(t.Context(), "urn:d1")
	obj = d.Object("urn:o1")
	if len(obj.Points) != 3 {
		t.Errorf("points after delete = %v", obj.Points)
	}
	for i, iri := range obj.Points {
		if d.Point(iri).SequenceNumber != i {
			t.Errorf("point %s has sequence %d at index %d", iri, d.Point(iri).SequenceNumber, i)
		}
	}
}

func TestMemStoreCreateAndDeleteObject(t *testing.T) {
	m := seededMemStore(t)

	obj := NewObject{
		DiagramIRI: "urn:d1",
		Object:     &diagram.Object{IRI: "urn:o2", Name: "Line (copy)"},
		Points: []NewPoint{
			{IRI: "urn:q0", ObjectIRI: "urn:o2", X: 5, Y: 5},
			{IRI: "urn:q1", ObjectIRI: "urn:o2", X: 15, Y: 5, SequenceNumber: 1},
		},
	}
	if err := m.CreateObject(t.Context(), obj); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if err := m.GluePoints(t.Context(), "urn:q0", "urn:p0"); err != nil {
		t.Fatalf("GluePoints: %v", err)
	}

	d, g, _ := m.LoadLayout(t.Context(), "urn:d1")
	if len(d.Objects) != 2 || d.Object("urn:o2") == nil {
		t.Fatalf("object not created")
	}
	if !g.IsGlued("urn:q0", "urn:p0") {
		t.Fatalf("glue to created object not persisted")
	}

	if err := m.DeleteObject(t.Context(), "urn:o2", []string{"urn:q0", "urn:q1"}); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	d, g, _ = m.LoadLayout(t.Context(), "urn:d1")
	if d.Object("urn:o2") != nil {
		t.Errorf("object survived delete")
	}
	if g.IsGlued("urn:q0", "urn:p0") {
		t.Errorf("glue to removed point survived delete")
	}

	if err := m.DeleteObject(t.Context(), "urn:ghost", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown object: got %v, want ErrNotFound", err)
	}
}
