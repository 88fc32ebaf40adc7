package graphstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/voltmap/voltmap/internal/diagram"
)

// MemStore is an in-memory Store used by the wasm playground and by
// tests. Subjects are global IRIs, as in the graph database, so the
// store keeps reverse indexes from object and point IRIs to their
// diagram.
type MemStore struct {
	mu       sync.Mutex
	layouts  map[string]diagram.LayoutSnapshot
	order    []string
	pointDia map[string]string
	objDia   map[string]string

	// FailNext makes the next mutation fail; tests use it to exercise
	// the rollback path.
	FailNext error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		layouts:  make(map[string]diagram.LayoutSnapshot),
		pointDia: make(map[string]string),
		objDia:   make(map[string]string),
	}
}

// Put stores or replaces a layout.
func (m *MemStore) Put(d *diagram.Diagram, glue *diagram.GlueGraph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layouts[d.IRI]; !ok {
		m.order = append(m.order, d.IRI)
	}
	m.setSnapshot(d.IRI, diagram.Snapshot(d, glue))
}

// setSnapshot installs a snapshot and refreshes the reverse indexes.
// Caller holds the lock.
func (m *MemStore) setSnapshot(iri string, snap diagram.LayoutSnapshot) {
	m.layouts[iri] = snap
	for _, obj := range snap.Objects {
		m.objDia[obj.IRI] = iri
		for _, p := range obj.Points {
			m.pointDia[p.IRI] = iri
		}
	}
}

func (m *MemStore) ListDiagrams(ctx context.Context) ([]DiagramInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DiagramInfo, 0, len(m.order))
	for _, iri := range m.order {
		out = append(out, DiagramInfo{IRI: iri, Name: m.layouts[iri].Name})
	}
	return out, nil
}

func (m *MemStore) LoadLayout(ctx context.Context, diagramIRI string) (*diagram.Diagram, *diagram.GlueGraph, error) {
	m.mu.Lock()
	snap, ok := m.layouts[diagramIRI]
	m.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: diagram %s", ErrNotFound, diagramIRI)
	}
	return diagram.FromSnapshot(snap)
}

// mutate materializes the diagram owning the subject IRI (looked up in
// idx), applies fn and stores the result back.
func (m *MemStore) mutate(idx map[string]string, subject string, fn func(d *diagram.Diagram, g *diagram.GlueGraph) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}
	diaIRI, ok := idx[subject]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, subject)
	}
	d, g, err := diagram.FromSnapshot(m.layouts[diaIRI])
	if err != nil {
		return err
	}
	if err := fn(d, g); err != nil {
		return err
	}
	m.setSnapshot(diaIRI, diagram.Snapshot(d, g))
	return nil
}

func (m *MemStore) InsertPoint(ctx context.Context, p NewPoint, sequenceUpdates map[string]int) error {
	return m.mutate(m.objDia, p.ObjectIRI, func(d *diagram.Diagram, g *diagram.GlueGraph) error {
		_, err := d.InsertPoint(p.ObjectIRI, p.IRI, p.SequenceNumber, p.X, p.Y)
		return err
	})
}

func (m *MemStore) DeletePoint(ctx context.Context, pointIRI string, sequenceUpdates map[string]int) error {
	return m.mutate(m.pointDia, pointIRI, func(d *diagram.Diagram, g *diagram.GlueGraph) error {
		if err := d.DeletePoint(pointIRI); err != nil {
			return err
		}
		g.RemovePoint(pointIRI)
		return nil
	})
}

func (m *MemStore) UpdatePositions(ctx context.Context, pointIRIs []string, dx, dy float64) error {
	if len(pointIRIs) == 0 {
		return nil
	}
	return m.mutate(m.pointDia, pointIRIs[0], func(d *diagram.Diagram, g *diagram.GlueGraph) error {
		for _, iri := range pointIRIs {
			p := d.Point(iri)
			if p == nil {
				return fmt.Errorf("%w: point %s", ErrNotFound, iri)
			}
			p.X += dx
			p.Y += dy
		}
		return nil
	})
}

func (m *MemStore) UpdatePoints(ctx context.Context, positions []PointPosition) error {
	if len(positions) == 0 {
		return nil
	}
	return m.mutate(m.pointDia, positions[0].IRI, func(d *diagram.Diagram, g *diagram.GlueGraph) error {
		for _, pos := range positions {
			p := d.Point(pos.IRI)
			if p == nil {
				return fmt.Errorf("%w: point %s", ErrNotFound, pos.IRI)
			}
			p.X = pos.X
			p.Y = pos.Y
		}
		return nil
	})
}

func (m *MemStore) GluePoints(ctx context.Context, a, b string) error {
	return m.mutate(m.pointDia, a, func(d *diagram.Diagram, g *diagram.GlueGraph) error {
		return g.Glue(a, b)
	})
}

func (m *MemStore) UngluePoints(ctx context.Context, a, b string) error {
	return m.mutate(m.pointDia, a, func(d *diagram.Diagram, g *diagram.GlueGraph) error {
		return g.Unglue(a, b)
	})
}

func (m *MemStore) CreateObject(ctx context.Context, obj NewObject) error {
	if len(obj.Points) == 0 {
		return fmt.Errorf("object %s has no points", obj.Object.IRI)
	}
	m.mu.Lock()
	m.objDia[obj.Object.IRI] = obj.DiagramIRI
	m.mu.Unlock()

	return m.mutate(m.objDia, obj.Object.IRI, func(d *diagram.Diagram, g *diagram.GlueGraph) error {
		points := make([]*diagram.Point, len(obj.Points))
		for i, np := range obj.Points {
			points[i] = &diagram.Point{IRI: np.IRI, X: np.X, Y: np.Y, Z: np.Z}
		}
		clone := *obj.Object
		clone.Points = nil
		if err := d.AddObject(&clone, points); err != nil {
			return err
		}
		for _, pair := range obj.Glue {
			g.Glue(pair.A, pair.B)
		}
		return nil
	})
}

func (m *MemStore) DeleteObject(ctx context.Context, objectIRI string, pointIRIs []string) error {
	return m.mutate(m.objDia, objectIRI, func(d *diagram.Diagram, g *diagram.GlueGraph) error {
		removed, err := d.RemoveObject(objectIRI)
		if err != nil {
			return err
		}
		for _, iri := range removed {
			g.RemovePoint(iri)
		}
		return nil
	})
}
