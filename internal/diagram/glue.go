package diagram

import "errors"

var (
	ErrAlreadyGlued = errors.New("points are already glued")
	ErrNotGlued     = errors.New("points are not glued")
	// ErrSameObject guards against gluing two points of one object;
	// glue only links points of different diagram objects.
	ErrSameObject = errors.New("cannot glue points of the same object")
)

// GluePair is one symmetric glue relation between two points.
type GluePair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// GlueGraph is the symmetric adjacency between points of different
// objects. It carries no ownership: it is a lookup structure from a
// point IRI to the set of IRIs glued to it. Both sides of a relation
// are always mutated together.
type GlueGraph struct {
	adj map[string]map[string]struct{}
}

// NewGlueGraph creates an empty glue graph.
func NewGlueGraph() *GlueGraph {
	return &GlueGraph{adj: make(map[string]map[string]struct{})}
}

// Glue adds the symmetric relation a↔b.
func (g *GlueGraph) Glue(a, b string) error {
	if g.IsGlued(a, b) {
		return ErrAlreadyGlued
	}
	g.link(a, b)
	g.link(b, a)
	return nil
}

// Unglue removes the symmetric relation a↔b.
func (g *GlueGraph) Unglue(a, b string) error {
	if !g.IsGlued(a, b) {
		return ErrNotGlued
	}
	g.unlink(a, b)
	g.unlink(b, a)
	return nil
}

// IsGlued reports whether a and b are directly glued.
func (g *GlueGraph) IsGlued(a, b string) bool {
	_, ok := g.adj[a][b]
	return ok
}

// GluedTo returns the IRIs directly glued to the given point.
func (g *GlueGraph) GluedTo(iri string) []string {
	set := g.adj[iri]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for other := range set {
		out = append(out, other)
	}
	return out
}

// RemovePoint drops every relation touching the given point.
func (g *GlueGraph) RemovePoint(iri string) {
	for other := range g.adj[iri] {
		g.unlink(other, iri)
	}
	delete(g.adj, iri)
}

// Pairs returns every glue relation exactly once.
func (g *GlueGraph) Pairs() []GluePair {
	var out []GluePair
	for a, set := range g.adj {
		for b := range set {
			if a < b {
				out = append(out, GluePair{A: a, B: b})
			}
		}
	}
	return out
}

// BrokenBy returns the relations that would break if the given points
// were removed: pairs with exactly one endpoint inside the set. Callers
// surface these before a destructive delete proceeds.
func (g *GlueGraph) BrokenBy(removed map[string]bool) []GluePair {
	var out []GluePair
	for a, set := range g.adj {
		if !removed[a] {
			continue
		}
		for b := range set {
			if !removed[b] {
				out = append(out, GluePair{A: a, B: b})
			}
		}
	}
	return out
}

// CloneWithin re-creates relations between duplicated points. mapping
// is original point IRI → duplicate IRI; a relation is cloned only when
// both endpoints were duplicated, so duplicates never end up glued to
// points outside the copied set.
func (g *GlueGraph) CloneWithin(mapping map[string]string) {
	for a, set := range g.adj {
		na, ok := mapping[a]
		if !ok {
			continue
		}
		for b := range set {
			nb, ok := mapping[b]
			if !ok || a >= b {
				continue
			}
			g.link(na, nb)
			g.link(nb, na)
		}
	}
}

func (g *GlueGraph) link(from, to string) {
	set := g.adj[from]
	if set == nil {
		set = make(map[string]struct{})
		g.adj[from] = set
	}
	set[to] = struct{}{}
}

func (g *GlueGraph) unlink(from, to string) {
	set := g.adj[from]
	delete(set, to)
	if len(set) == 0 {
		delete(g.adj, from)
	}
}
