package graphstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voltmap/voltmap/internal/diagram"
)

// sparqlServer fakes a SPARQL endpoint: queries are answered from the
// queue of canned results, updates are recorded.
type sparqlServer struct {
	t       *testing.T
	queries []string
	updates []string
	answers []sparqlResults
}

func bindings(rows ...map[string]string) sparqlResults {
	var out sparqlResults
	for _, row := range rows {
		b := make(map[string]sparqlValue, len(row))
		for k, v := range row {
			b[k] = sparqlValue{Type: "literal", Value: v}
		}
		out.Results.Bindings = append(out.Results.Bindings, b)
	}
	return out
}

func (s *sparqlServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.t.Errorf("parse form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if u := r.PostFormValue("update"); u != "" {
			s.updates = append(s.updates, u)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		q := r.PostFormValue("query")
		if q == "" {
			s.t.Errorf("request carries neither query nor update")
			http.Error(w, "empty", http.StatusBadRequest)
			return
		}
		if got := r.Header.Get("Accept"); got != "application/sparql-results+json" {
			s.t.Errorf("Accept = %q", got)
		}
		s.queries = append(s.queries, q)

		var answer sparqlResults
		if len(s.answers) > 0 {
			answer = s.answers[0]
			s.answers = s.answers[1:]
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		json.NewEncoder(w).Encode(answer)
	}
}

func newSparqlFixture(t *testing.T, answers ...sparqlResults) (*SparqlStore, *sparqlServer) {
	t.Helper()
	fake := &sparqlServer{t: t, answers: answers}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	store, err := NewSparqlStore(srv.URL, ProfileCGMES3)
	if err != nil {
		t.Fatalf("NewSparqlStore: %v", err)
	}
	return store, fake
}

func TestProfileNamespace(t *testing.T) {
	tests := []struct {
		profile Profile
		want    string
		wantErr bool
	}{
		{ProfileCGMES2, "http://iec.ch/TC57/2013/CIM-schema-cim16#", false},
		{ProfileCGMES3, "http://iec.ch/TC57/CIM100#", false},
		{Profile("cgmes4"), "", true},
	}
	for _, tt := range tests {
		ns, err := tt.profile.Namespace()
		if (err != nil) != tt.wantErr {
			t.Errorf("Namespace(%s) error = %v", tt.profile, err)
		}
		if ns != tt.want {
			t.Errorf("Namespace(%s) = %q, want %q", tt.profile, ns, tt.want)
		}
	}
}

func TestSparqlListDiagrams(t *testing.T) {
	store, fake := newSparqlFixture(t, bindings(
		map[string]string{"d": "urn:d1", "name": "Substation North"},
		map[string]string{"d": "urn:d2", "name": "Substation South"},
	))

	got, err := store.ListDiagrams(context.Background())
	if err != nil {
		t.Fatalf("ListDiagrams: %v", err)
	}
	if len(got) != 2 || got[0].IRI != "urn:d1" || got[1].Name != "Substation South" {
		t.Errorf("ListDiagrams = %+v", got)
	}

	if len(fake.queries) != 1 {
		t.Fatalf("issued %d queries, want 1", len(fake.queries))
	}
	q := fake.queries[0]
	if !strings.Contains(q, "PREFIX cim: <http://iec.ch/TC57/CIM100#>") {
		t.Errorf("query missing profile prefix:\n%s", q)
	}
	if !strings.Contains(q, "?d a cim:Diagram") {
		t.Errorf("query missing diagram pattern:\n%s", q)
	}
}

func TestSparqlLoadLayout(t *testing.T) {
	name := bindings(map[string]string{"name": "Substation North"})
	// Bindings arrive out of sequence order on purpose.
	points := bindings(
		map[string]string{"o": "urn:o1", "oname": "Busbar", "p": "urn:p1", "seq": "1", "x": "100", "y": "50"},
		map[string]string{"o": "urn:o1", "oname": "Busbar", "p": "urn:p0", "seq": "0", "x": "0", "y": "50"},
		map[string]string{"o": "urn:o2", "oname": "Feeder", "polygon": "true", "p": "urn:p2", "seq": "0", "x": "10", "y": "60", "z": "1"},
		map[string]string{"o": "urn:o2", "oname": "Feeder", "polygon": "true", "p": "urn:p3", "seq": "1", "x": "10", "y": "80"},
	)
	glue := bindings(map[string]string{"pa": "urn:p1", "pb": "urn:p2"})

	store, _ := newSparqlFixture(t, name, points, glue)

	d, g, err := store.LoadLayout(context.Background(), "urn:d1")
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}

	if d.Name != "Substation North" || d.Profile != "cgmes3" {
		t.Errorf("diagram = %s/%s", d.Name, d.Profile)
	}
	if len(d.Objects) != 2 {
		t.Fatalf("loaded %d objects, want 2", len(d.Objects))
	}

	busbar := d.Object("urn:o1")
	if busbar.Points[0] != "urn:p0" || busbar.Points[1] != "urn:p1" {
		t.Errorf("points not sorted by sequence: %v", busbar.Points)
	}
	if p := d.Point("urn:p1"); p.X != 100 || p.Y != 50 || p.SequenceNumber != 1 {
		t.Errorf("point p1 = %+v", p)
	}

	feeder := d.Object("urn:o2")
	if !feeder.Polygon {
		t.Errorf("polygon flag not parsed")
	}
	if p := d.Point("urn:p2"); p.Z != 1 {
		t.Errorf("z position not parsed: %+v", p)
	}

	if !g.IsGlued("urn:p1", "urn:p2") {
		t.Errorf("glue relation not loaded")
	}
}

func TestSparqlLoadLayoutNotFound(t *testing.T) {
	store, _ := newSparqlFixture(t, bindings())
	_, _, err := store.LoadLayout(context.Background(), "urn:missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSparqlUpdatePositions(t *testing.T) {
	store, fake := newSparqlFixture(t)

	err := store.UpdatePositions(context.Background(), []string{"urn:p1", "urn:p2"}, 5, -2.5)
	if err != nil {
		t.Fatalf("UpdatePositions: %v", err)
	}
	if len(fake.updates) != 1 {
		t.Fatalf("issued %d updates, want 1", len(fake.updates))
	}
	u := fake.updates[0]
	for _, want := range []string{
		"<urn:p1>", "<urn:p2>",
		"BIND (?x + 5 AS ?nx)",
		"BIND (?y + -2.5 AS ?ny)",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("update missing %q:\n%s", want, u)
		}
	}
}

func TestSparqlInsertPoint(t *testing.T) {
	store, fake := newSparqlFixture(t)

	p := NewPoint{IRI: "urn:new", ObjectIRI: "urn:o1", X: 5, Y: 6, SequenceNumber: 1}
	err := store.InsertPoint(context.Background(), p, map[string]int{"urn:new": 1, "urn:p0": 0, "urn:p1": 2})
	if err != nil {
		t.Fatalf("InsertPoint: %v", err)
	}

	u := fake.updates[0]
	if !strings.Contains(u, "INSERT DATA") || !strings.Contains(u, "<urn:new> a cim:DiagramObjectPoint") {
		t.Errorf("update missing insert clause:\n%s", u)
	}
	if !strings.Contains(u, "cim:DiagramObjectPoint.sequenceNumber 2") {
		t.Errorf("update missing sibling renumbering:\n%s", u)
	}
	// The inserted point's number is written once, by the INSERT DATA.
	if strings.Count(u, "<urn:new> cim:DiagramObjectPoint.sequenceNumber") != 0 {
		t.Errorf("inserted point renumbered twice:\n%s", u)
	}
}

func TestSparqlGluePoints(t *testing.T) {
	store, fake := newSparqlFixture(t)

	if err := store.GluePoints(context.Background(), "urn:pa", "urn:pb"); err != nil {
		t.Fatalf("GluePoints: %v", err)
	}
	u := fake.updates[0]
	if !strings.Contains(u, "a cim:DiagramObjectGluePoint") {
		t.Errorf("no glue node minted:\n%s", u)
	}
	if strings.Count(u, "cim:DiagramObjectPoint.DiagramObjectGluePoint") != 2 {
		t.Errorf("both points must reference the glue node:\n%s", u)
	}
}

func TestSparqlCreateObject(t *testing.T) {
	store, fake := newSparqlFixture(t)

	obj := NewObject{
		DiagramIRI: "urn:d1",
		Object:     &diagram.Object{IRI: "urn:copy", Name: "Line (copy)"},
		Points: []NewPoint{
			{IRI: "urn:cp0", ObjectIRI: "urn:copy", X: 1, Y: 2},
			{IRI: "urn:cp1", ObjectIRI: "urn:copy", X: 3, Y: 4, SequenceNumber: 1},
		},
		Glue: []diagram.GluePair{{A: "urn:cp0", B: "urn:cp1"}},
	}
	if err := store.CreateObject(context.Background(), obj); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}

	if len(fake.updates) != 2 {
		t.Fatalf("issued %d updates, want object insert plus glue", len(fake.updates))
	}
	u := fake.updates[0]
	for _, want := range []string{
		"<urn:copy> a cim:DiagramObject",
		"cim:DiagramObject.Diagram <urn:d1>",
		`cim:IdentifiedObject.name "Line (copy)"`,
		"<urn:cp0> a cim:DiagramObjectPoint",
		"<urn:cp1> a cim:DiagramObjectPoint",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("object insert missing %q:\n%s", want, u)
		}
	}
}

func TestSparqlEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "malformed query", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	store, err := NewSparqlStore(srv.URL, ProfileCGMES2)
	if err != nil {
		t.Fatalf("NewSparqlStore: %v", err)
	}
	if _, err := store.ListDiagrams(context.Background()); err == nil {
		t.Errorf("query against failing endpoint succeeded")
	}
	if err := store.UngluePoints(context.Background(), "a", "b"); err == nil {
		t.Errorf("update against failing endpoint succeeded")
	}
}
