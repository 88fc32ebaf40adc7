package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/typeid"
)

// SparqlStore talks to a SPARQL 1.1 endpoint holding CIM DiagramLayout
// data. Queries and updates are namespace-scoped by the configured
// profile.
type SparqlStore struct {
	endpoint string
	profile  Profile
	ns       string
	client   *http.Client
}

// NewSparqlStore creates a store against the given endpoint URL.
func NewSparqlStore(endpoint string, profile Profile) (*SparqlStore, error) {
	ns, err := profile.Namespace()
	if err != nil {
		return nil, err
	}
	return &SparqlStore{
		endpoint: endpoint,
		profile:  profile,
		ns:       ns,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Profile returns the schema profile the store is scoped to.
func (s *SparqlStore) Profile() Profile { return s.profile }

func (s *SparqlStore) prefix() string {
	return fmt.Sprintf("PREFIX cim: <%s>\n", s.ns)
}

// --- wire types for application/sparql-results+json ---

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sparqlResults struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

func (s *SparqlStore) query(ctx context.Context, q string) (*sparqlResults, error) {
	form := url.Values{"query": {s.prefix() + q}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sparql query: endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out sparqlResults
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("sparql query: decode results: %w", err)
	}
	return &out, nil
}

func (s *SparqlStore) update(ctx context.Context, u string) error {
	form := url.Values{"update": {s.prefix() + u}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sparql update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sparql update: endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

func (s *SparqlStore) ListDiagrams(ctx context.Context) ([]DiagramInfo, error) {
	res, err := s.query(ctx, `
SELECT ?d ?name WHERE {
  ?d a cim:Diagram .
  ?d cim:IdentifiedObject.name ?name .
} ORDER BY ?name`)
	if err != nil {
		return nil, err
	}

	out := make([]DiagramInfo, 0, len(res.Results.Bindings))
	for _, b := range res.Results.Bindings {
		out = append(out, DiagramInfo{IRI: b["d"].Value, Name: b["name"].Value})
	}
	return out, nil
}

func (s *SparqlStore) LoadLayout(ctx context.Context, diagramIRI string) (*diagram.Diagram, *diagram.GlueGraph, error) {
	name, err := s.diagramName(ctx, diagramIRI)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.query(ctx, fmt.Sprintf(`
SELECT ?o ?oname ?polygon ?rotation ?p ?seq ?x ?y ?z WHERE {
  ?o cim:DiagramObject.Diagram <%s> .
  OPTIONAL { ?o cim:IdentifiedObject.name ?oname }
  OPTIONAL { ?o cim:DiagramObject.isPolygon ?polygon }
  OPTIONAL { ?o cim:DiagramObject.rotation ?rotation }
  ?p cim:DiagramObjectPoint.DiagramObject ?o .
  ?p cim:DiagramObjectPoint.sequenceNumber ?seq .
  ?p cim:DiagramObjectPoint.xPosition ?x .
  ?p cim:DiagramObjectPoint.yPosition ?y .
  OPTIONAL { ?p cim:DiagramObjectPoint.zPosition ?z }
} ORDER BY ?o ?seq`, diagramIRI))
	if err != nil {
		return nil, nil, err
	}

	d := diagram.New(diagramIRI, name, string(s.profile))

	type objRow struct {
		obj    *diagram.Object
		points []*diagram.Point
	}
	byObj := make(map[string]*objRow)
	var objOrder []string

	for _, b := range res.Results.Bindings {
		oIRI := b["o"].Value
		row, ok := byObj[oIRI]
		if !ok {
			row = &objRow{obj: &diagram.Object{
				IRI:     oIRI,
				Name:    b["oname"].Value,
				Polygon: b["polygon"].Value == "true",
			}}
			row.obj.Rotation, _ = strconv.ParseFloat(b["rotation"].Value, 64)
			byObj[oIRI] = row
			objOrder = append(objOrder, oIRI)
		}
		p := &diagram.Point{IRI: b["p"].Value}
		p.X, _ = strconv.ParseFloat(b["x"].Value, 64)
		p.Y, _ = strconv.ParseFloat(b["y"].Value, 64)
		p.Z, _ = strconv.ParseFloat(b["z"].Value, 64)
		p.SequenceNumber, _ = strconv.Atoi(b["seq"].Value)
		row.points = append(row.points, p)
	}

	for _, oIRI := range objOrder {
		row := byObj[oIRI]
		// The endpoint orders by sequence number, but defend against
		// stores that return unsorted bindings.
		sort.SliceStable(row.points, func(i, j int) bool {
			return row.points[i].SequenceNumber < row.points[j].SequenceNumber
		})
		if err := d.AddObject(row.obj, row.points); err != nil {
			return nil, nil, fmt.Errorf("load layout: %w", err)
		}
	}

	glue, err := s.loadGlue(ctx, diagramIRI)
	if err != nil {
		return nil, nil, err
	}
	return d, glue, nil
}

func (s *SparqlStore) diagramName(ctx context.Context, diagramIRI string) (string, error) {
	res, err := s.query(ctx, fmt.Sprintf(`
SELECT ?name WHERE { <%s> cim:IdentifiedObject.name ?name } LIMIT 1`, diagramIRI))
	if err != nil {
		return "", err
	}
	if len(res.Results.Bindings) == 0 {
		return "", fmt.Errorf("%w: diagram %s", ErrNotFound, diagramIRI)
	}
	return res.Results.Bindings[0]["name"].Value, nil
}

// loadGlue finds point pairs sharing a glue node. CIM models glue as a
// DiagramObjectGluePoint referenced by each glued point.
func (s *SparqlStore) loadGlue(ctx context.Context, diagramIRI string) (*diagram.GlueGraph, error) {
	res, err := s.query(ctx, fmt.Sprintf(`
SELECT ?pa ?pb WHERE {
  ?pa cim:DiagramObjectPoint.DiagramObjectGluePoint ?g .
  ?pb cim:DiagramObjectPoint.DiagramObjectGluePoint ?g .
  ?pa cim:DiagramObjectPoint.DiagramObject ?oa .
  ?pb cim:DiagramObjectPoint.DiagramObject ?ob .
  ?oa cim:DiagramObject.Diagram <%s> .
  ?ob cim:DiagramObject.Diagram <%s> .
  FILTER (STR(?pa) < STR(?pb))
}`, diagramIRI, diagramIRI))
	if err != nil {
		return nil, err
	}

	glue := diagram.NewGlueGraph()
	for _, b := range res.Results.Bindings {
		glue.Glue(b["pa"].Value, b["pb"].Value)
	}
	return glue, nil
}

func (s *SparqlStore) InsertPoint(ctx context.Context, p NewPoint, sequenceUpdates map[string]int) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, `INSERT DATA {
  <%s> a cim:DiagramObjectPoint ;
       cim:DiagramObjectPoint.DiagramObject <%s> ;
       cim:DiagramObjectPoint.xPosition %s ;
       cim:DiagramObjectPoint.yPosition %s ;
       cim:DiagramObjectPoint.zPosition %s ;
       cim:DiagramObjectPoint.sequenceNumber %d .
};
`, p.IRI, p.ObjectIRI, lit(p.X), lit(p.Y), lit(p.Z), p.SequenceNumber)
	sb.WriteString(sequenceUpdateClauses(sequenceUpdates, p.IRI))
	return s.update(ctx, sb.String())
}

func (s *SparqlStore) DeletePoint(ctx context.Context, pointIRI string, sequenceUpdates map[string]int) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE WHERE { <%s> ?prop ?val };\n", pointIRI)
	fmt.Fprintf(&sb, "DELETE WHERE { ?s ?prop <%s> };\n", pointIRI)
	sb.WriteString(sequenceUpdateClauses(sequenceUpdates, ""))
	return s.update(ctx, sb.String())
}

// sequenceUpdateClauses rewrites the sequence numbers of an object's
// surviving points. skip excludes the freshly inserted point, whose
// number is written by the INSERT DATA clause.
func sequenceUpdateClauses(updates map[string]int, skip string) string {
	iris := make([]string, 0, len(updates))
	for iri := range updates {
		if iri != skip {
			iris = append(iris, iri)
		}
	}
	sort.Strings(iris)

	var sb strings.Builder
	for _, iri := range iris {
		fmt.Fprintf(&sb, `DELETE { <%s> cim:DiagramObjectPoint.sequenceNumber ?old }
INSERT { <%s> cim:DiagramObjectPoint.sequenceNumber %d }
WHERE  { <%s> cim:DiagramObjectPoint.sequenceNumber ?old };
`, iri, iri, updates[iri], iri)
	}
	return sb.String()
}

func (s *SparqlStore) UpdatePositions(ctx context.Context, pointIRIs []string, dx, dy float64) error {
	var sb strings.Builder
	for _, iri := range pointIRIs {
		fmt.Fprintf(&sb, `DELETE { <%s> cim:DiagramObjectPoint.xPosition ?x . <%s> cim:DiagramObjectPoint.yPosition ?y }
INSERT { <%s> cim:DiagramObjectPoint.xPosition ?nx . <%s> cim:DiagramObjectPoint.yPosition ?ny }
WHERE  {
  <%s> cim:DiagramObjectPoint.xPosition ?x .
  <%s> cim:DiagramObjectPoint.yPosition ?y .
  BIND (?x + %s AS ?nx)
  BIND (?y + %s AS ?ny)
};
`, iri, iri, iri, iri, iri, iri, lit(dx), lit(dy))
	}
	return s.update(ctx, sb.String())
}

func (s *SparqlStore) UpdatePoints(ctx context.Context, positions []PointPosition) error {
	var sb strings.Builder
	for _, pos := range positions {
		fmt.Fprintf(&sb, `DELETE { <%s> cim:DiagramObjectPoint.xPosition ?x . <%s> cim:DiagramObjectPoint.yPosition ?y }
INSERT { <%s> cim:DiagramObjectPoint.xPosition %s . <%s> cim:DiagramObjectPoint.yPosition %s }
WHERE  {
  <%s> cim:DiagramObjectPoint.xPosition ?x .
  <%s> cim:DiagramObjectPoint.yPosition ?y .
};
`, pos.IRI, pos.IRI, pos.IRI, lit(pos.X), pos.IRI, lit(pos.Y), pos.IRI, pos.IRI)
	}
	return s.update(ctx, sb.String())
}

func (s *SparqlStore) GluePoints(ctx context.Context, a, b string) error {
	glueIRI := "urn:voltmap:" + typeid.New("glue")
	return s.update(ctx, fmt.Sprintf(`INSERT DATA {
  <%s> a cim:DiagramObjectGluePoint .
  <%s> cim:DiagramObjectPoint.DiagramObjectGluePoint <%s> .
  <%s> cim:DiagramObjectPoint.DiagramObjectGluePoint <%s> .
}`, glueIRI, a, glueIRI, b, glueIRI))
}

func (s *SparqlStore) UngluePoints(ctx context.Context, a, b string) error {
	return s.update(ctx, fmt.Sprintf(`DELETE {
  <%s> cim:DiagramObjectPoint.DiagramObjectGluePoint ?g .
  <%s> cim:DiagramObjectPoint.DiagramObjectGluePoint ?g .
  ?g ?gprop ?gval .
} WHERE {
  <%s> cim:DiagramObjectPoint.DiagramObjectGluePoint ?g .
  <%s> cim:DiagramObjectPoint.DiagramObjectGluePoint ?g .
  ?g ?gprop ?gval .
}`, a, b, a, b))
}

func (s *SparqlStore) CreateObject(ctx context.Context, obj NewObject) error {
	var sb strings.Builder
	sb.WriteString("INSERT DATA {\n")
	fmt.Fprintf(&sb, `  <%s> a cim:DiagramObject ;
       cim:DiagramObject.Diagram <%s> ;
       cim:IdentifiedObject.name %q ;
       cim:DiagramObject.isPolygon %t ;
       cim:DiagramObject.rotation %s .
`, obj.Object.IRI, obj.DiagramIRI, obj.Object.Name, obj.Object.Polygon, lit(obj.Object.Rotation))
	for _, p := range obj.Points {
		fmt.Fprintf(&sb, `  <%s> a cim:DiagramObjectPoint ;
       cim:DiagramObjectPoint.DiagramObject <%s> ;
       cim:DiagramObjectPoint.xPosition %s ;
       cim:DiagramObjectPoint.yPosition %s ;
       cim:DiagramObjectPoint.zPosition %s ;
       cim:DiagramObjectPoint.sequenceNumber %d .
`, p.IRI, p.ObjectIRI, lit(p.X), lit(p.Y), lit(p.Z), p.SequenceNumber)
	}
	sb.WriteString("};\n")
	if err := s.update(ctx, sb.String()); err != nil {
		return err
	}
	for _, pair := range obj.Glue {
		if err := s.GluePoints(ctx, pair.A, pair.B); err != nil {
			return err
		}
	}
	return nil
}

func (s *SparqlStore) DeleteObject(ctx context.Context, objectIRI string, pointIRIs []string) error {
	var sb strings.Builder
	for _, iri := range pointIRIs {
		fmt.Fprintf(&sb, "DELETE WHERE { <%s> ?prop ?val };\n", iri)
		fmt.Fprintf(&sb, "DELETE WHERE { ?s ?prop <%s> };\n", iri)
	}
	fmt.Fprintf(&sb, "DELETE WHERE { <%s> ?prop ?val };\n", objectIRI)
	fmt.Fprintf(&sb, "DELETE WHERE { ?s ?prop <%s> }\n", objectIRI)
	return s.update(ctx, sb.String())
}

// lit formats a float as a SPARQL numeric literal.
func lit(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
