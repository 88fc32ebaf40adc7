package graphstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltmap/voltmap/internal/diagram"
)

// PgStore is a PostgreSQL-backed Store for self-hosted deployments that
// mirror the graph data into relational tables.
type PgStore struct {
	pool    *pgxpool.Pool
	profile Profile
}

// NewPgStore creates a store over the given pool.
func NewPgStore(pool *pgxpool.Pool, profile Profile) (*PgStore, error) {
	if _, err := profile.Namespace(); err != nil {
		return nil, err
	}
	return &PgStore{pool: pool, profile: profile}, nil
}

// EnsureSchema creates the layout tables if they do not exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS diagrams (
    iri     TEXT PRIMARY KEY,
    name    TEXT NOT NULL,
    profile TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS diagram_objects (
    iri         TEXT PRIMARY KEY,
    diagram_iri TEXT NOT NULL REFERENCES diagrams(iri) ON DELETE CASCADE,
    name        TEXT NOT NULL DEFAULT '',
    offset_x    DOUBLE PRECISION NOT NULL DEFAULT 0,
    offset_y    DOUBLE PRECISION NOT NULL DEFAULT 0,
    rotation    DOUBLE PRECISION NOT NULL DEFAULT 0,
    polygon     BOOLEAN NOT NULL DEFAULT FALSE,
    position    INT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS diagram_points (
    iri             TEXT PRIMARY KEY,
    object_iri      TEXT NOT NULL REFERENCES diagram_objects(iri) ON DELETE CASCADE,
    x               DOUBLE PRECISION NOT NULL,
    y               DOUBLE PRECISION NOT NULL,
    z               DOUBLE PRECISION NOT NULL DEFAULT 0,
    sequence_number INT NOT NULL
);
CREATE TABLE IF NOT EXISTS glue_points (
    a TEXT NOT NULL REFERENCES diagram_points(iri) ON DELETE CASCADE,
    b TEXT NOT NULL REFERENCES diagram_points(iri) ON DELETE CASCADE,
    PRIMARY KEY (a, b),
    CHECK (a < b)
);`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PgStore) ListDiagrams(ctx context.Context) ([]DiagramInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT iri, name FROM diagrams WHERE profile = $1 ORDER BY name`, string(s.profile))
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	var out []DiagramInfo
	for rows.Next() {
		var info DiagramInfo
		if err := rows.Scan(&info.IRI, &info.Name); err != nil {
			return nil, fmt.Errorf("list diagrams: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *PgStore) LoadLayout(ctx context.Context, diagramIRI string) (*diagram.Diagram, *diagram.GlueGraph, error) {
	var name string
	err := s.pool.QueryRow(ctx,
		`SELECT name FROM diagrams WHERE iri = $1`, diagramIRI).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: diagram %s", ErrNotFound, diagramIRI)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load diagram: %w", err)
	}

	d := diagram.New(diagramIRI, name, string(s.profile))

	objRows, err := s.pool.Query(ctx, `
SELECT iri, name, offset_x, offset_y, rotation, polygon
FROM diagram_objects WHERE diagram_iri = $1 ORDER BY position, iri`, diagramIRI)
	if err != nil {
		return nil, nil, fmt.Errorf("load objects: %w", err)
	}
	var objs []*diagram.Object
	for objRows.Next() {
		obj := &diagram.Object{}
		if err := objRows.Scan(&obj.IRI, &obj.Name, &obj.OffsetX, &obj.OffsetY, &obj.Rotation, &obj.Polygon); err != nil {
			objRows.Close()
			return nil, nil, fmt.Errorf("load objects: %w", err)
		}
		objs = append(objs, obj)
	}
	objRows.Close()
	if err := objRows.Err(); err != nil {
		return nil, nil, err
	}

	for _, obj := range objs {
		ptRows, err := s.pool.Query(ctx, `
SELECT iri, x, y, z FROM diagram_points
WHERE object_iri = $1 ORDER BY sequence_number`, obj.IRI)
		if err != nil {
			return nil, nil, fmt.Errorf("load points: %w", err)
		}
		var points []*diagram.Point
		for ptRows.Next() {
			p := &diagram.Point{}
			if err := ptRows.Scan(&p.IRI, &p.X, &p.Y, &p.Z); err != nil {
				ptRows.Close()
				return nil, nil, fmt.Errorf("load points: %w", err)
			}
			points = append(points, p)
		}
		ptRows.Close()
		if err := ptRows.Err(); err != nil {
			return nil, nil, err
		}
		if err := d.AddObject(obj, points); err != nil {
			return nil, nil, fmt.Errorf("load layout: %w", err)
		}
	}

	glue := diagram.NewGlueGraph()
	glueRows, err := s.pool.Query(ctx, `
SELECT g.a, g.b FROM glue_points g
JOIN diagram_points pa ON pa.iri = g.a
JOIN diagram_objects oa ON oa.iri = pa.object_iri
WHERE oa.diagram_iri = $1`, diagramIRI)
	if err != nil {
		return nil, nil, fmt.Errorf("load glue: %w", err)
	}
	defer glueRows.Close()
	for glueRows.Next() {
		var a, b string
		if err := glueRows.Scan(&a, &b); err != nil {
			return nil, nil, fmt.Errorf("load glue: %w", err)
		}
		glue.Glue(a, b)
	}
	return d, glue, glueRows.Err()
}

// applySequenceUpdates writes renumbered sequence numbers inside a
// transaction.
func applySequenceUpdates(ctx context.Context, tx pgx.Tx, updates map[string]int) error {
	for iri, seq := range updates {
		if _, err := tx.Exec(ctx,
			`UPDATE diagram_points SET sequence_number = $1 WHERE iri = $2`, seq, iri); err != nil {
			return fmt.Errorf("renumber %s: %w", iri, err)
		}
	}
	return nil
}

func (s *PgStore) InsertPoint(ctx context.Context, p NewPoint, sequenceUpdates map[string]int) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO diagram_points (iri, object_iri, x, y, z, sequence_number)
VALUES ($1, $2, $3, $4, $5, $6)`,
			p.IRI, p.ObjectIRI, p.X, p.Y, p.Z, p.SequenceNumber); err != nil {
			return fmt.Errorf("insert point: %w", err)
		}
		return applySequenceUpdates(ctx, tx, sequenceUpdates)
	})
}

func (s *PgStore) DeletePoint(ctx context.Context, pointIRI string, sequenceUpdates map[string]int) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM diagram_points WHERE iri = $1`, pointIRI)
		if err != nil {
			return fmt.Errorf("delete point: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: point %s", ErrNotFound, pointIRI)
		}
		return applySequenceUpdates(ctx, tx, sequenceUpdates)
	})
}

func (s *PgStore) UpdatePositions(ctx context.Context, pointIRIs []string, dx, dy float64) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE diagram_points SET x = x + $1, y = y + $2 WHERE iri = ANY($3)`,
		dx, dy, pointIRIs)
	if err != nil {
		return fmt.Errorf("update positions: %w", err)
	}
	if int(tag.RowsAffected()) != len(pointIRIs) {
		return fmt.Errorf("%w: %d of %d points", ErrNotFound, len(pointIRIs)-int(tag.RowsAffected()), len(pointIRIs))
	}
	return nil
}

func (s *PgStore) UpdatePoints(ctx context.Context, positions []PointPosition) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, pos := range positions {
			tag, err := tx.Exec(ctx,
				`UPDATE diagram_points SET x = $1, y = $2 WHERE iri = $3`, pos.X, pos.Y, pos.IRI)
			if err != nil {
				return fmt.Errorf("update point %s: %w", pos.IRI, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: point %s", ErrNotFound, pos.IRI)
			}
		}
		return nil
	})
}

func (s *PgStore) GluePoints(ctx context.Context, a, b string) error {
	if a > b {
		a, b = b, a
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO glue_points (a, b) VALUES ($1, $2) ON CONFLICT DO NOTHING`, a, b); err != nil {
		return fmt.Errorf("glue points: %w", err)
	}
	return nil
}

func (s *PgStore) UngluePoints(ctx context.Context, a, b string) error {
	if a > b {
		a, b = b, a
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM glue_points WHERE a = $1 AND b = $2`, a, b)
	if err != nil {
		return fmt.Errorf("unglue points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: glue %s <-> %s", ErrNotFound, a, b)
	}
	return nil
}

func (s *PgStore) CreateObject(ctx context.Context, obj NewObject) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO diagram_objects (iri, diagram_iri, name, offset_x, offset_y, rotation, polygon, position)
VALUES ($1, $2, $3, $4, $5, $6, $7,
    COALESCE((SELECT MAX(position) + 1 FROM diagram_objects WHERE diagram_iri = $2), 0))`,
			obj.Object.IRI, obj.DiagramIRI, obj.Object.Name,
			obj.Object.OffsetX, obj.Object.OffsetY, obj.Object.Rotation, obj.Object.Polygon); err != nil {
			return fmt.Errorf("create object: %w", err)
		}
		for _, p := range obj.Points {
			if _, err := tx.Exec(ctx, `
INSERT INTO diagram_points (iri, object_iri, x, y, z, sequence_number)
VALUES ($1, $2, $3, $4, $5, $6)`,
				p.IRI, p.ObjectIRI, p.X, p.Y, p.Z, p.SequenceNumber); err != nil {
				return fmt.Errorf("create object point: %w", err)
			}
		}
		for _, pair := range obj.Glue {
			a, b := pair.A, pair.B
			if a > b {
				a, b = b, a
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO glue_points (a, b) VALUES ($1, $2) ON CONFLICT DO NOTHING`, a, b); err != nil {
				return fmt.Errorf("create object glue: %w", err)
			}
		}
		return nil
	})
}

func (s *PgStore) DeleteObject(ctx context.Context, objectIRI string, pointIRIs []string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM diagram_objects WHERE iri = $1`, objectIRI)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: object %s", ErrNotFound, objectIRI)
	}
	return nil
}

// SaveLayout stores a complete layout, replacing any previous contents.
// Used for seeding dev databases from a snapshot.
func (s *PgStore) SaveLayout(ctx context.Context, d *diagram.Diagram, glue *diagram.GlueGraph) error {
	snap := diagram.Snapshot(d, glue)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM diagrams WHERE iri = $1`, snap.IRI); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO diagrams (iri, name, profile) VALUES ($1, $2, $3)`,
			snap.IRI, snap.Name, string(s.profile)); err != nil {
			return err
		}
		for i, obj := range snap.Objects {
			if _, err := tx.Exec(ctx, `
INSERT INTO diagram_objects (iri, diagram_iri, name, offset_x, offset_y, rotation, polygon, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				obj.IRI, snap.IRI, obj.Name, obj.OffsetX, obj.OffsetY, obj.Rotation, obj.Polygon, i); err != nil {
				return err
			}
			for _, p := range obj.Points {
				if _, err := tx.Exec(ctx, `
INSERT INTO diagram_points (iri, object_iri, x, y, z, sequence_number)
VALUES ($1, $2, $3, $4, $5, $6)`,
					p.IRI, obj.IRI, p.X, p.Y, p.Z, p.SequenceNumber); err != nil {
					return err
				}
			}
		}
		for _, pair := range snap.Glue {
			a, b := pair.A, pair.B
			if a > b {
				a, b = b, a
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO glue_points (a, b) VALUES ($1, $2)`, a, b); err != nil {
				return err
			}
		}
		return nil
	})
}
