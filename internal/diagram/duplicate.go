package diagram

import "fmt"

// DuplicateObjects copies the given objects and their points into the
// diagram, shifted by (dx, dy). Glue relations whose endpoints are both
// inside the duplicated set are re-created between the duplicates;
// relations crossing the boundary are not carried over. newIRI mints
// fresh identifiers for the copies. Returns the new object IRIs.
func DuplicateObjects(d *Diagram, glue *GlueGraph, objectIRIs []string, dx, dy float64, newObjectIRI, newPointIRI func() string) ([]string, error) {
	pointMap := make(map[string]string)
	newObjects := make([]string, 0, len(objectIRIs))

	for _, iri := range objectIRIs {
		src := d.Object(iri)
		if src == nil {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, iri)
		}

		dup := &Object{
			IRI:      newObjectIRI(),
			Name:     src.Name + " (copy)",
			OffsetX:  src.OffsetX,
			OffsetY:  src.OffsetY,
			Rotation: src.Rotation,
			Polygon:  src.Polygon,
		}

		points := make([]*Point, 0, len(src.Points))
		for _, pIRI := range src.Points {
			p := d.Point(pIRI)
			np := &Point{
				IRI: newPointIRI(),
				X:   p.X + dx,
				Y:   p.Y + dy,
				Z:   p.Z,
			}
			pointMap[pIRI] = np.IRI
			points = append(points, np)
		}

		if err := d.AddObject(dup, points); err != nil {
			return nil, err
		}
		newObjects = append(newObjects, dup.IRI)
	}

	glue.CloneWithin(pointMap)
	return newObjects, nil
}
