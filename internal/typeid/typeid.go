package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser    = "user"
	PrefixDiagram = "diag"
	PrefixObject  = "dobj"
	PrefixPoint   = "dpnt"
	PrefixSession = "sess"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string    { return New(PrefixUser) }
func NewDiagramID() string { return New(PrefixDiagram) }
func NewObjectID() string  { return New(PrefixObject) }
func NewPointID() string   { return New(PrefixPoint) }
func NewSessionID() string { return New(PrefixSession) }

// NewPointIRI mints an IRI for a point created locally (inserted on a
// line or duplicated). The remote store treats these as opaque subject
// identifiers.
func NewPointIRI() string {
	return "urn:voltmap:" + New(PrefixPoint)
}

// NewObjectIRI mints an IRI for a duplicated diagram object.
func NewObjectIRI() string {
	return "urn:voltmap:" + New(PrefixObject)
}

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
