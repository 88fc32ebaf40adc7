package session

import (
	"encoding/json"

	"github.com/voltmap/voltmap/internal/diagram"
)

// Message is the websocket envelope in both directions.
type Message struct {
	Type       string          `json:"type"`
	DiagramIRI string          `json:"diagramIri,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

const (
	// Connection / state push
	TypeWelcome        = "welcome"
	TypeLayoutSync     = "layout.sync"
	TypeSelectionState = "selection.state"
	TypeViewState      = "view.state"
	TypeStatus         = "status"
	TypeLoading        = "loading"
	TypeGlueWarning    = "glue.warning"

	// Gestures (client → server)
	TypeDragBegin    = "drag.begin"
	TypeDragUpdate   = "drag.update"
	TypeDragCommit   = "drag.commit"
	TypeSelectBegin  = "select.begin"
	TypeSelectUpdate = "select.update"
	TypeSelectCommit = "select.commit"
	TypePanBegin     = "pan.begin"
	TypePanUpdate    = "pan.update"
	TypePanEnd       = "pan.end"
	TypeGestureAbort = "gesture.abort"

	// View (client → server)
	TypeZoom      = "view.zoom"
	TypeViewReset = "view.reset"
	TypeViewFit   = "view.fit"

	// Selection / grid (client → server)
	TypeSelectionToggle = "selection.toggle"
	TypeSelectionClear  = "selection.clear"
	TypeGridSet         = "grid.set"

	// Edits (client → server)
	TypeEditRotate    = "edit.rotate"
	TypeEditMirror    = "edit.mirror"
	TypeEditInsert    = "edit.insert"
	TypeEditDelete    = "edit.delete"
	TypeEditGlue      = "edit.glue"
	TypeEditUnglue    = "edit.unglue"
	TypeEditDuplicate = "edit.duplicate"
	TypeObjectCheck   = "object.gluecheck"
	TypeObjectDelete  = "object.delete"

	// Presence
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
)

// GesturePayload carries a pointer position in diagram coordinates.
// NoSnap mirrors the held snap-suppression modifier.
type GesturePayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	NoSnap bool    `json:"noSnap,omitempty"`
}

// ZoomPayload carries a wheel event at a cursor position.
type ZoomPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Delta float64 `json:"delta"`
}

// FitPayload carries the client viewport size for fit-to-bounds.
type FitPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PointPayload names one point.
type PointPayload struct {
	PointIRI string `json:"pointIri"`
}

// ObjectPayload names one diagram object.
type ObjectPayload struct {
	ObjectIRI string `json:"objectIri"`
}

// GridPayload sets grid snapping.
type GridPayload struct {
	Enabled bool `json:"enabled"`
	Size    int  `json:"size"`
}

// RotatePayload rotates the selection by quarter turns (+1 / -1).
type RotatePayload struct {
	Turns int `json:"turns"`
}

// MirrorPayload mirrors the selection; Axis is "horizontal" or
// "vertical".
type MirrorPayload struct {
	Axis string `json:"axis"`
}

// InsertPayload inserts a point on an object's line.
type InsertPayload struct {
	ObjectIRI string  `json:"objectIri"`
	Index     int     `json:"index"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// DuplicatePayload offsets duplicated objects.
type DuplicatePayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// StatusPayload carries human-readable status text.
type StatusPayload struct {
	Text string `json:"text"`
}

// LoadingPayload exposes the sync-in-flight flag.
type LoadingPayload struct {
	Loading bool `json:"loading"`
}

// SelectionPayload is the authoritative selection set.
type SelectionPayload struct {
	Points []string `json:"points"`
}

// ViewPayload is the authoritative view transform.
type ViewPayload struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// GlueWarningPayload lists relations an object delete would break.
type GlueWarningPayload struct {
	ObjectIRI string             `json:"objectIri"`
	Broken    []diagram.GluePair `json:"broken"`
}

// WelcomePayload is the initial state for a joining client.
type WelcomePayload struct {
	Layout      diagram.LayoutSnapshot `json:"layout"`
	View        ViewPayload            `json:"view"`
	Selection   []string               `json:"selection"`
	GridEnabled bool                   `json:"gridEnabled"`
	GridSize    int                    `json:"gridSize"`
}

// --- Presence ---

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}
