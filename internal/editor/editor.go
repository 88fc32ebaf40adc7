// Package editor implements the interactive diagram editing engine: the
// view transform, the pointer-driven interaction state machine, the
// geometric point operations, and the optimistic-sync protocol against
// the remote graph store.
package editor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/geometry"
	"github.com/voltmap/voltmap/internal/graphstore"
)

// Mode is the interaction state machine mode. Every transition begins
// and ends in ModeNone.
type Mode int

const (
	ModeNone Mode = iota
	ModeDragging
	ModeSelecting
	ModePanning
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeDragging:
		return "dragging"
	case ModeSelecting:
		return "selecting"
	case ModePanning:
		return "panning"
	default:
		return "unknown"
	}
}

// Options is the externally supplied editor tuning.
type Options struct {
	InitialScale   float64
	InitialOffsetX float64
	InitialOffsetY float64
	DragThreshold  float64
	ZoomFactor     float64
	GridMin        int
	GridMax        int
	GridStep       int
	FitPadding     float64
	MaxFitScale    float64
}

// DefaultOptions matches the shipped configuration defaults.
func DefaultOptions() Options {
	return Options{
		InitialScale:  1.0,
		DragThreshold: 2,
		ZoomFactor:    1.1,
		GridMin:       5,
		GridMax:       100,
		GridStep:      5,
		FitPadding:    0.05,
		MaxFitScale:   4.0,
	}
}

// EventKind identifies what part of the editor state changed.
type EventKind int

const (
	EventDiagram EventKind = iota
	EventSelection
	EventView
	EventStatus
	EventLoading
)

// Event is delivered to observers after a state change.
type Event struct {
	Kind   EventKind
	Status string
}

// interactionState holds the live gesture state. The snapshot map is
// populated only while dragging and holds the pre-drag position of
// every point the gesture moves (selected points plus their glued
// partners); it is the rollback source for insignificant gestures and
// failed syncs.
type interactionState struct {
	mode      Mode
	dragStart geometry.Vec
	dragEnd   geometry.Vec
	panStart  geometry.Vec
	snapshot  map[string]geometry.Vec
}

// Editor is the single state container for one editing session. It owns
// the diagram model, the glue graph, the view transform, the selection
// and the interaction state behind one mutation interface. All methods
// must be called from a single goroutine (the session's event loop);
// only the sync service runs concurrently.
type Editor struct {
	opts Options

	diag *diagram.Diagram
	glue *diagram.GlueGraph
	view *ViewTransform

	state interactionState

	// Selection is an ordered set: selOrder preserves insertion order
	// (grid snapping anchors on the first selected point).
	selected map[string]struct{}
	selOrder []string

	gridEnabled bool
	gridSize    int

	sync      *Syncer
	observers []func(Event)
}

// New creates an editor bound to the given store. No diagram is loaded.
func New(store graphstore.Store, opts Options) *Editor {
	return &Editor{
		opts:     opts,
		view:     NewViewTransform(opts.InitialScale, opts.InitialOffsetX, opts.InitialOffsetY, opts.ZoomFactor),
		selected: make(map[string]struct{}),
		gridSize: opts.GridMin,
		sync:     newSyncer(store),
	}
}

// Subscribe registers an observer for state-change events.
func (e *Editor) Subscribe(fn func(Event)) {
	e.observers = append(e.observers, fn)
}

func (e *Editor) notify(kind EventKind, status string) {
	for _, fn := range e.observers {
		fn(Event{Kind: kind, Status: status})
	}
}

// Status emits a human-readable status line to observers.
func (e *Editor) Status(format string, args ...any) {
	e.notify(EventStatus, fmt.Sprintf(format, args...))
}

// Sync returns the sync service; its completions must be applied back
// through ApplyCompletion on the editor's goroutine.
func (e *Editor) Sync() *Syncer { return e.sync }

// Diagram returns the loaded diagram, or nil.
func (e *Editor) Diagram() *diagram.Diagram { return e.diag }

// Glue returns the glue graph for the loaded diagram, or nil.
func (e *Editor) Glue() *diagram.GlueGraph { return e.glue }

// View returns the view transform.
func (e *Editor) View() *ViewTransform { return e.view }

// Mode returns the current interaction mode.
func (e *Editor) Mode() Mode { return e.state.mode }

// Loading reports whether a persistence call is in flight.
func (e *Editor) Loading() bool { return e.sync.Loading() }

// SetDiagram replaces the loaded diagram wholesale and resets the
// interaction state and selection.
func (e *Editor) SetDiagram(d *diagram.Diagram, glue *diagram.GlueGraph) {
	e.diag = d
	e.glue = glue
	e.resetInteraction()
	e.clearSelection()
	e.notify(EventDiagram, "")
	e.notify(EventSelection, "")
}

// Load fetches a layout from the store and installs it. Used both for
// the initial load and for the authoritative reload after a failed
// structural sync.
func (e *Editor) Load(ctx context.Context, diagramIRI string) error {
	d, glue, err := e.sync.store.LoadLayout(ctx, diagramIRI)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", diagramIRI, err)
	}
	e.SetDiagram(d, glue)
	slog.Info("layout loaded", "diagram", diagramIRI, "points", d.PointCount())
	return nil
}

// --- Selection ---

// SelectedPoints returns the selected point IRIs in selection order.
func (e *Editor) SelectedPoints() []string {
	out := make([]string, len(e.selOrder))
	copy(out, e.selOrder)
	return out
}

// IsSelected reports membership of one point in the selection.
func (e *Editor) IsSelected(iri string) bool {
	_, ok := e.selected[iri]
	return ok
}

// TogglePoint flips membership of one point in the selection set. Works
// in any mode.
func (e *Editor) TogglePoint(iri string) error {
	if e.diag == nil || e.diag.Point(iri) == nil {
		return validationErr("unknown point %s", iri)
	}
	if _, ok := e.selected[iri]; ok {
		delete(e.selected, iri)
		order := e.selOrder[:0]
		for _, s := range e.selOrder {
			if s != iri {
				order = append(order, s)
			}
		}
		e.selOrder = order
	} else {
		e.selected[iri] = struct{}{}
		e.selOrder = append(e.selOrder, iri)
	}
	e.notify(EventSelection, "")
	return nil
}

// ClearSelection empties the selection set. Works in any mode.
func (e *Editor) ClearSelection() {
	e.clearSelection()
	e.notify(EventSelection, "")
}

func (e *Editor) clearSelection() {
	e.selected = make(map[string]struct{})
	e.selOrder = e.selOrder[:0]
}

func (e *Editor) addToSelection(iri string) {
	if _, ok := e.selected[iri]; !ok {
		e.selected[iri] = struct{}{}
		e.selOrder = append(e.selOrder, iri)
	}
}

// --- Grid ---

// SetGridEnabled toggles grid snapping for drag gestures.
func (e *Editor) SetGridEnabled(on bool) {
	e.gridEnabled = on
}

// SetGridSize clamps the size to the configured bounds and rounds to
// the configured step.
func (e *Editor) SetGridSize(size int) {
	if e.opts.GridStep > 0 {
		size = (size / e.opts.GridStep) * e.opts.GridStep
	}
	size = max(size, e.opts.GridMin)
	size = min(size, e.opts.GridMax)
	e.gridSize = size
}

// GridSize returns the active grid size.
func (e *Editor) GridSize() int { return e.gridSize }

// GridEnabled reports whether snapping is on.
func (e *Editor) GridEnabled() bool { return e.gridEnabled }

// --- View ---

// Pan shifts the view offset. Used by the panning gesture and exposed
// for direct calls (keyboard panning).
func (e *Editor) Pan(dx, dy float64) {
	e.view.Pan(dx, dy)
	e.notify(EventView, "")
}

// ZoomAt zooms around the cursor. Stateless: valid in every mode.
func (e *Editor) ZoomAt(cursor geometry.Vec, wheelDelta float64) {
	e.view.ZoomAt(cursor, wheelDelta)
	e.notify(EventView, "")
}

// ResetView restores the configured initial view transform.
func (e *Editor) ResetView() {
	e.view.Reset()
	e.notify(EventView, "")
}

// FitView fits the loaded diagram's bounds into the given viewport.
func (e *Editor) FitView(viewportW, viewportH float64) error {
	if e.diag == nil {
		return validationErr("no diagram loaded")
	}
	e.view.FitToBounds(e.diag.Bounds(), viewportW, viewportH, e.opts.FitPadding, e.opts.MaxFitScale)
	e.notify(EventView, "")
	return nil
}

func (e *Editor) resetInteraction() {
	e.state = interactionState{}
}

// affectedPoints returns the selected points plus every point directly
// glued to a selected point. Glue propagation is direct adjacency only,
// not transitive closure.
func (e *Editor) affectedPoints() []string {
	seen := make(map[string]struct{}, len(e.selOrder))
	out := make([]string, 0, len(e.selOrder))
	for _, iri := range e.selOrder {
		if _, ok := seen[iri]; !ok {
			seen[iri] = struct{}{}
			out = append(out, iri)
		}
	}
	if e.glue != nil {
		for _, iri := range e.selOrder {
			for _, other := range e.glue.GluedTo(iri) {
				if _, ok := seen[other]; !ok {
					seen[other] = struct{}{}
					out = append(out, other)
				}
			}
		}
	}
	return out
}
