package editor

import (
	"math"

	"github.com/voltmap/voltmap/internal/geometry"
)

// Rectangle-selection gestures with a side at or below this size are
// treated as accidental and cancelled.
const selectEpsilon = 3.0

// BeginDrag starts a drag gesture at the given diagram-space position.
// Requires a non-empty selection; the pre-drag position of every
// affected point (selected plus glued) is snapshotted for live preview
// and rollback.
func (e *Editor) BeginDrag(pos geometry.Vec) error {
	if e.diag == nil {
		return validationErr("no diagram loaded")
	}
	if e.state.mode != ModeNone {
		return validationErr("gesture already active (%s)", e.state.mode)
	}
	if len(e.selOrder) == 0 {
		return validationErr("no points selected")
	}

	snapshot := make(map[string]geometry.Vec)
	for _, iri := range e.affectedPoints() {
		if p := e.diag.Point(iri); p != nil {
			snapshot[iri] = p.Vec()
		}
	}

	e.state = interactionState{
		mode:      ModeDragging,
		dragStart: pos,
		dragEnd:   pos,
		snapshot:  snapshot,
	}
	return nil
}

// UpdateDrag moves every affected point to snapshot + delta for live
// preview. With grid snapping on, the first selected point's target is
// rounded to the grid and all points receive the rounded delta, so
// relative offsets within the selection are preserved. noSnap (modifier
// held) suppresses snapping for this gesture step.
func (e *Editor) UpdateDrag(pos geometry.Vec, noSnap bool) error {
	if e.state.mode != ModeDragging {
		return validationErr("not dragging")
	}

	delta := pos.Sub(e.state.dragStart)
	delta = e.snapDelta(e.state.snapshot, delta, noSnap)

	for iri, orig := range e.state.snapshot {
		if p := e.diag.Point(iri); p != nil {
			p.X = orig.X + delta.X
			p.Y = orig.Y + delta.Y
		}
	}
	e.state.dragEnd = pos
	e.notify(EventDiagram, "")
	return nil
}

// snapDelta converts a raw drag delta into the applied delta. Anchored
// on the first selected point so the whole selection moves rigidly:
// the anchor's target is rounded to the grid and everyone else gets the
// rounded delta.
func (e *Editor) snapDelta(snapshot map[string]geometry.Vec, delta geometry.Vec, noSnap bool) geometry.Vec {
	if !e.gridEnabled || noSnap || e.gridSize <= 0 || len(e.selOrder) == 0 {
		return delta
	}
	anchor, ok := snapshot[e.selOrder[0]]
	if !ok {
		return delta
	}
	grid := float64(e.gridSize)
	target := anchor.Add(delta)
	snapped := geometry.Vec{
		X: math.Round(target.X/grid) * grid,
		Y: math.Round(target.Y/grid) * grid,
	}
	return snapped.Sub(anchor)
}

// CommitDrag ends the drag. Gestures within the drag threshold on both
// axes are reverted with no remote call; otherwise the applied delta is
// persisted for every affected point and rolled back if the remote call
// fails.
func (e *Editor) CommitDrag(noSnap bool) error {
	if e.state.mode != ModeDragging {
		return validationErr("not dragging")
	}

	raw := e.state.dragEnd.Sub(e.state.dragStart)
	snapshot := e.state.snapshot
	e.resetInteraction()

	if math.Abs(raw.X) <= e.opts.DragThreshold && math.Abs(raw.Y) <= e.opts.DragThreshold {
		e.restore(snapshot)
		e.notify(EventDiagram, "")
		return nil
	}

	applied := e.snapDelta(snapshot, raw, noSnap)
	iris := make([]string, 0, len(snapshot))
	for iri := range snapshot {
		iris = append(iris, iri)
	}

	e.sync.UpdatePositions(iris, applied.X, applied.Y, func() {
		e.restore(snapshot)
		e.notify(EventDiagram, "")
	})
	e.Status("moved %d points by (%.1f, %.1f)", len(iris), applied.X, applied.Y)
	return nil
}

func (e *Editor) restore(snapshot map[string]geometry.Vec) {
	for iri, orig := range snapshot {
		if p := e.diag.Point(iri); p != nil {
			p.X = orig.X
			p.Y = orig.Y
		}
	}
}

// BeginSelect starts a rectangle-selection gesture.
func (e *Editor) BeginSelect(pos geometry.Vec) error {
	if e.diag == nil {
		return validationErr("no diagram loaded")
	}
	if e.state.mode != ModeNone {
		return validationErr("gesture already active (%s)", e.state.mode)
	}
	e.state = interactionState{mode: ModeSelecting, dragStart: pos, dragEnd: pos}
	return nil
}

// UpdateSelect moves the rectangle's tracking corner. No geometry is
// mutated; the live rectangle is derived from dragStart/dragEnd.
func (e *Editor) UpdateSelect(pos geometry.Vec) error {
	if e.state.mode != ModeSelecting {
		return validationErr("not selecting")
	}
	e.state.dragEnd = pos
	return nil
}

// SelectionRect returns the live selection rectangle while a selection
// gesture is active.
func (e *Editor) SelectionRect() (geometry.Rect, bool) {
	if e.state.mode != ModeSelecting {
		return geometry.Rect{}, false
	}
	return geometry.RectFromCorners(e.state.dragStart, e.state.dragEnd), true
}

// CommitSelect ends the gesture. Degenerate rectangles (either side ≤ 3
// units) cancel with no selection change; otherwise every point inside
// the inclusive bounds is added to the existing selection.
func (e *Editor) CommitSelect() error {
	if e.state.mode != ModeSelecting {
		return validationErr("not selecting")
	}
	rect := geometry.RectFromCorners(e.state.dragStart, e.state.dragEnd)
	e.resetInteraction()

	if rect.Width <= selectEpsilon || rect.Height <= selectEpsilon {
		return nil
	}

	added := 0
	for _, p := range e.diag.AllPoints() {
		if rect.Contains(p.X, p.Y) {
			if !e.IsSelected(p.IRI) {
				e.addToSelection(p.IRI)
				added++
			}
		}
	}
	if added > 0 {
		e.notify(EventSelection, "")
	}
	return nil
}

// BeginPan starts a panning gesture at a viewport-space position.
func (e *Editor) BeginPan(pos geometry.Vec) error {
	if e.state.mode != ModeNone {
		return validationErr("gesture already active (%s)", e.state.mode)
	}
	e.state = interactionState{mode: ModePanning, panStart: pos}
	return nil
}

// UpdatePan applies the per-step pointer delta to the view offset and
// re-anchors panStart, so deltas never accumulate from the original
// anchor.
func (e *Editor) UpdatePan(pos geometry.Vec) error {
	if e.state.mode != ModePanning {
		return validationErr("not panning")
	}
	e.view.Pan(pos.X-e.state.panStart.X, pos.Y-e.state.panStart.Y)
	e.state.panStart = pos
	e.notify(EventView, "")
	return nil
}

// EndPan ends the panning gesture.
func (e *Editor) EndPan() error {
	if e.state.mode != ModePanning {
		return validationErr("not panning")
	}
	e.resetInteraction()
	return nil
}

// CancelGesture aborts whatever gesture is active, reverting drag
// previews to their snapshot. Used on escape and diagram reload.
func (e *Editor) CancelGesture() {
	if e.state.mode == ModeDragging {
		e.restore(e.state.snapshot)
		e.notify(EventDiagram, "")
	}
	e.resetInteraction()
}
