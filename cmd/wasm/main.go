//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/editor"
	"github.com/voltmap/voltmap/internal/geometry"
	"github.com/voltmap/voltmap/internal/graphstore"
)

// The browser build runs the editor against an in-memory store, so the
// optimistic sync protocol works offline: completions are drained on
// every query call.
var (
	ed    *editor.Editor
	store *graphstore.MemStore
)

var errMissingArgs = errors.New("missing arguments")

func main() {
	store = graphstore.NewMemStore()
	d, glue := diagram.NewSampleDiagram()
	store.Put(d, glue)

	ed = editor.New(store, editor.DefaultOptions())
	ed.SetDiagram(d, glue)

	api := js.Global().Get("Object").New()

	// --- Gestures ---
	api.Set("beginDrag", js.FuncOf(beginDrag))
	api.Set("updateDrag", js.FuncOf(updateDrag))
	api.Set("commitDrag", js.FuncOf(commitDrag))
	api.Set("beginSelect", js.FuncOf(beginSelect))
	api.Set("updateSelect", js.FuncOf(updateSelect))
	api.Set("commitSelect", js.FuncOf(commitSelect))
	api.Set("beginPan", js.FuncOf(beginPan))
	api.Set("updatePan", js.FuncOf(updatePan))
	api.Set("endPan", js.FuncOf(endPan))
	api.Set("cancelGesture", js.FuncOf(cancelGesture))

	// --- Selection and grid ---
	api.Set("togglePoint", js.FuncOf(togglePoint))
	api.Set("clearSelection", js.FuncOf(clearSelection))
	api.Set("setGridEnabled", js.FuncOf(setGridEnabled))
	api.Set("setGridSize", js.FuncOf(setGridSize))

	// --- Edits ---
	api.Set("rotateSelection", js.FuncOf(rotateSelection))
	api.Set("mirrorSelection", js.FuncOf(mirrorSelection))
	api.Set("insertPoint", js.FuncOf(insertPoint))
	api.Set("deleteSelectedPoint", js.FuncOf(deleteSelectedPoint))
	api.Set("glueSelected", js.FuncOf(glueSelected))
	api.Set("unglueSelected", js.FuncOf(unglueSelected))
	api.Set("duplicateSelection", js.FuncOf(duplicateSelection))
	api.Set("deleteObject", js.FuncOf(deleteObject))
	api.Set("glueBrokenByObjectDelete", js.FuncOf(glueBrokenByObjectDelete))

	// --- View ---
	api.Set("pan", js.FuncOf(pan))
	api.Set("zoomAt", js.FuncOf(zoomAt))
	api.Set("resetView", js.FuncOf(resetView))
	api.Set("fitView", js.FuncOf(fitView))

	// --- Queries ---
	api.Set("getLayout", js.FuncOf(getLayout))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getView", js.FuncOf(getView))
	api.Set("getMode", js.FuncOf(getMode))
	api.Set("getSelectionRect", js.FuncOf(getSelectionRect))

	js.Global().Set("voltmapEditor", api)
	js.Global().Set("voltmapWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// drainSync applies any pending sync completions so failed mutations
// roll back before the next query reads state.
func drainSync() {
	for {
		select {
		case c := <-ed.Sync().Results():
			ed.ApplyCompletion(context.Background(), c)
		default:
			return
		}
	}
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func vecArg(args []js.Value) geometry.Vec {
	return geometry.Vec{X: args[0].Float(), Y: args[1].Float()}
}

// --- Gesture Handlers ---

func beginDrag(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	return result(ed.BeginDrag(vecArg(args)))
}

func updateDrag(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return result(errMissingArgs)
	}
	return result(ed.UpdateDrag(vecArg(args), args[2].Bool()))
}

func commitDrag(this js.Value, args []js.Value) interface{} {
	noSnap := len(args) > 0 && args[0].Bool()
	err := ed.CommitDrag(noSnap)
	drainSync()
	return result(err)
}

func beginSelect(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	return result(ed.BeginSelect(vecArg(args)))
}

func updateSelect(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	return result(ed.UpdateSelect(vecArg(args)))
}

func commitSelect(this js.Value, args []js.Value) interface{} {
	return result(ed.CommitSelect())
}

func beginPan(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	return result(ed.BeginPan(vecArg(args)))
}

func updatePan(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	return result(ed.UpdatePan(vecArg(args)))
}

func endPan(this js.Value, args []js.Value) interface{} {
	return result(ed.EndPan())
}

func cancelGesture(this js.Value, args []js.Value) interface{} {
	ed.CancelGesture()
	return result(nil)
}

// --- Selection and Grid Handlers ---

func togglePoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	return result(ed.TogglePoint(args[0].String()))
}

func clearSelection(this js.Value, args []js.Value) interface{} {
	ed.ClearSelection()
	return result(nil)
}

func setGridEnabled(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	ed.SetGridEnabled(args[0].Bool())
	return result(nil)
}

func setGridSize(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	ed.SetGridSize(args[0].Int())
	return result(nil)
}

// --- Edit Handlers ---

func rotateSelection(this js.Value, args []js.Value) interface{} {
	turns := 1
	if len(args) > 0 {
		turns = args[0].Int()
	}
	err := ed.RotateSelection(turns)
	drainSync()
	return result(err)
}

func mirrorSelection(this js.Value, args []js.Value) interface{} {
	axis := geometry.AxisVertical
	if len(args) > 0 && args[0].String() == "horizontal" {
		axis = geometry.AxisHorizontal
	}
	err := ed.MirrorSelection(axis)
	drainSync()
	return result(err)
}

func insertPoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return result(errMissingArgs)
	}
	pos := geometry.Vec{X: args[2].Float(), Y: args[3].Float()}
	iri, err := ed.InsertPointOnLine(args[0].String(), args[1].Int(), pos)
	drainSync()
	if err != nil {
		return result(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "iri": iri})
}

func deleteSelectedPoint(this js.Value, args []js.Value) interface{} {
	err := ed.DeleteSelectedPoint()
	drainSync()
	return result(err)
}

func glueSelected(this js.Value, args []js.Value) interface{} {
	err := ed.GlueSelected()
	drainSync()
	return result(err)
}

func unglueSelected(this js.Value, args []js.Value) interface{} {
	err := ed.UnglueSelected()
	drainSync()
	return result(err)
}

func duplicateSelection(this js.Value, args []js.Value) interface{} {
	dx, dy := 20.0, 20.0
	if len(args) >= 2 {
		dx, dy = args[0].Float(), args[1].Float()
	}
	iris, err := ed.DuplicateSelection(dx, dy)
	drainSync()
	if err != nil {
		return result(err)
	}
	data, _ := json.Marshal(iris)
	return js.ValueOf(map[string]interface{}{"ok": true, "objects": string(data)})
}

func deleteObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	err := ed.DeleteObject(args[0].String())
	drainSync()
	return result(err)
}

func glueBrokenByObjectDelete(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	pairs, err := ed.GlueBrokenByObjectDelete(args[0].String())
	if err != nil {
		return result(err)
	}
	data, _ := json.Marshal(pairs)
	return js.ValueOf(string(data))
}

// --- View Handlers ---

func pan(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	ed.Pan(args[0].Float(), args[1].Float())
	return result(nil)
}

func zoomAt(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return result(errMissingArgs)
	}
	ed.ZoomAt(vecArg(args), args[2].Float())
	return result(nil)
}

func resetView(this js.Value, args []js.Value) interface{} {
	ed.ResetView()
	return result(nil)
}

func fitView(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	return result(ed.FitView(args[0].Float(), args[1].Float()))
}

// --- Query Handlers ---

func getLayout(this js.Value, args []js.Value) interface{} {
	drainSync()
	snap := diagram.Snapshot(ed.Diagram(), ed.Glue())
	data, _ := json.Marshal(snap)
	return js.ValueOf(string(data))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	data, _ := json.Marshal(ed.SelectedPoints())
	return js.ValueOf(string(data))
}

func getView(this js.Value, args []js.Value) interface{} {
	vt := ed.View()
	data, _ := json.Marshal(map[string]float64{
		"scale":   vt.Scale,
		"offsetX": vt.OffsetX,
		"offsetY": vt.OffsetY,
	})
	return js.ValueOf(string(data))
}

func getMode(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.Mode().String())
}

func getSelectionRect(this js.Value, args []js.Value) interface{} {
	rect, ok := ed.SelectionRect()
	if !ok {
		return js.ValueOf("null")
	}
	data, _ := json.Marshal(rect)
	return js.ValueOf(string(data))
}
