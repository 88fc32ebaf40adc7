package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/editor"
	"github.com/voltmap/voltmap/internal/geometry"
	"github.com/voltmap/voltmap/internal/graphstore"
)

// inbound is one unit of work for the room loop: a client message or a
// join/leave notification.
type inbound struct {
	sender *Client
	msg    *Message
	join   bool
	leave  bool
}

// Room owns the authoritative editor for one diagram. All editor access
// happens on the room goroutine: client messages and sync completions
// are both drained there, which keeps gestures and rollbacks serialized.
type Room struct {
	diagramIRI string
	editor     *editor.Editor
	clients    map[string]*Client // clientID -> client
	presence   *PresenceManager
	inbox      chan inbound
	done       chan struct{}
}

func NewRoom(diagramIRI string, store graphstore.Store, opts editor.Options) *Room {
	r := &Room{
		diagramIRI: diagramIRI,
		editor:     editor.New(store, opts),
		clients:    make(map[string]*Client),
		presence:   NewPresenceManager(),
		inbox:      make(chan inbound, 64),
		done:       make(chan struct{}),
	}

	r.editor.Subscribe(func(ev editor.Event) {
		switch ev.Kind {
		case editor.EventDiagram:
			r.broadcastLayout()
		case editor.EventSelection:
			r.broadcastSelection()
		case editor.EventView:
			r.broadcastView()
		case editor.EventStatus:
			r.broadcastStatus(ev.Status)
		case editor.EventLoading:
			r.broadcastLoading()
		}
	})
	return r
}

func (r *Room) run(ctx context.Context) {
	if err := r.editor.Load(ctx, r.diagramIRI); err != nil {
		slog.Error("room load failed", "diagram", r.diagramIRI, "error", err)
	}

	for {
		select {
		case in := <-r.inbox:
			switch {
			case in.join:
				r.handleJoin(in.sender)
			case in.leave:
				r.handleLeave(in.sender)
			default:
				r.handleMessage(ctx, in.sender, in.msg)
			}
		case c := <-r.editor.Sync().Results():
			r.editor.ApplyCompletion(ctx, c)
		case <-r.done:
			// Drain pending leaves so client send channels close.
			for {
				select {
				case in := <-r.inbox:
					if in.leave {
						r.handleLeave(in.sender)
					}
				default:
					return
				}
			}
		}
	}
}

func (r *Room) handleJoin(c *Client) {
	r.clients[c.ClientID] = c

	if r.editor.Diagram() != nil {
		payload, _ := json.Marshal(WelcomePayload{
			Layout:      diagram.Snapshot(r.editor.Diagram(), r.editor.Glue()),
			View:        r.viewPayload(),
			Selection:   r.editor.SelectedPoints(),
			GridEnabled: r.editor.GridEnabled(),
			GridSize:    r.editor.GridSize(),
		})
		c.Send(&Message{Type: TypeWelcome, Payload: payload})
	}

	if stateMsg := r.presence.StateMessage(); stateMsg != nil {
		c.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
	})
	r.broadcast(&Message{Type: TypePresenceJoin, UserID: c.UserID, Payload: joinPayload}, c.ClientID)

	slog.Info("client joined", "user", c.UserID, "diagram", r.diagramIRI)
}

func (r *Room) handleLeave(c *Client) {
	if _, ok := r.clients[c.ClientID]; !ok {
		return
	}
	delete(r.clients, c.ClientID)
	close(c.send)
	r.presence.Remove(c.UserID)

	leavePayload, _ := json.Marshal(PresenceLeavePayload{UserID: c.UserID})
	r.broadcast(&Message{Type: TypePresenceLeave, UserID: c.UserID, Payload: leavePayload}, "")

	slog.Info("client left", "user", c.UserID, "diagram", r.diagramIRI)
}

func (r *Room) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	var err error

	switch msg.Type {
	case TypeDragBegin:
		var p GesturePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.BeginDrag(geometry.Vec{X: p.X, Y: p.Y})
		}
	case TypeDragUpdate:
		var p GesturePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.UpdateDrag(geometry.Vec{X: p.X, Y: p.Y}, p.NoSnap)
		}
	case TypeDragCommit:
		var p GesturePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.CommitDrag(p.NoSnap)
		}
	case TypeSelectBegin:
		var p GesturePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.BeginSelect(geometry.Vec{X: p.X, Y: p.Y})
		}
	case TypeSelectUpdate:
		var p GesturePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.UpdateSelect(geometry.Vec{X: p.X, Y: p.Y})
		}
	case TypeSelectCommit:
		err = r.editor.CommitSelect()
	case TypePanBegin:
		var p GesturePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.BeginPan(geometry.Vec{X: p.X, Y: p.Y})
		}
	case TypePanUpdate:
		var p GesturePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.UpdatePan(geometry.Vec{X: p.X, Y: p.Y})
		}
	case TypePanEnd:
		err = r.editor.EndPan()
	case TypeGestureAbort:
		r.editor.CancelGesture()

	case TypeZoom:
		var p ZoomPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			r.editor.ZoomAt(geometry.Vec{X: p.X, Y: p.Y}, p.Delta)
		}
	case TypeViewReset:
		r.editor.ResetView()
	case TypeViewFit:
		var p FitPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.FitView(p.Width, p.Height)
		}

	case TypeSelectionToggle:
		var p PointPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.TogglePoint(p.PointIRI)
		}
	case TypeSelectionClear:
		r.editor.ClearSelection()
	case TypeGridSet:
		var p GridPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			r.editor.SetGridEnabled(p.Enabled)
			if p.Size > 0 {
				r.editor.SetGridSize(p.Size)
			}
		}

	case TypeEditRotate:
		var p RotatePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.RotateSelection(p.Turns)
		}
	case TypeEditMirror:
		var p MirrorPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			axis := geometry.AxisVertical
			if p.Axis == "horizontal" {
				axis = geometry.AxisHorizontal
			}
			err = r.editor.MirrorSelection(axis)
		}
	case TypeEditInsert:
		var p InsertPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			_, err = r.editor.InsertPointOnLine(p.ObjectIRI, p.Index, geometry.Vec{X: p.X, Y: p.Y})
		}
	case TypeEditDelete:
		err = r.editor.DeleteSelectedPoint()
	case TypeEditGlue:
		err = r.editor.GlueSelected()
	case TypeEditUnglue:
		err = r.editor.UnglueSelected()
	case TypeEditDuplicate:
		var p DuplicatePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			_, err = r.editor.DuplicateSelection(p.DX, p.DY)
		}

	case TypeObjectCheck:
		var p ObjectPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			var broken []diagram.GluePair
			broken, err = r.editor.GlueBrokenByObjectDelete(p.ObjectIRI)
			if err == nil {
				payload, _ := json.Marshal(GlueWarningPayload{ObjectIRI: p.ObjectIRI, Broken: broken})
				sender.Send(&Message{Type: TypeGlueWarning, Payload: payload})
			}
		}
	case TypeObjectDelete:
		var p ObjectPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = r.editor.DeleteObject(p.ObjectIRI)
		}

	case TypePresenceUpdate:
		r.handlePresenceUpdate(sender, msg)

	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}

	// Rejected operations go back to the sender only; accepted ones
	// already broadcast their state changes via editor events.
	if err != nil {
		payload, _ := json.Marshal(StatusPayload{Text: err.Error()})
		sender.Send(&Message{Type: TypeStatus, Payload: payload})
	}
}

func (r *Room) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	r.presence.Update(sender.UserID, sender.DisplayName, &presence)

	outPayload, _ := json.Marshal(presence)
	r.broadcast(&Message{Type: TypePresenceUpdate, UserID: sender.UserID, Payload: outPayload}, sender.ClientID)
}

func (r *Room) viewPayload() ViewPayload {
	vt := r.editor.View()
	return ViewPayload{Scale: vt.Scale, OffsetX: vt.OffsetX, OffsetY: vt.OffsetY}
}

func (r *Room) broadcast(msg *Message, excludeClientID string) {
	for _, c := range r.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}

func (r *Room) broadcastLayout() {
	if r.editor.Diagram() == nil {
		return
	}
	payload, _ := json.Marshal(diagram.Snapshot(r.editor.Diagram(), r.editor.Glue()))
	r.broadcast(&Message{Type: TypeLayoutSync, Payload: payload}, "")
}

func (r *Room) broadcastSelection() {
	payload, _ := json.Marshal(SelectionPayload{Points: r.editor.SelectedPoints()})
	r.broadcast(&Message{Type: TypeSelectionState, Payload: payload}, "")
}

func (r *Room) broadcastView() {
	payload, _ := json.Marshal(r.viewPayload())
	r.broadcast(&Message{Type: TypeViewState, Payload: payload}, "")
}

func (r *Room) broadcastStatus(text string) {
	payload, _ := json.Marshal(StatusPayload{Text: text})
	r.broadcast(&Message{Type: TypeStatus, Payload: payload}, "")
}

func (r *Room) broadcastLoading() {
	payload, _ := json.Marshal(LoadingPayload{Loading: r.editor.Loading()})
	r.broadcast(&Message{Type: TypeLoading, Payload: payload}, "")
}
