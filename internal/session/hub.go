// Package session hosts the websocket editing rooms. Each room owns
// the authoritative editor for one diagram and serializes every gesture
// and sync completion on its own goroutine.
package session

import (
	"context"
	"sync"

	"github.com/voltmap/voltmap/internal/editor"
	"github.com/voltmap/voltmap/internal/graphstore"
)

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // diagramIRI -> room
	counts     map[string]int
	store      graphstore.Store
	opts       editor.Options
	register   chan *Client
	unregister chan *Client
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewHub(store graphstore.Store, opts editor.Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:      make(map[string]*Room),
		counts:     make(map[string]int),
		store:      store,
		opts:       opts,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop tears down every room.
func (h *Hub) Stop() {
	h.mu.Lock()
	for iri, room := range h.rooms {
		close(room.done)
		delete(h.rooms, iri)
		delete(h.counts, iri)
	}
	h.mu.Unlock()
	h.cancel()
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DiagramIRI]
	if !ok {
		room = NewRoom(client.DiagramIRI, h.store, h.opts)
		h.rooms[client.DiagramIRI] = room
		go room.run(h.ctx)
	}
	h.counts[client.DiagramIRI]++
	h.mu.Unlock()

	room.inbox <- inbound{sender: client, join: true}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DiagramIRI]
	if !ok {
		h.mu.Unlock()
		return
	}
	h.counts[client.DiagramIRI]--
	empty := h.counts[client.DiagramIRI] <= 0
	if empty {
		delete(h.rooms, client.DiagramIRI)
		delete(h.counts, client.DiagramIRI)
	}
	h.mu.Unlock()

	room.inbox <- inbound{sender: client, leave: true}
	if empty {
		close(room.done)
	}
}

// dispatch forwards a client message to its room's loop.
func (h *Hub) dispatch(sender *Client, msg *Message) {
	h.mu.RLock()
	room, ok := h.rooms[sender.DiagramIRI]
	h.mu.RUnlock()
	if !ok {
		return
	}
	room.inbox <- inbound{sender: sender, msg: msg}
}
