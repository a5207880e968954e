// Package websocket pushes bus events to the connected sessions of their
// recipients.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"forum-backend/internal/event"
)

var ErrHubClosed = errors.New("notification hub is closed")

type Hub struct {
	// Connected clients keyed by user id.
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	bus      event.Bus
	upgrader websocket.Upgrader
}

// NewHub builds a hub fed by bus. allowedOrigins follows the CORS setting:
// "*" accepts any origin and an empty list only same-origin requests.
func NewHub(bus event.Bus, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		bus:        bus,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Run routes events until ctx is done. ready, when not nil, is closed once
// the bus subscription is live.
func (h *Hub) Run(ctx context.Context, ready chan<- struct{}) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()
	defer close(h.done)
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = map[string]map[*Client]struct{}{}
			return
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			h.remove(client)
		case e, ok := <-events:
			if !ok {
				return
			}
			h.deliver(e)
		}
	}
}

func (h *Hub) deliver(e event.Event) {
	set := h.clients[e.RecipientID]
	if len(set) == 0 {
		return
	}

	message, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event", "error", err)
		return
	}

	for client := range set {
		select {
		case client.send <- message:
		default:
			slog.Warn("dropping slow websocket client", "user_id", client.userID)
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

// Serve upgrades the request and streams events addressed to userID until
// either side goes away. The upgrader has already answered the client when
// an upgrade error is returned.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return ErrHubClosed
	}

	go client.writePump()
	go client.readPump()
	return nil
}
