// Package dashboard is the optional --watch live findings stream
// (supplementary). Near-direct adaptation of the teacher's
// internal/websocket Hub/Client: one long-lived hub broadcasting JSON
// messages to every connected browser tab, renamed from "proxied
// request" events to "finding" events.
package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abendrothj/doppel/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans one scan's Findings out to every connected dashboard
// client.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mutex      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Message is the envelope every dashboard event is wrapped in.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Run drains the hub's register/unregister/broadcast channels until
// ctx is done.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			h.mutex.Unlock()
			log.Printf("dashboard client connected")

		case c := <-h.unregister:
			h.mutex.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.RLock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					log.Printf("dashboard client send buffer full, dropping it")
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// BroadcastFinding pushes one Finding to every connected client.
func (h *Hub) BroadcastFinding(f model.Finding) {
	h.send("finding", f)
}

// BroadcastDone signals a completed scan (final summary can be drawn
// client-side from the findings already streamed). scanID correlates
// the event with the run that produced it, for a dashboard watching
// more than one scan over its lifetime.
func (h *Hub) BroadcastDone(scanID string) {
	h.send("done", map[string]string{"scan_id": scanID})
}

func (h *Hub) send(kind string, data interface{}) {
	msg := Message{Type: kind, Data: data, Timestamp: time.Now().Unix()}
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Printf("dashboard: failed to marshal %s message: %v", kind, err)
		return
	}
	h.mutex.RLock()
	has := len(h.clients) > 0
	h.mutex.RUnlock()
	if has {
		h.broadcast <- raw
	}
}

// ServeWS upgrades an HTTP request to a dashboard websocket
// connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade failed: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	c.hub.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("dashboard: readPump error: %v", err)
			}
			break
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
