package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// broadcastWriteWait bounds how long one stalled dashboard connection can
// hold up a broadcast; a connection that cannot take the write in time is
// dropped like any other dead client.
const broadcastWriteWait = 5 * time.Second

// ClientManager tracks connected admin dashboard clients and broadcasts
// newly captured leads to them.
type ClientManager struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewClientManager() *ClientManager {
	return &ClientManager{clients: make(map[*websocket.Conn]bool)}
}

func (c *ClientManager) Add(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[conn] = true
	log.Printf("admin dashboard client connected (total: %d)", len(c.clients))
}

func (c *ClientManager) Remove(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.clients[conn]; ok {
		delete(c.clients, conn)
		conn.Close()
		log.Printf("admin dashboard client disconnected (total: %d)", len(c.clients))
	}
}

func (c *ClientManager) Broadcast(msg interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadClients := []*websocket.Conn{}
	for conn := range c.clients {
		conn.SetWriteDeadline(time.Now().Add(broadcastWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			deadClients = append(deadClients, conn)
		}
	}

	for _, conn := range deadClients {
		delete(c.clients, conn)
		conn.Close()
	}
}

// handleAdminSocket upgrades an authenticated admin dashboard connection.
// The route sits behind the session guard; the upgrader additionally checks
// the origin against the CORS allow-list.
func (s *Server) handleAdminSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Same-origin browser requests carry no Origin header.
			return origin == "" || s.origins.Allowed(origin)
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	s.clients.Add(conn)

	go func() {
		defer s.clients.Remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
