package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	// The server binds to loopback by default; renderers connect from
	// file:// or dev-server origins, so origin checking buys nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS streams frame snapshots to a renderer at the server's frame
// rate. Each connection gets its own ticker; a slow consumer only stalls
// itself.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Drain (and discard) client messages so pings and close frames are
	// processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := time.Second / time.Duration(s.frameHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(2 * interval))
			if err := conn.WriteJSON(s.sim.Frame()); err != nil {
				return
			}
		}
	}
}
