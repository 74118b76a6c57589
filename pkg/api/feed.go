package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	feedWriteTimeout = 10 * time.Second
	feedPingInterval = 30 * time.Second
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is CORS-open, so the feed is too.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleFeed streams document events to a WebSocket client. Each event is
// one JSON message; slow clients miss events rather than block ingestion.
func (s *Server) HandleFeed(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Feed unavailable", "Realtime feed is not enabled")
		return
	}

	conn, err := feedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("feed upgrade failed: %v", err)
		return
	}

	id, events := s.hub.Register()
	defer s.hub.Unregister(id)
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Debugf("closing feed connection: %v", err)
		}
	}()

	// Drain client frames so close messages and pongs are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debugf("feed write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
