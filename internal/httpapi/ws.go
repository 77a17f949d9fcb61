package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bobby4fischer/pettrack/internal/auth"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleWS upgrades the connection and joins it to its owner's fan-out group.
// Grouping is best-effort: the token from the query string is decoded without
// signature verification, and a missing or malformed token leaves the
// connection open but ungrouped. The channel only ever carries ephemeral
// notifications; the ledger API stays behind verified tokens.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	userID, err := auth.DecodeUnverified(r.URL.Query().Get("token"))
	if err != nil {
		s.logger.Debug("ws_ungrouped", "remote", r.RemoteAddr)
		s.drainUntilClose(conn)
		return
	}

	sub := s.app.Hub.Subscribe(userID)
	defer s.app.Hub.Unsubscribe(userID, sub)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// drainUntilClose keeps an ungrouped connection alive until the peer goes
// away, so clients with stale tokens can reconnect on their own schedule.
func (s *Server) drainUntilClose(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
