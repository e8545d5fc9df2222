package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/agoradev/agora/pkg/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket authenticates the token query parameter, upgrades the
// connection and registers it with the hub. The read loop exists to detect
// disconnects; client frames are answered with a small ack so the socket can
// double as a heartbeat.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized", "Token query parameter required")
		return
	}

	user, err := s.services.Auth.Authenticate(r.Context(), token)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade for user %d: %v", user.ID, err)
		return
	}

	sender := realtime.NewWSConn(conn)
	s.hub.Connect(sender, user.ID)
	s.logger.Debugf("user %d connected (%d sockets total)", user.ID, s.hub.ConnectionCount())

	defer func() {
		s.hub.Disconnect(sender)
		_ = sender.Close()
		s.logger.Debugf("user %d disconnected", user.ID)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if err := sender.Send(map[string]string{"message": "Received"}); err != nil {
			return
		}
	}
}
