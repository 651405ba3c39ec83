package ws

import (
	"log/slog"
	"net/http"

	wslib "github.com/coder/websocket"
)

// Handler returns an HTTP handler that upgrades connections to WebSocket
// and runs them as feed clients.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wslib.Accept(w, r, &wslib.AcceptOptions{
			InsecureSkipVerify: true, // clients connect from app webviews on varied origins
		})
		if err != nil {
			logger.Error("feed accept", "error", err)
			return
		}

		client := NewClient(hub, conn)
		client.Run(r.Context())
	}
}
