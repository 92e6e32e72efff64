package api

import (
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/matheodrd/httphelper/handler"
)

// wsHandler admits real-time connections. The token goes through the
// auth gate before any registry state exists: an unauthenticated
// connection is rejected without ever joining a cell.
func (s *Server) wsHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		user, err := s.gate.Resolve(r.Context(), token)
		if err != nil {
			return writeError(w, http.StatusUnauthorized, "invalid or missing token")
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, fmt.Errorf("websocket accept: %w", err))
		}

		client, err := s.registry.Admit(user.ID, conn)
		if err != nil {
			_ = conn.Close(websocket.StatusPolicyViolation, "admission refused")
			return nil
		}
		client.Start()
		return nil
	})
}
