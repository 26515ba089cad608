package handlers

import (
	"context"
	"net/http"
	"time"

	"rfpmarket/internal/ws"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// WebSocketHandler upgrades the connection and waits for the client's
// auth frame. The identity comes strictly from the session cookie on the
// upgrade request; a connection that cannot authenticate is closed with
// 1008 and never registered in the hub.
func (h *Handler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	var frame struct {
		Type string `json:"type"`
	}
	readCtx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	err = wsjson.Read(readCtx, conn, &frame)
	cancel()
	if err != nil || frame.Type != "auth" {
		_ = conn.Close(websocket.StatusPolicyViolation, "auth required")
		return
	}

	sess, err := h.Sessions.SessionFromRequest(r)
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "invalid session")
		return
	}

	writeCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	err = wsjson.Write(writeCtx, conn, ws.Event{Type: "auth_success"})
	cancel()
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "write failed")
		return
	}

	client := h.Hub.AddClient(sess.UserID, conn)
	defer h.Hub.RemoveClient(client)

	h.Log.Debug(r.Context(), "websocket connected", "userId", sess.UserID)

	// Push-only from here on; CloseRead still services control frames.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
}
