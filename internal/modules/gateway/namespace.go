package gateway

import (
	"strings"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

func (h *Hub) registerNamespace() {
	webNS := h.sio.Of(namespaceWeb, nil)
	_ = webNS.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}
		sid := string(client.Id())

		// Anonymous clients still get public broadcasts; a valid token
		// additionally joins the per-user room for booking updates.
		if token := normalizeToken(extractToken(client)); token != "" && h.validator != nil {
			if userID, ok := h.validator(token); ok {
				client.Join(socketio.Room(userRoomPrefix + userID))
			}
		}

		h.register <- clientMeta{sid: sid, room: RoomPublic}
		_ = client.Emit("message", gatewayPayload{Type: "GATEWAY_CONNECT", Data: "WebSocket connected"})

		_ = client.On("disconnect", func(_ ...any) {
			h.unregister <- clientMeta{sid: sid, room: RoomPublic}
		})
	})
}

func extractToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	if token := firstValueFromMultiMap(handshake.Query, "token"); token != "" {
		return token
	}
	return firstValueFromMultiMap(handshake.Headers, "authorization")
}

func firstValueFromMultiMap(values map[string][]string, key string) string {
	if len(values) == 0 {
		return ""
	}
	for k, list := range values {
		if !strings.EqualFold(strings.TrimSpace(k), key) || len(list) == 0 {
			continue
		}
		v := strings.TrimSpace(list[0])
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
