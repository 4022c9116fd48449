package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/motohub/core/internal/models"
	pkgredis "github.com/motohub/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

func NewHub(rc *pkgredis.Client, logger *zap.Logger, validator TokenValidator) *Hub {
	sio := socketio.NewServer(nil, nil)
	h := &Hub{
		sidRoom:    make(map[string]string),
		roomCount:  make(map[string]int),
		broadcast:  make(chan Message, 256),
		register:   make(chan clientMeta, 256),
		unregister: make(chan clientMeta, 256),
		rc:         rc,
		logger:     logger,
		sio:        sio,
		validator:  validator,
	}
	h.registerNamespace()
	return h
}

// Run starts the hub loop and the Redis subscriber.
func (h *Hub) Run(ctx context.Context) {
	go h.subscribeRedis(ctx)

	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case msg := <-h.broadcast:
			h.deliver(msg)
			h.fanOut(ctx, msg)
		}
	}
}

func (h *Hub) registerClient(c clientMeta) {
	h.mu.Lock()
	if oldRoom, ok := h.sidRoom[c.sid]; ok {
		if oldRoom == c.room {
			h.mu.Unlock()
			return
		}
		if h.roomCount[oldRoom] > 0 {
			h.roomCount[oldRoom]--
		}
	}
	h.sidRoom[c.sid] = c.room
	h.roomCount[c.room]++
	online := h.roomCount[RoomPublic]
	h.mu.Unlock()

	if c.room == RoomPublic {
		h.BroadcastPublic("VISITOR_ONLINE", onlinePayload(online))
	}
}

func (h *Hub) unregisterClient(c clientMeta) {
	h.mu.Lock()
	room, ok := h.sidRoom[c.sid]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sidRoom, c.sid)
	if h.roomCount[room] > 0 {
		h.roomCount[room]--
	}
	online := h.roomCount[RoomPublic]
	h.mu.Unlock()

	if room == RoomPublic {
		h.BroadcastPublic("VISITOR_OFFLINE", onlinePayload(online))
	}
}

func onlinePayload(online int) map[string]interface{} {
	return map[string]interface{}{
		"online":    online,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// fanOut republishes a hub message so sibling instances deliver it too.
func (h *Hub) fanOut(ctx context.Context, msg Message) {
	if h.rc == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := h.rc.Publish(ctx, redisChanBus, string(data)); err != nil && h.logger != nil {
		h.logger.Warn("gateway publish failed", zap.Error(err))
	}
}

// subscribeRedis listens for broadcasts from other server instances.
func (h *Hub) subscribeRedis(ctx context.Context) {
	if h.rc == nil {
		return
	}
	pubsub := h.rc.Subscribe(ctx, redisChanBus)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg Message) {
	ns := h.sio.Of(namespaceWeb, nil)
	payload := gatewayPayload{Type: msg.Event, Data: msg.Payload}

	switch msg.Room {
	case "", RoomPublic:
		ns.Emit("message", payload)
	default:
		ns.To(socketio.Room(msg.Room)).Emit("message", payload)
	}
}

// BroadcastPublic sends an event to every connected client.
func (h *Hub) BroadcastPublic(event string, payload interface{}) {
	h.broadcast <- Message{Event: event, Payload: payload, Room: RoomPublic}
}

// NotifyUser sends an event to all sockets of one authenticated user.
func (h *Hub) NotifyUser(userID, event string, payload interface{}) {
	if userID == "" {
		return
	}
	h.broadcast <- Message{Event: event, Payload: payload, Room: userRoomPrefix + userID}
}

// AlertCreated implements the alert notifier: new hazards go to everyone.
func (h *Hub) AlertCreated(a *models.AlertDocument) {
	h.BroadcastPublic(EventAlertCreate, a)
}

// AlertUpdated pushes vote or status changes on an existing alert.
func (h *Hub) AlertUpdated(a *models.AlertDocument) {
	h.BroadcastPublic(EventAlertUpdate, a)
}

// BookingChanged implements the booking notifier: status updates go to the
// affected rider or owner.
func (h *Hub) BookingChanged(userID string, b *models.BookingModel) {
	h.NotifyUser(userID, EventBookingStatus, b)
}

// ClientCount returns the number of connected clients, optionally per room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room == "" {
		return len(h.sidRoom)
	}
	return h.roomCount[room]
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}
