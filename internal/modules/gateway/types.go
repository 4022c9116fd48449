package gateway

import (
	"sync"

	pkgredis "github.com/motohub/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	RoomPublic     = "public"
	userRoomPrefix = "user:"
	namespaceWeb   = "/web"
	redisChanBus   = "moto:gateway:bus"
)

// Realtime event names pushed to clients.
const (
	EventAlertCreate   = "ALERT_CREATE"
	EventAlertUpdate   = "ALERT_UPDATE"
	EventBookingStatus = "BOOKING_STATUS"
)

// Message is the envelope used by hub broadcasts and Redis fan-out.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room,omitempty"`
}

type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clientMeta struct {
	sid  string
	room string
}

// TokenValidator resolves a handshake token to a user ID.
type TokenValidator func(token string) (userID string, ok bool)

// Hub manages the socket.io namespace and cross-instance fan-out.
type Hub struct {
	mu sync.RWMutex

	sidRoom   map[string]string
	roomCount map[string]int

	broadcast  chan Message
	register   chan clientMeta
	unregister chan clientMeta

	rc        *pkgredis.Client
	logger    *zap.Logger
	sio       *socketio.Server
	validator TokenValidator
}
