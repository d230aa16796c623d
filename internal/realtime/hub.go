package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains tenant_id -> set of connections and broadcasts activity
// events. Uses Redis pub/sub for horizontal scaling: local broadcast +
// publish to Redis.
type Hub struct {
	// tenantID -> map[clientID]*Client
	tenants  map[int64]map[string]*Client
	subs     map[int64]func() // cancel Redis subscription per tenant
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishTenantEvent(tenantID int64, event string, payload []byte) error
}

// RedisSubscriber subscribes to tenant channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeTenant(tenantID int64, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		tenants:  make(map[int64]map[string]*Client),
		subs:     make(map[int64]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its tenant room. Starts the Redis subscription
// for the tenant when the first client connects.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.tenants[c.TenantID] == nil {
		h.tenants[c.TenantID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeTenant(c.TenantID, func(event string, payload []byte) {
				h.Broadcast(c.TenantID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.TenantID] = cancel
			}
		}
	}
	h.tenants[c.TenantID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined activity feed",
		zap.String("client_id", c.ID), zap.Int64("tenant_id", c.TenantID))
}

// Unregister removes a client from its tenant room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.tenants[c.TenantID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.tenants, c.TenantID)
			if cancel, ok := h.subs[c.TenantID]; ok {
				cancel()
				delete(h.subs, c.TenantID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left activity feed",
		zap.String("client_id", c.ID), zap.Int64("tenant_id", c.TenantID))
}

// Broadcast sends a message to all clients of a tenant (local only).
func (h *Hub) Broadcast(tenantID int64, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.tenants[tenantID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish sends an event to local clients and publishes it to Redis for
// other instances. Handlers call this after writes.
func (h *Hub) Publish(tenantID int64, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.Broadcast(tenantID, event, payload)
	if h.redis != nil {
		_ = h.redis.PublishTenantEvent(tenantID, event, data)
	}
}

// AudienceCount returns the number of connected clients for a tenant.
func (h *Hub) AudienceCount(tenantID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants[tenantID])
}
