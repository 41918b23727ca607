package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Event names pushed to session subscribers.
const (
	EventSessionOpened    = "session_opened"
	EventSessionClosed    = "session_closed"
	EventCheckinRecorded  = "checkin_recorded"
	EventRosterUpdated    = "roster_updated"
	EventQuestionShown    = "question_shown"
	EventQuestionHidden   = "question_hidden"
	EventAnswerSubmitted  = "answer_submitted"
	EventParticipantCount = "participant_count"
)

// ParticipantChangeHandler is called when the connected count for a session
// changes (e.g. for peak tracking).
type ParticipantChangeHandler func(sessionID uuid.UUID, count int)

// PresenceLogger records joins and leaves for the session presence log.
type PresenceLogger interface {
	ClientJoined(sessionID, userID uuid.UUID)
	ClientLeft(sessionID, userID uuid.UUID)
}

// Hub maintains session_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// sessionID -> map[clientID]*Client
	sessions      map[uuid.UUID]map[string]*Client
	subs          map[uuid.UUID]func() // cancel Redis subscription per session
	mu            sync.RWMutex
	logger        *zap.Logger
	redis         RedisPublisher
	redisSub      RedisSubscriber
	onParticipant ParticipantChangeHandler
	presence      PresenceLogger
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishSessionEvent(sessionID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to session channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSession(sessionID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetParticipantChangeHandler sets the callback for participant count changes.
func (h *Hub) SetParticipantChangeHandler(fn ParticipantChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onParticipant = fn
}

// SetPresenceLogger sets the presence log sink for joins and leaves.
func (h *Hub) SetPresenceLogger(p PresenceLogger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presence = p
}

// Register adds a client to a session room. Starts Redis subscription for
// this session if it is the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sessions[c.SessionID] == nil {
		h.sessions[c.SessionID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeSession(c.SessionID, func(event string, payload []byte) {
				h.BroadcastToSession(c.SessionID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.SessionID] = cancel
			}
		}
	}
	h.sessions[c.SessionID][c.ID] = c
	count := len(h.sessions[c.SessionID])
	onParticipant := h.onParticipant
	presence := h.presence
	h.mu.Unlock()
	if onParticipant != nil {
		onParticipant(c.SessionID, count)
	}
	if presence != nil {
		presence.ClientJoined(c.SessionID, c.UserID)
	}
	h.logger.Debug("client joined session", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// Unregister removes a client from a session room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.sessions[c.SessionID]; ok {
		delete(m, c.ID)
		count = len(m)
		if count == 0 {
			delete(h.sessions, c.SessionID)
			if cancel, ok := h.subs[c.SessionID]; ok {
				cancel()
				delete(h.subs, c.SessionID)
			}
		}
	}
	onParticipant := h.onParticipant
	presence := h.presence
	h.mu.Unlock()
	if onParticipant != nil && count > 0 {
		onParticipant(c.SessionID, count)
	}
	if presence != nil {
		presence.ClientLeft(c.SessionID, c.UserID)
	}
	h.logger.Debug("client left session", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// BroadcastToSession sends a message to all clients in a session (local only).
func (h *Hub) BroadcastToSession(sessionID uuid.UUID, event string, payload interface{}) {
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

	// Snapshot the room under the lock; Register/Unregister mutate the
	// inner map concurrently.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToSessionAndPublish sends to local clients and publishes to Redis
// for other instances.
func (h *Hub) BroadcastToSessionAndPublish(sessionID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.BroadcastToSession(sessionID, event, payload)
	if h.redis != nil {
		_ = h.redis.PublishSessionEvent(sessionID, event, data)
	}
}

// PublishToSessionOnly publishes to Redis only (no local broadcast), so the
// Redis subscriber callback performs the broadcast once for all instances
// including this one, avoiding duplicate delivery to local clients. Falls
// back to a local broadcast when Redis is not wired.
func (h *Hub) PublishToSessionOnly(sessionID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishSessionEvent(sessionID, event, data)
		return
	}
	h.BroadcastToSession(sessionID, event, payload)
}

// ParticipantCount returns the number of connected clients in a session.
func (h *Hub) ParticipantCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// SendToClient sends a message to a single client in a session.
func (h *Hub) SendToClient(sessionID uuid.UUID, clientID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	clients := h.sessions[sessionID]
	c, ok := clients[clientID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
