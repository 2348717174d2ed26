package ws

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/proofdeck/proofdeck/internal/infrastructure/logging"
	"github.com/proofdeck/proofdeck/internal/infrastructure/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub owns the set of live connections and is the single entry point for
// everything that touches rooms: connection lifecycle, client event
// dispatch, and server-originated announcements. Constructed once at
// startup and passed by reference to handlers; there is no package-level
// instance.
type Hub struct {
	registry *Registry
	router   *Router
	logger   logging.Logger
	metrics  *metrics.Broker

	sendBuffer int
	announce   chan announcement
}

// announcement is one server-originated event waiting for fan-out.
type announcement struct {
	roomID string
	msg    *Message
}

func NewHub(logger logging.Logger, brokerMetrics *metrics.Broker, sendBuffer, announceBuffer int) *Hub {
	if announceBuffer <= 0 {
		announceBuffer = 256
	}

	h := &Hub{
		registry:   NewRegistry(),
		router:     NewRouter(),
		logger:     logger,
		metrics:    brokerMetrics,
		sendBuffer: sendBuffer,
		announce:   make(chan announcement, announceBuffer),
	}

	go h.drainAnnouncements()

	return h
}

// Registry exposes the room registry for read-side consumers (stats,
// tests). Mutation goes through the hub.
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Register creates a Client for a freshly-upgraded transport connection.
// No room side effects; the client joins rooms through join-project.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := NewClient(conn, h.sendBuffer)

	h.metrics.ConnectionsActive.Inc()
	h.logger.Info(logging.Broker, logging.Connection, "connection registered", map[logging.ExtraKey]any{
		logging.ConnectionID: c.ID,
	})

	return c
}

// HandleEvent processes one decoded envelope from a client connection.
// Invalid events are dropped and logged; they never tear down the
// connection or affect other clients.
func (h *Hub) HandleEvent(c *Client, env Envelope) {
	if c.State() != StateOpen {
		return
	}

	switch env.Event {
	case JoinProject:
		if env.ProjectID == "" {
			h.reject(c, env, ErrMissingRoomID)
			return
		}
		h.Join(c, env.ProjectID)
	case LeaveProject:
		if env.ProjectID == "" {
			h.reject(c, env, ErrMissingRoomID)
			return
		}
		h.Leave(c, env.ProjectID)
	default:
		h.dispatch(c, env)
	}
}

// Join adds the connection to a project's room. Idempotent.
func (h *Hub) Join(c *Client, projectID string) {
	roomID := RoomID(projectID)
	if !h.registry.Join(c, roomID) {
		return
	}

	h.metrics.RoomsActive.Set(float64(h.registry.RoomCount()))
	h.logger.Info(logging.Broker, logging.RoomState, "connection joined room", map[logging.ExtraKey]any{
		logging.ConnectionID: c.ID,
		logging.RoomID:       roomID,
	})
}

// Leave removes the connection from a project's room. Idempotent.
func (h *Hub) Leave(c *Client, projectID string) {
	roomID := RoomID(projectID)
	h.registry.Leave(c, roomID)

	h.metrics.RoomsActive.Set(float64(h.registry.RoomCount()))
	h.logger.Info(logging.Broker, logging.RoomState, "connection left room", map[logging.ExtraKey]any{
		logging.ConnectionID: c.ID,
		logging.RoomID:       roomID,
	})
}

// Disconnect tears down a connection: state goes open → closing → closed,
// membership is removed from every room, and empty rooms are deleted.
// Safe to call multiple times; cleanup runs exactly once.
func (h *Hub) Disconnect(c *Client) {
	if !c.beginClose() {
		return
	}

	left := h.registry.RemoveAll(c)
	c.finishClose()

	h.metrics.ConnectionsActive.Dec()
	h.metrics.RoomsActive.Set(float64(h.registry.RoomCount()))
	h.logger.Info(logging.Broker, logging.Connection, "connection closed", map[logging.ExtraKey]any{
		logging.ConnectionID: c.ID,
		logging.RoomID:       left,
	})
}

func (h *Hub) dispatch(c *Client, env Envelope) {
	msg, policy, err := h.router.Route(env)
	if err != nil {
		h.reject(c, env, err)
		return
	}

	roomID := RoomID(env.ProjectID)

	// Typing flags live on the room so late observers can query them.
	if typing, ok := msg.Data.(TypingPayload); ok {
		h.registry.SetTyping(roomID, typing.User, typing.IsTyping)
	}

	_, dropped, err := h.registry.Broadcast(roomID, msg, policy, c.ID)
	if err != nil {
		// Sender emitted into a room it never joined; nothing to deliver.
		h.logger.Debug(logging.Broker, logging.Dispatch, "broadcast into unknown room", map[logging.ExtraKey]any{
			logging.ConnectionID: c.ID,
			logging.RoomID:       roomID,
			logging.EventKind:    env.Event,
		})
		return
	}

	h.metrics.EventsDispatched.WithLabelValues(msg.Event).Inc()
	if dropped > 0 {
		h.metrics.MessagesDropped.Add(float64(dropped))
		h.logger.Warnf("dropped %d deliveries in room %s: client buffers full", dropped, roomID)
	}
}

func (h *Hub) reject(c *Client, env Envelope, err error) {
	reason := "malformed"
	switch {
	case errors.Is(err, ErrInvalidEventKind):
		reason = "invalid_kind"
	case errors.Is(err, ErrMissingRoomID):
		reason = "missing_room"
	}

	h.metrics.EventsRejected.WithLabelValues(reason).Inc()
	h.logger.Warn(logging.Broker, logging.Dispatch, "event rejected", map[logging.ExtraKey]any{
		logging.ConnectionID: c.ID,
		logging.EventKind:    env.Event,
		logging.ErrorMessage: err.Error(),
	})
}

// Announce injects a server-originated event into a project's room,
// delivered to all members (there is no sender to exclude). Best-effort by
// contract: the caller's database write has already committed, and a
// missed announcement only means nobody was listening. The event is queued
// for the fan-out worker; Announce never blocks and never returns an error,
// a full queue drops the announcement.
func (h *Hub) Announce(projectID, event string, data any) {
	if !h.router.Known(event) && !isBroadcastKind(event) {
		h.metrics.Announcements.WithLabelValues("invalid_kind").Inc()
		h.logger.Warnf("announce with unknown event kind %q dropped", event)
		return
	}

	msg := &Message{
		Event:     event,
		ProjectID: projectID,
		Data:      data,
	}

	select {
	case h.announce <- announcement{roomID: RoomID(projectID), msg: msg}:
	default:
		h.metrics.Announcements.WithLabelValues("queue_full").Inc()
		h.logger.Warnf("announce queue full, dropping %q for room %s", event, RoomID(projectID))
	}
}

// drainAnnouncements is the single fan-out worker, so queued announcements
// for a room go out in the order they were enqueued.
func (h *Hub) drainAnnouncements() {
	for ann := range h.announce {
		h.fanOut(ann)
	}
}

func (h *Hub) fanOut(ann announcement) {
	delivered, dropped, err := h.registry.Broadcast(ann.roomID, ann.msg, IncludeAll, "")
	if err != nil {
		h.metrics.Announcements.WithLabelValues("no_listeners").Inc()
		h.logger.Debug(logging.Broker, logging.Announce, "announcement had no listeners", map[logging.ExtraKey]any{
			logging.RoomID:    ann.roomID,
			logging.EventKind: ann.msg.Event,
		})
		return
	}

	h.metrics.Announcements.WithLabelValues("delivered").Inc()
	if dropped > 0 {
		h.metrics.MessagesDropped.Add(float64(dropped))
	}

	h.logger.Debug(logging.Broker, logging.Announce, "announcement delivered", map[logging.ExtraKey]any{
		logging.RoomID:    ann.roomID,
		logging.EventKind: ann.msg.Event,
		"delivered":       delivered,
	})
}

func isBroadcastKind(event string) bool {
	switch event {
	case AnnotationAdded, AnnotationResolved, AnnotationReplyAdded,
		AnnotationStatusUpdated, StatusChanged, ReviewStatusUpdated,
		ElementStatusChangedEvnt:
		return true
	}
	return false
}
