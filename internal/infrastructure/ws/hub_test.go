package ws

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/proofdeck/proofdeck/internal/infrastructure/logging"
	"github.com/proofdeck/proofdeck/internal/infrastructure/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Init() {}

func (nopLogger) Debug(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Debugf(string, ...any)                                                         {}
func (nopLogger) Info(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Infof(string, ...any)                                                          {}
func (nopLogger) Warn(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Warnf(string, ...any)                                                          {}
func (nopLogger) Error(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Errorf(string, ...any)                                                         {}
func (nopLogger) Fatal(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Fatalf(string, ...any)                                                         {}

func newTestHub(t *testing.T) (*Hub, *metrics.Broker) {
	t.Helper()
	m := metrics.NewBroker(prometheus.NewRegistry())
	return NewHub(nopLogger{}, m, 8, 0), m
}

func join(t *testing.T, h *Hub, c *Client, projectID string) {
	t.Helper()
	h.HandleEvent(c, Envelope{Event: JoinProject, ProjectID: projectID})
	require.Contains(t, h.Registry().Rooms(c), RoomID(projectID))
}

// awaitMessage blocks, unlike receive: announcements go through the hub's
// fan-out worker and land a moment after Announce returns.
func awaitMessage(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func counterReaches(c prometheus.Counter, want float64) func() bool {
	return func() bool {
		return testutil.ToFloat64(c) == want
	}
}

func TestJoinAndLeaveViaEvents(t *testing.T) {
	h, _ := newTestHub(t)
	c := h.Register(nil)

	h.HandleEvent(c, Envelope{Event: JoinProject, ProjectID: "p1"})
	assert.Equal(t, 1, h.Registry().MemberCount(RoomID("p1")))

	h.HandleEvent(c, Envelope{Event: LeaveProject, ProjectID: "p1"})
	assert.Equal(t, 0, h.Registry().MemberCount(RoomID("p1")))
	assert.Equal(t, 0, h.Registry().RoomCount())
}

func TestJoinWithoutProjectIDRejected(t *testing.T) {
	h, m := newTestHub(t)
	c := h.Register(nil)

	h.HandleEvent(c, Envelope{Event: JoinProject})
	h.HandleEvent(c, Envelope{Event: LeaveProject})

	assert.Equal(t, 0, h.Registry().RoomCount())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsRejected.WithLabelValues("missing_room")))
}

func TestUnknownEventKindRejected(t *testing.T) {
	h, m := newTestHub(t)
	c := h.Register(nil)
	join(t, h, c, "p1")

	h.HandleEvent(c, envelope("formatHardDrive", "p1", map[string]any{}))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsRejected.WithLabelValues("invalid_kind")))
	assertNoMessage(t, c)
}

func TestDispatchExcludesSender(t *testing.T) {
	h, m := newTestHub(t)
	sender := h.Register(nil)
	peer := h.Register(nil)
	outsider := h.Register(nil)

	join(t, h, sender, "p1")
	join(t, h, peer, "p1")
	join(t, h, outsider, "p2")

	h.HandleEvent(sender, envelope(Typing, "p1", TypingPayload{User: "alice", IsTyping: true}))

	assertNoMessage(t, sender)
	assertNoMessage(t, outsider)

	got := receive(t, peer)
	assert.Equal(t, Typing, got.Event)
	assert.Equal(t, "p1", got.ProjectID)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsDispatched.WithLabelValues(Typing)))
	assert.ElementsMatch(t, []string{"alice"}, h.Registry().TypingUsers(RoomID("p1")))
}

func TestDispatchPreservesSendOrder(t *testing.T) {
	h, _ := newTestHub(t)
	sender := h.Register(nil)
	peer := h.Register(nil)

	join(t, h, sender, "p1")
	join(t, h, peer, "p1")

	h.HandleEvent(sender, envelope(Typing, "p1", TypingPayload{User: "alice", IsTyping: true}))
	h.HandleEvent(sender, envelope(Typing, "p1", TypingPayload{User: "alice", IsTyping: false}))

	first := receive(t, peer)
	second := receive(t, peer)
	require.Equal(t, Typing, first.Event)
	assert.True(t, first.Data.(TypingPayload).IsTyping)
	assert.False(t, second.Data.(TypingPayload).IsTyping)
	assertNoMessage(t, sender)
}

func TestDropOnFullDoesNotReorderSurvivors(t *testing.T) {
	m := metrics.NewBroker(prometheus.NewRegistry())
	h := NewHub(nopLogger{}, m, 2, 0)
	sender := h.Register(nil)
	peer := h.Register(nil)

	join(t, h, sender, "p1")
	join(t, h, peer, "p1")

	// Peer's queue holds two; the third overflows and is dropped.
	for _, user := range []string{"u1", "u2", "u3"} {
		h.HandleEvent(sender, envelope(Typing, "p1", TypingPayload{User: user, IsTyping: true}))
	}

	assert.Equal(t, "u1", receive(t, peer).Data.(TypingPayload).User)
	assert.Equal(t, "u2", receive(t, peer).Data.(TypingPayload).User)
	assertNoMessage(t, peer)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MessagesDropped))

	// Delivery resumes in order once the queue has room again.
	h.HandleEvent(sender, envelope(Typing, "p1", TypingPayload{User: "u4", IsTyping: false}))
	assert.Equal(t, "u4", receive(t, peer).Data.(TypingPayload).User)
}

func TestReviewStatusEchoesToSender(t *testing.T) {
	h, _ := newTestHub(t)
	sender := h.Register(nil)
	peer := h.Register(nil)

	join(t, h, sender, "p1")
	join(t, h, peer, "p1")

	h.HandleEvent(sender, envelope(ReviewStatusChanged, "p1", ReviewStatusPayload{
		ReviewID: "r1",
		Status:   "APPROVED",
	}))

	assert.Equal(t, ReviewStatusUpdated, receive(t, sender).Event)
	assert.Equal(t, ReviewStatusUpdated, receive(t, peer).Event)
}

func TestDispatchIntoUnjoinedRoom(t *testing.T) {
	h, m := newTestHub(t)
	c := h.Register(nil)

	// Valid event, but the sender never joined p9 and nobody else exists.
	// Nothing is delivered and nothing blows up.
	h.HandleEvent(c, envelope(Typing, "p9", TypingPayload{User: "alice", IsTyping: true}))

	assertNoMessage(t, c)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.EventsDispatched.WithLabelValues(Typing)))
}

func TestDisconnectCleansUpExactlyOnce(t *testing.T) {
	h, m := newTestHub(t)
	c := h.Register(nil)
	peer := h.Register(nil)

	join(t, h, c, "p1")
	join(t, h, c, "p2")
	join(t, h, peer, "p1")

	require.Equal(t, float64(2), testutil.ToFloat64(m.ConnectionsActive))

	h.Disconnect(c)
	assert.Equal(t, int32(StateClosed), c.State())
	assert.Empty(t, h.Registry().Rooms(c))
	assert.Equal(t, 1, h.Registry().MemberCount(RoomID("p1")))
	assert.Equal(t, 0, h.Registry().MemberCount(RoomID("p2")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ConnectionsActive))

	// Second disconnect is a no-op, not a double-decrement.
	h.Disconnect(c)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ConnectionsActive))
}

func TestEventsAfterDisconnectDropped(t *testing.T) {
	h, _ := newTestHub(t)
	c := h.Register(nil)
	peer := h.Register(nil)

	join(t, h, c, "p1")
	join(t, h, peer, "p1")

	h.Disconnect(c)
	h.HandleEvent(c, envelope(Typing, "p1", TypingPayload{User: "ghost", IsTyping: true}))

	assertNoMessage(t, peer)
}

func TestAnnounceDeliversToAllMembers(t *testing.T) {
	h, m := newTestHub(t)
	a := h.Register(nil)
	b := h.Register(nil)

	join(t, h, a, "p1")
	join(t, h, b, "p1")

	h.Announce("p1", AnnotationAdded, AnnotationAddedPayload{
		ID:         "a1",
		ProjectID:  "p1",
		FileID:     "f1",
		Annotation: "server said so",
	})

	assert.Equal(t, AnnotationAdded, awaitMessage(t, a).Event)
	assert.Equal(t, AnnotationAdded, awaitMessage(t, b).Event)
	assert.Eventually(t, counterReaches(m.Announcements.WithLabelValues("delivered"), 1),
		time.Second, 5*time.Millisecond)
}

func TestAnnounceToEmptyRoomIsSilent(t *testing.T) {
	h, m := newTestHub(t)

	// Must not panic, must not error; the write that triggered it has
	// already succeeded.
	h.Announce("nobody-home", ReviewStatusUpdated, ReviewStatusPayload{ReviewID: "r1", Status: "APPROVED"})

	assert.Eventually(t, counterReaches(m.Announcements.WithLabelValues("no_listeners"), 1),
		time.Second, 5*time.Millisecond)
}

func TestAnnounceQueueFullDrops(t *testing.T) {
	m := metrics.NewBroker(prometheus.NewRegistry())

	// No fan-out worker: the queue only fills, so the overflow path is
	// deterministic.
	h := &Hub{
		registry: NewRegistry(),
		router:   NewRouter(),
		logger:   nopLogger{},
		metrics:  m,
		announce: make(chan announcement, 1),
	}

	h.Announce("p1", AnnotationAdded, AnnotationAddedPayload{ID: "a1"})
	h.Announce("p1", AnnotationAdded, AnnotationAddedPayload{ID: "a2"})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Announcements.WithLabelValues("queue_full")))
	assert.Len(t, h.announce, 1)
}

func TestAnnounceUnknownKindDropped(t *testing.T) {
	h, m := newTestHub(t)
	c := h.Register(nil)
	join(t, h, c, "p1")

	h.Announce("p1", "surpriseEvent", nil)

	assertNoMessage(t, c)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Announcements.WithLabelValues("invalid_kind")))
}
