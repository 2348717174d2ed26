package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(nil, 8)
}

func receive(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	default:
		t.Fatal("expected a queued message, got none")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("expected no message, got %q", msg.Event)
	default:
	}
}

func TestRoomID(t *testing.T) {
	assert.Equal(t, "project-42", RoomID("42"))
}

func TestJoinCreatesRoomLazily(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(t)

	assert.Equal(t, 0, r.RoomCount())

	require.True(t, r.Join(c, RoomID("p1")))
	assert.Equal(t, 1, r.RoomCount())
	assert.Equal(t, 1, r.MemberCount(RoomID("p1")))
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(t)

	require.True(t, r.Join(c, RoomID("p1")))
	assert.False(t, r.Join(c, RoomID("p1")))
	assert.Equal(t, 1, r.MemberCount(RoomID("p1")))
	assert.Len(t, r.Rooms(c), 1)
}

func TestRoomDeletedWhenLastMemberLeaves(t *testing.T) {
	r := NewRegistry()
	a := newTestClient(t)
	b := newTestClient(t)

	r.Join(a, RoomID("p1"))
	r.Join(b, RoomID("p1"))

	r.Leave(a, RoomID("p1"))
	assert.Equal(t, 1, r.RoomCount())

	r.Leave(b, RoomID("p1"))
	assert.Equal(t, 0, r.RoomCount())
	assert.Equal(t, 0, r.MemberCount(RoomID("p1")))
}

func TestLeaveUnknownRoomIsNoop(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(t)

	r.Leave(c, RoomID("nope"))
	assert.Equal(t, 0, r.RoomCount())
}

func TestRemoveAllLeavesEveryRoom(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(t)
	other := newTestClient(t)

	r.Join(c, RoomID("p1"))
	r.Join(c, RoomID("p2"))
	r.Join(other, RoomID("p2"))

	left := r.RemoveAll(c)
	assert.ElementsMatch(t, []string{RoomID("p1"), RoomID("p2")}, left)
	assert.Empty(t, r.Rooms(c))

	// p1 had no other members and is gone; p2 survives with the other
	// client in it.
	assert.Equal(t, 1, r.RoomCount())
	assert.Equal(t, 1, r.MemberCount(RoomID("p2")))
}

func TestMembersExcludingOmitsSender(t *testing.T) {
	r := NewRegistry()
	a := newTestClient(t)
	b := newTestClient(t)

	r.Join(a, RoomID("p1"))
	r.Join(b, RoomID("p1"))

	members := r.MembersExcluding(RoomID("p1"), a.ID)
	require.Len(t, members, 1)
	assert.Equal(t, b.ID, members[0].ID)

	assert.Len(t, r.AllMembers(RoomID("p1")), 2)
}

func TestBroadcastExcludeSender(t *testing.T) {
	r := NewRegistry()
	a := newTestClient(t)
	b := newTestClient(t)
	c := newTestClient(t)

	r.Join(a, RoomID("p1"))
	r.Join(b, RoomID("p1"))
	r.Join(c, RoomID("p1"))

	msg := &Message{Event: Typing, ProjectID: "p1"}
	delivered, dropped, err := r.Broadcast(RoomID("p1"), msg, ExcludeSender, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 0, dropped)

	assertNoMessage(t, a)
	assert.Equal(t, Typing, receive(t, b).Event)
	assert.Equal(t, Typing, receive(t, c).Event)
}

func TestBroadcastIncludeAll(t *testing.T) {
	r := NewRegistry()
	a := newTestClient(t)
	b := newTestClient(t)

	r.Join(a, RoomID("p1"))
	r.Join(b, RoomID("p1"))

	msg := &Message{Event: ReviewStatusUpdated, ProjectID: "p1"}
	delivered, _, err := r.Broadcast(RoomID("p1"), msg, IncludeAll, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	receive(t, a)
	receive(t, b)
}

func TestBroadcastUnknownRoom(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Broadcast(RoomID("ghost"), &Message{Event: Typing}, IncludeAll, "")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestBroadcastRoomIsolation(t *testing.T) {
	r := NewRegistry()
	a := newTestClient(t)
	b := newTestClient(t)

	r.Join(a, RoomID("p1"))
	r.Join(b, RoomID("p2"))

	_, _, err := r.Broadcast(RoomID("p1"), &Message{Event: Typing, ProjectID: "p1"}, IncludeAll, "")
	require.NoError(t, err)

	receive(t, a)
	assertNoMessage(t, b)
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	r := NewRegistry()
	slow := NewClient(nil, 1)
	r.Join(slow, RoomID("p1"))

	msg := &Message{Event: Typing, ProjectID: "p1"}

	delivered, dropped, err := r.Broadcast(RoomID("p1"), msg, IncludeAll, "")
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 0, dropped)

	// Buffer of one is now full; the next delivery is dropped instead of
	// blocking the broadcast.
	delivered, dropped, err = r.Broadcast(RoomID("p1"), msg, IncludeAll, "")
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
	assert.Equal(t, 1, dropped)
}

func TestTypingFlags(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(t)
	r.Join(c, RoomID("p1"))

	r.SetTyping(RoomID("p1"), "alice", true)
	r.SetTyping(RoomID("p1"), "bob", true)
	assert.ElementsMatch(t, []string{"alice", "bob"}, r.TypingUsers(RoomID("p1")))

	r.SetTyping(RoomID("p1"), "alice", false)
	assert.Equal(t, []string{"bob"}, r.TypingUsers(RoomID("p1")))

	// Typing state dies with the room.
	r.Leave(c, RoomID("p1"))
	assert.Empty(t, r.TypingUsers(RoomID("p1")))
}
