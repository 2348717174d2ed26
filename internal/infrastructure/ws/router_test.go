package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *Router {
	rt := NewRouter()
	rt.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	rt.newID = func() string {
		return "fixed-id"
	}
	return rt
}

func envelope(event, projectID string, data any) Envelope {
	raw, _ := json.Marshal(data)
	return Envelope{Event: event, ProjectID: projectID, Data: raw}
}

func TestRouteUnknownKind(t *testing.T) {
	rt := newTestRouter()

	_, _, err := rt.Route(envelope("deleteEverything", "p1", map[string]any{}))
	assert.ErrorIs(t, err, ErrInvalidEventKind)
}

func TestRouteMissingProjectID(t *testing.T) {
	rt := newTestRouter()

	_, _, err := rt.Route(envelope(Typing, "", TypingPayload{User: "alice"}))
	assert.ErrorIs(t, err, ErrMissingRoomID)
}

func TestRouteMalformedPayload(t *testing.T) {
	rt := newTestRouter()

	_, _, err := rt.Route(Envelope{Event: Typing, ProjectID: "p1", Data: json.RawMessage(`"not an object"`)})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestRouteRejectsIncompletePayload(t *testing.T) {
	rt := newTestRouter()

	cases := map[string]Envelope{
		"annotation without file": envelope(AddAnnotation, "p1", AnnotationAddedPayload{Annotation: "looks off"}),
		"resolve without id":      envelope(ResolveAnnotation, "p1", AnnotationResolvedPayload{ResolvedBy: "alice"}),
		"reply without content":   envelope(AddAnnotationReply, "p1", AnnotationReplyAddedPayload{AnnotationID: "a1"}),
		"status without status":   envelope(AnnotationStatusChanged, "p1", AnnotationStatusPayload{AnnotationID: "a1"}),
		"element without id":      envelope(UpdateElementStatus, "p1", ElementStatusPayload{Status: "APPROVED"}),
		"review without status":   envelope(ReviewStatusChanged, "p1", ReviewStatusPayload{ReviewID: "r1"}),
		"typing without user":     envelope(Typing, "p1", TypingPayload{IsTyping: true}),
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := rt.Route(env)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestRouteRenamesAndSetsPolicy(t *testing.T) {
	rt := newTestRouter()

	cases := []struct {
		inbound  string
		data     any
		outbound string
		policy   Policy
	}{
		{AddAnnotation, AnnotationAddedPayload{FileID: "f1", Annotation: "shift this left"}, AnnotationAdded, ExcludeSender},
		{ResolveAnnotation, AnnotationResolvedPayload{AnnotationID: "a1"}, AnnotationResolved, ExcludeSender},
		{AddAnnotationReply, AnnotationReplyAddedPayload{AnnotationID: "a1", Reply: ReplyPayload{Content: "agreed"}}, AnnotationReplyAdded, ExcludeSender},
		{AnnotationStatusChanged, AnnotationStatusPayload{AnnotationID: "a1", Status: "IN_PROGRESS"}, AnnotationStatusUpdated, ExcludeSender},
		{UpdateElementStatus, ElementStatusPayload{ElementID: "e1", Status: "APPROVED"}, StatusChanged, ExcludeSender},
		{ReviewStatusChanged, ReviewStatusPayload{ReviewID: "r1", Status: "APPROVED"}, ReviewStatusUpdated, IncludeAll},
		{Typing, TypingPayload{User: "alice", IsTyping: true}, Typing, ExcludeSender},
	}

	for _, tc := range cases {
		t.Run(tc.inbound, func(t *testing.T) {
			msg, policy, err := rt.Route(envelope(tc.inbound, "p1", tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.outbound, msg.Event)
			assert.Equal(t, tc.policy, policy)
			assert.Equal(t, "p1", msg.ProjectID)
		})
	}
}

func TestRouteStampsTimestamp(t *testing.T) {
	rt := newTestRouter()
	want := "2025-06-01T12:00:00Z"

	// The client lies about the timestamp; the broker overwrites it.
	msg, _, err := rt.Route(envelope(Typing, "p1", TypingPayload{
		User:      "alice",
		IsTyping:  true,
		Timestamp: "1999-01-01T00:00:00Z",
	}))
	require.NoError(t, err)

	payload, ok := msg.Data.(TypingPayload)
	require.True(t, ok)
	assert.Equal(t, want, payload.Timestamp)
}

func TestRouteAssignsSyntheticIDs(t *testing.T) {
	rt := newTestRouter()

	msg, _, err := rt.Route(envelope(AddAnnotation, "p1", AnnotationAddedPayload{
		ID:         "client-made-this-up",
		FileID:     "f1",
		Annotation: "typo here",
	}))
	require.NoError(t, err)

	payload, ok := msg.Data.(AnnotationAddedPayload)
	require.True(t, ok)
	assert.Equal(t, "fixed-id", payload.ID)
	assert.Equal(t, "p1", payload.ProjectID)

	reply, _, err := rt.Route(envelope(AddAnnotationReply, "p1", AnnotationReplyAddedPayload{
		AnnotationID: "a1",
		Reply:        ReplyPayload{Content: "second opinion"},
	}))
	require.NoError(t, err)

	replyPayload, ok := reply.Data.(AnnotationReplyAddedPayload)
	require.True(t, ok)
	assert.Equal(t, "fixed-id", replyPayload.ID)
}

func TestKnown(t *testing.T) {
	rt := NewRouter()

	assert.True(t, rt.Known(JoinProject))
	assert.True(t, rt.Known(LeaveProject))
	assert.True(t, rt.Known(Typing))
	assert.False(t, rt.Known("made-up-event"))
}
