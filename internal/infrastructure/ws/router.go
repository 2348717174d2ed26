package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidEventKind = errors.New("invalid event kind")
	ErrMissingRoomID    = errors.New("missing room id")
	ErrMalformedPayload = errors.New("malformed event payload")
)

type eventSpec struct {
	broadcastAs string
	policy      Policy
	decode      func(rt *Router, env Envelope) (any, error)
}

// Router validates one inbound event against the closed catalog, stamps it
// with a broker-assigned timestamp (and synthetic ids where the kind needs
// them), and resolves its fan-out policy. It performs no delivery and no
// persistence.
type Router struct {
	catalog map[string]eventSpec

	now   func() time.Time
	newID func() string
}

func NewRouter() *Router {
	rt := &Router{
		now:   time.Now,
		newID: uuid.NewString,
	}

	rt.catalog = map[string]eventSpec{
		AddAnnotation: {
			broadcastAs: AnnotationAdded,
			policy:      ExcludeSender,
			decode:      decodeAnnotationAdded,
		},
		ResolveAnnotation: {
			broadcastAs: AnnotationResolved,
			policy:      ExcludeSender,
			decode:      decodeAnnotationResolved,
		},
		AddAnnotationReply: {
			broadcastAs: AnnotationReplyAdded,
			policy:      ExcludeSender,
			decode:      decodeAnnotationReplyAdded,
		},
		AnnotationStatusChanged: {
			broadcastAs: AnnotationStatusUpdated,
			policy:      ExcludeSender,
			decode:      decodeAnnotationStatus,
		},
		UpdateElementStatus: {
			broadcastAs: StatusChanged,
			policy:      ExcludeSender,
			decode:      decodeElementStatus,
		},
		ReviewStatusChanged: {
			// Full-room fan-out: the sender sees its own review status
			// change echoed back, matching the server-originated path.
			broadcastAs: ReviewStatusUpdated,
			policy:      IncludeAll,
			decode:      decodeReviewStatus,
		},
		Typing: {
			broadcastAs: Typing,
			policy:      ExcludeSender,
			decode:      decodeTyping,
		},
	}

	return rt
}

// Route turns a raw client envelope into a broadcast-ready message plus its
// fan-out policy. The timestamp in the returned payload is always assigned
// here; clients cannot be trusted for ordering, so anything they supplied
// is overwritten.
func (rt *Router) Route(env Envelope) (*Message, Policy, error) {
	spec, ok := rt.catalog[env.Event]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidEventKind, env.Event)
	}

	if env.ProjectID == "" {
		return nil, 0, fmt.Errorf("%w: event %q", ErrMissingRoomID, env.Event)
	}

	payload, err := spec.decode(rt, env)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: event %q: %v", ErrMalformedPayload, env.Event, err)
	}

	return &Message{
		Event:     spec.broadcastAs,
		ProjectID: env.ProjectID,
		Data:      payload,
	}, spec.policy, nil
}

// Known reports whether the event kind is part of the catalog, join/leave
// included.
func (rt *Router) Known(event string) bool {
	if event == JoinProject || event == LeaveProject {
		return true
	}
	_, ok := rt.catalog[event]
	return ok
}

func (rt *Router) stamp() string {
	return rt.now().UTC().Format(time.RFC3339Nano)
}

func decodeAnnotationAdded(rt *Router, env Envelope) (any, error) {
	var p AnnotationAddedPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, err
	}
	if p.FileID == "" || p.Annotation == "" {
		return nil, errors.New("fileId and annotation are required")
	}

	p.ProjectID = env.ProjectID
	p.ID = rt.newID()
	p.Timestamp = rt.stamp()
	return p, nil
}

func decodeAnnotationResolved(rt *Router, env Envelope) (any, error) {
	var p AnnotationResolvedPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, err
	}
	if p.AnnotationID == "" {
		return nil, errors.New("annotationId is required")
	}

	p.ProjectID = env.ProjectID
	p.Timestamp = rt.stamp()
	return p, nil
}

func decodeAnnotationReplyAdded(rt *Router, env Envelope) (any, error) {
	var p AnnotationReplyAddedPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, err
	}
	if p.AnnotationID == "" || p.Reply.Content == "" {
		return nil, errors.New("annotationId and reply content are required")
	}

	p.ProjectID = env.ProjectID
	p.ID = rt.newID()
	p.Timestamp = rt.stamp()
	return p, nil
}

func decodeAnnotationStatus(rt *Router, env Envelope) (any, error) {
	var p AnnotationStatusPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, err
	}
	if p.AnnotationID == "" || p.Status == "" {
		return nil, errors.New("annotationId and status are required")
	}

	p.ProjectID = env.ProjectID
	p.Timestamp = rt.stamp()
	return p, nil
}

func decodeElementStatus(rt *Router, env Envelope) (any, error) {
	var p ElementStatusPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, err
	}
	if p.ElementID == "" || p.Status == "" {
		return nil, errors.New("elementId and status are required")
	}

	p.ProjectID = env.ProjectID
	p.Timestamp = rt.stamp()
	return p, nil
}

func decodeReviewStatus(rt *Router, env Envelope) (any, error) {
	var p ReviewStatusPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, err
	}
	if p.ReviewID == "" || p.Status == "" {
		return nil, errors.New("reviewId and status are required")
	}

	p.ProjectID = env.ProjectID
	p.Timestamp = rt.stamp()
	return p, nil
}

func decodeTyping(rt *Router, env Envelope) (any, error) {
	var p TypingPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, err
	}
	if p.User == "" {
		return nil, errors.New("user is required")
	}

	p.ProjectID = env.ProjectID
	p.Timestamp = rt.stamp()
	return p, nil
}
