package ws

import (
	"encoding/json"

	"github.com/proofdeck/proofdeck/internal/domain"
)

// Envelope is the wire format for client-emitted events. Data stays raw
// until the router has matched the event kind to its payload type.
type Envelope struct {
	Event     string          `json:"event"`
	ProjectID string          `json:"projectId"`
	Data      json.RawMessage `json:"data"`
}

// Message is the wire format for broker-emitted events.
type Message struct {
	Event     string `json:"event"`
	ProjectID string `json:"projectId"`
	Data      any    `json:"data"`
}

// Payload structs — one per event kind, the closed union the router
// validates against. Timestamp and synthetic ids are always broker-assigned;
// any client-supplied values are overwritten during routing.

type AnnotationAddedPayload struct {
	ID          string             `json:"id"`
	ProjectID   string             `json:"projectId"`
	FileID      string             `json:"fileId"`
	Annotation  string             `json:"annotation"`
	Coordinates domain.Coordinates `json:"coordinates"`
	AddedBy     string             `json:"addedBy"`
	AddedByName string             `json:"addedByName"`
	Timestamp   string             `json:"timestamp"`
}

type AnnotationResolvedPayload struct {
	ProjectID    string `json:"projectId"`
	AnnotationID string `json:"annotationId"`
	ResolvedBy   string `json:"resolvedBy"`
	Timestamp    string `json:"timestamp"`
}

type ReplyPayload struct {
	Content     string `json:"content"`
	AddedBy     string `json:"addedBy"`
	AddedByName string `json:"addedByName"`
}

type AnnotationReplyAddedPayload struct {
	ID           string       `json:"id"`
	ProjectID    string       `json:"projectId"`
	AnnotationID string       `json:"annotationId"`
	Reply        ReplyPayload `json:"reply"`
	Timestamp    string       `json:"timestamp"`
}

type AnnotationStatusPayload struct {
	ProjectID    string `json:"projectId"`
	AnnotationID string `json:"annotationId"`
	Status       string `json:"status"`
	ResolvedBy   string `json:"resolvedBy,omitempty"`
	Timestamp    string `json:"timestamp"`
}

type ElementStatusPayload struct {
	ProjectID string `json:"projectId"`
	ElementID string `json:"elementId"`
	Status    string `json:"status"`
	UpdatedBy string `json:"updatedBy"`
	Comment   string `json:"comment,omitempty"`
	Timestamp string `json:"timestamp"`
}

type ReviewStatusPayload struct {
	ProjectID   string `json:"projectId"`
	ReviewID    string `json:"reviewId"`
	Status      string `json:"status"`
	ChangedBy   string `json:"changedBy"`
	IsFromAdmin bool   `json:"isFromAdmin"`
	Timestamp   string `json:"timestamp"`
}

type TypingPayload struct {
	ProjectID string `json:"projectId"`
	User      string `json:"user"`
	IsTyping  bool   `json:"isTyping"`
	Timestamp string `json:"timestamp"`
}
