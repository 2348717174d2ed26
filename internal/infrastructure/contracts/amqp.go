package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	ProjectID string `json:"projectId"`
	Data      []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventAnnotationAdded    = "annotation.added"
	EventAnnotationResolved = "annotation.resolved"
	EventReplyAdded         = "annotation.reply_added"
	EventAnnotationStatus   = "annotation.status_changed"
	EventElementStatus      = "element.status_changed"
	EventReviewStatus       = "review.status_changed"
)
