package messaging

import "github.com/proofdeck/proofdeck/internal/domain"

const (
	ActivityQueue   = "activity"
	DeadLetterQueue = "dead_letter_queue"
)

type ActivityEventData struct {
	Entry domain.ActivityLog `json:"entry"`
}
