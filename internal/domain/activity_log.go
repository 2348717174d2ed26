package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityAnnotationAdded    ActivityType = "annotation_added"
	ActivityAnnotationResolved ActivityType = "annotation_resolved"
	ActivityReplyAdded         ActivityType = "reply_added"
	ActivityAnnotationStatus   ActivityType = "annotation_status_changed"
	ActivityElementStatus      ActivityType = "element_status_changed"
	ActivityReviewStatus       ActivityType = "review_status_changed"
)

type ActivityLog struct {
	ID        string         `bson:"_id" json:"id"`
	ProjectID string         `bson:"project_id" json:"projectId"`
	Type      ActivityType   `bson:"activity_type" json:"type"`
	Actor     string         `bson:"actor" json:"actor"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type ActivityRepository interface {
	Log(ctx context.Context, entry *ActivityLog) error
	GetByProjectID(ctx context.Context, projectID string, limit int) ([]ActivityLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewActivityLog(projectID string, activityType ActivityType, actor string, metadata map[string]any) *ActivityLog {
	return &ActivityLog{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Type:      activityType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}
