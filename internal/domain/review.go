package domain

import (
	"context"
	"errors"
	"time"
)

var ErrReviewNotFound = errors.New("review not found")

type ReviewStatus string

const (
	ReviewPending          ReviewStatus = "PENDING"
	ReviewApproved         ReviewStatus = "APPROVED"
	ReviewRejected         ReviewStatus = "REJECTED"
	ReviewChangesRequested ReviewStatus = "CHANGES_REQUESTED"
)

type Review struct {
	ID          string       `bson:"_id" json:"id"`
	ProjectID   string       `bson:"project_id" json:"projectId"`
	Status      ReviewStatus `bson:"status" json:"status"`
	ChangedBy   string       `bson:"changed_by" json:"changedBy"`
	IsFromAdmin bool         `bson:"is_from_admin" json:"isFromAdmin"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updatedAt"`
}

type ReviewRepository interface {
	GetByID(ctx context.Context, id string) (*Review, error)
	SetStatus(ctx context.Context, reviewID string, status ReviewStatus, changedBy string, isFromAdmin bool) (*Review, error)
}

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected, ReviewChangesRequested:
		return true
	}
	return false
}
