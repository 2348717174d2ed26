package domain

import (
	"context"
	"errors"
	"time"
)

var ErrElementNotFound = errors.New("element not found")

type ElementStatus string

const (
	ElementPending  ElementStatus = "PENDING"
	ElementApproved ElementStatus = "APPROVED"
	ElementRejected ElementStatus = "REJECTED"
)

// Element is a reviewable piece of a design file (a page, an artboard, a
// single exported asset). Status changes are tracked per element.
type Element struct {
	ID        string        `bson:"_id" json:"id"`
	ProjectID string        `bson:"project_id" json:"projectId"`
	FileID    string        `bson:"file_id" json:"fileId"`
	Status    ElementStatus `bson:"status" json:"status"`
	UpdatedBy string        `bson:"updated_by" json:"updatedBy"`
	Comment   string        `bson:"comment,omitempty" json:"comment,omitempty"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updatedAt"`
}

type ElementRepository interface {
	SetStatus(ctx context.Context, projectID, elementID string, status ElementStatus, updatedBy, comment string) (*Element, error)
	GetByProjectID(ctx context.Context, projectID string) ([]Element, error)
}

func (s ElementStatus) Valid() bool {
	switch s {
	case ElementPending, ElementApproved, ElementRejected:
		return true
	}
	return false
}
