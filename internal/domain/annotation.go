package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAnnotationNotFound = errors.New("annotation not found")
	ErrReplyNotFound      = errors.New("reply not found")
	ErrInvalidInput       = errors.New("invalid input")
)

type AnnotationStatus string

const (
	AnnotationOpen       AnnotationStatus = "OPEN"
	AnnotationInProgress AnnotationStatus = "IN_PROGRESS"
	AnnotationResolved   AnnotationStatus = "RESOLVED"
)

// Coordinates locate an annotation on a design file, in pixels from the
// top-left corner of the rendered preview.
type Coordinates struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
}

type Annotation struct {
	ID          string           `bson:"_id" json:"id"`
	ProjectID   string           `bson:"project_id" json:"projectId"`
	FileID      string           `bson:"file_id" json:"fileId"`
	Content     string           `bson:"content" json:"annotation"`
	Coordinates Coordinates      `bson:"coordinates" json:"coordinates"`
	AddedBy     string           `bson:"added_by" json:"addedBy"`
	AddedByName string           `bson:"added_by_name" json:"addedByName"`
	Status      AnnotationStatus `bson:"status" json:"status"`
	ResolvedBy  string           `bson:"resolved_by,omitempty" json:"resolvedBy,omitempty"`
	CreatedAt   time.Time        `bson:"created_at" json:"createdAt"`
	Replies     []Reply          `bson:"replies,omitempty" json:"replies,omitempty"`
}

type Reply struct {
	ID          string    `bson:"_id" json:"id"`
	Content     string    `bson:"content" json:"content"`
	AddedBy     string    `bson:"added_by" json:"addedBy"`
	AddedByName string    `bson:"added_by_name" json:"addedByName"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

type AnnotationRepository interface {
	Create(ctx context.Context, annotation *Annotation) error
	GetByID(ctx context.Context, id string) (*Annotation, error)
	GetByProjectID(ctx context.Context, projectID string, limit int) ([]Annotation, error)
	AddReply(ctx context.Context, annotationID string, reply *Reply) error
	SetStatus(ctx context.Context, annotationID string, status AnnotationStatus, resolvedBy string) error
	EnsureIndexes(ctx context.Context) error
}

func NewAnnotation(projectID, fileID, content string, coords Coordinates, addedBy, addedByName string) (*Annotation, error) {
	if projectID == "" || fileID == "" || content == "" {
		return nil, ErrInvalidInput
	}

	return &Annotation{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		FileID:      fileID,
		Content:     content,
		Coordinates: coords,
		AddedBy:     addedBy,
		AddedByName: addedByName,
		Status:      AnnotationOpen,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func NewReply(content, addedBy, addedByName string) (*Reply, error) {
	if content == "" {
		return nil, ErrInvalidInput
	}

	return &Reply{
		ID:          uuid.NewString(),
		Content:     content,
		AddedBy:     addedBy,
		AddedByName: addedByName,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
