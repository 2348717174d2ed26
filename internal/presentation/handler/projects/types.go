package projects

import (
	"time"

	"github.com/proofdeck/proofdeck/internal/domain"
	"github.com/proofdeck/proofdeck/internal/infrastructure/validate"
)

// createAnnotationRequest represents a new annotation pinned on a design file
type createAnnotationRequest struct {
	FileID      string             `json:"fileId"`      // Design file the annotation belongs to
	Annotation  string             `json:"annotation"`  // Annotation text
	Coordinates domain.Coordinates `json:"coordinates"` // Pixel position on the rendered preview
	AddedBy     string             `json:"addedBy"`     // User id of the author
	AddedByName string             `json:"addedByName"` // Display name of the author
}

func (r createAnnotationRequest) validate() error {
	if err := validate.Field("fileId", validate.Required())(r.FileID); err != nil {
		return err
	}
	if err := validate.Field("annotation", validate.Required(), validate.MaxLength(2000))(r.Annotation); err != nil {
		return err
	}
	return validate.Field("addedBy", validate.Required())(r.AddedBy)
}

// annotationResponse represents a persisted annotation
type annotationResponse struct {
	ID          string             `json:"id"`
	ProjectID   string             `json:"projectId"`
	FileID      string             `json:"fileId"`
	Annotation  string             `json:"annotation"`
	Coordinates domain.Coordinates `json:"coordinates"`
	AddedBy     string             `json:"addedBy"`
	AddedByName string             `json:"addedByName"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// setAnnotationStatusRequest moves an annotation through its workflow
type setAnnotationStatusRequest struct {
	Status    string `json:"status"`    // OPEN, IN_PROGRESS or RESOLVED
	ChangedBy string `json:"changedBy"` // User id making the change
}

func (r setAnnotationStatusRequest) validate() error {
	if err := validate.Field("status", validate.Required(), validate.OneOf(
		string(domain.AnnotationOpen),
		string(domain.AnnotationInProgress),
		string(domain.AnnotationResolved),
	))(r.Status); err != nil {
		return err
	}
	return validate.Field("changedBy", validate.Required())(r.ChangedBy)
}

// createReplyRequest represents a threaded reply to an annotation
type createReplyRequest struct {
	Content     string `json:"content"`
	AddedBy     string `json:"addedBy"`
	AddedByName string `json:"addedByName"`
}

func (r createReplyRequest) validate() error {
	if err := validate.Field("content", validate.Required(), validate.MaxLength(2000))(r.Content); err != nil {
		return err
	}
	return validate.Field("addedBy", validate.Required())(r.AddedBy)
}

// setElementStatusRequest approves or rejects a single design element
type setElementStatusRequest struct {
	Status    string `json:"status"` // PENDING, APPROVED or REJECTED
	UpdatedBy string `json:"updatedBy"`
	Comment   string `json:"comment,omitempty"`
}

func (r setElementStatusRequest) validate() error {
	if err := validate.Field("status", validate.Required(), validate.OneOf(
		string(domain.ElementPending),
		string(domain.ElementApproved),
		string(domain.ElementRejected),
	))(r.Status); err != nil {
		return err
	}
	return validate.Field("updatedBy", validate.Required())(r.UpdatedBy)
}

// setReviewStatusRequest moves a whole review through its workflow
type setReviewStatusRequest struct {
	Status      string `json:"status"` // PENDING, APPROVED, REJECTED or CHANGES_REQUESTED
	ChangedBy   string `json:"changedBy"`
	IsFromAdmin bool   `json:"isFromAdmin"`
}

func (r setReviewStatusRequest) validate() error {
	if err := validate.Field("status", validate.Required(), validate.OneOf(
		string(domain.ReviewPending),
		string(domain.ReviewApproved),
		string(domain.ReviewRejected),
		string(domain.ReviewChangesRequested),
	))(r.Status); err != nil {
		return err
	}
	return validate.Field("changedBy", validate.Required())(r.ChangedBy)
}

// activityResponse is one entry of a project's activity feed
type activityResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Actor     string         `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
