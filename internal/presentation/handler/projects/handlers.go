package projects

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/proofdeck/proofdeck/internal/domain"
	"github.com/proofdeck/proofdeck/internal/infrastructure/events"
	"github.com/proofdeck/proofdeck/internal/infrastructure/json"
	"github.com/proofdeck/proofdeck/internal/infrastructure/logging"
	"github.com/proofdeck/proofdeck/internal/infrastructure/ws"
)

const defaultActivityLimit = 50

type Handler struct {
	annotationRepository domain.AnnotationRepository
	elementRepository    domain.ElementRepository
	reviewRepository     domain.ReviewRepository
	activityRepository   domain.ActivityRepository
	hub                  *ws.Hub
	activityPublisher    *events.ActivityPublisher
	logger               logging.Logger
}

func NewHandler(
	annotationRepository domain.AnnotationRepository,
	elementRepository domain.ElementRepository,
	reviewRepository domain.ReviewRepository,
	activityRepository domain.ActivityRepository,
	hub *ws.Hub,
	activityPublisher *events.ActivityPublisher,
	logger logging.Logger,
) *Handler {
	return &Handler{
		annotationRepository: annotationRepository,
		elementRepository:    elementRepository,
		reviewRepository:     reviewRepository,
		activityRepository:   activityRepository,
		hub:                  hub,
		activityPublisher:    activityPublisher,
		logger:               logger,
	}
}

// ConnectHandler upgrades the request to a websocket connection and hands
// it to the broker. The connection starts in the project's room; further
// join-project and leave-project events move it between rooms.
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	if projectID == "" {
		json.WriteValidationError(w, errors.New("project ID is missing"))
		return
	}

	conn, err := h.hub.Upgrade(w, r)
	if err != nil {
		h.logger.Warnf("websocket upgrade failed for project %s: %v", projectID, err)
		return
	}

	client := h.hub.Register(conn)
	h.hub.Join(client, projectID)

	go client.WritePump()
	go client.ReadPump(h.hub)
}

// CreateAnnotationHandler persists a new annotation and announces it to
// everyone connected to the project room.
func (h *Handler) CreateAnnotationHandler(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	if projectID == "" {
		json.WriteValidationError(w, errors.New("project ID is missing"))
		return
	}

	var req createAnnotationRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	annotation, err := domain.NewAnnotation(projectID, req.FileID, req.Annotation, req.Coordinates, req.AddedBy, req.AddedByName)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()
	if err := h.annotationRepository.Create(ctx, annotation); err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusCreated, annotationResponse{
		ID:          annotation.ID,
		ProjectID:   annotation.ProjectID,
		FileID:      annotation.FileID,
		Annotation:  annotation.Content,
		Coordinates: annotation.Coordinates,
		AddedBy:     annotation.AddedBy,
		AddedByName: annotation.AddedByName,
		Status:      string(annotation.Status),
		CreatedAt:   annotation.CreatedAt,
	})

	h.hub.Announce(projectID, ws.AnnotationAdded, ws.AnnotationAddedPayload{
		ID:          annotation.ID,
		ProjectID:   annotation.ProjectID,
		FileID:      annotation.FileID,
		Annotation:  annotation.Content,
		Coordinates: annotation.Coordinates,
		AddedBy:     annotation.AddedBy,
		AddedByName: annotation.AddedByName,
		Timestamp:   annotation.CreatedAt.Format(time.RFC3339Nano),
	})

	h.recordActivity(projectID, domain.ActivityAnnotationAdded, req.AddedBy, map[string]any{
		"annotationId": annotation.ID,
		"fileId":       annotation.FileID,
	})
}

// SetAnnotationStatusHandler moves an annotation through its workflow and
// announces the change.
func (h *Handler) SetAnnotationStatusHandler(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	annotationID := chi.URLParam(r, "annotationId")
	if projectID == "" || annotationID == "" {
		json.WriteValidationError(w, errors.New("project ID or annotation ID is missing"))
		return
	}

	var req setAnnotationStatusRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	status := domain.AnnotationStatus(req.Status)
	resolvedBy := ""
	if status == domain.AnnotationResolved {
		resolvedBy = req.ChangedBy
	}

	ctx := r.Context()
	if err := h.annotationRepository.SetStatus(ctx, annotationID, status, resolvedBy); err != nil {
		switch {
		case errors.Is(err, domain.ErrAnnotationNotFound):
			json.WriteNotFoundError(w, err, "Annotation not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if status == domain.AnnotationResolved {
		h.hub.Announce(projectID, ws.AnnotationResolved, ws.AnnotationResolvedPayload{
			ProjectID:    projectID,
			AnnotationID: annotationID,
			ResolvedBy:   req.ChangedBy,
			Timestamp:    timestamp,
		})
		h.recordActivity(projectID, domain.ActivityAnnotationResolved, req.ChangedBy, map[string]any{
			"annotationId": annotationID,
		})
		return
	}

	h.hub.Announce(projectID, ws.AnnotationStatusUpdated, ws.AnnotationStatusPayload{
		ProjectID:    projectID,
		AnnotationID: annotationID,
		Status:       req.Status,
		Timestamp:    timestamp,
	})
	h.recordActivity(projectID, domain.ActivityAnnotationStatus, req.ChangedBy, map[string]any{
		"annotationId": annotationID,
		"status":       req.Status,
	})
}

// CreateReplyHandler appends a reply to an annotation thread and announces
// it.
func (h *Handler) CreateReplyHandler(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	annotationID := chi.URLParam(r, "annotationId")
	if projectID == "" || annotationID == "" {
		json.WriteValidationError(w, errors.New("project ID or annotation ID is missing"))
		return
	}

	var req createReplyRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	reply, err := domain.NewReply(req.Content, req.AddedBy, req.AddedByName)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()
	if err := h.annotationRepository.AddReply(ctx, annotationID, reply); err != nil {
		switch {
		case errors.Is(err, domain.ErrAnnotationNotFound):
			json.WriteNotFoundError(w, err, "Annotation not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	json.Write(w, http.StatusCreated, reply)

	h.hub.Announce(projectID, ws.AnnotationReplyAdded, ws.AnnotationReplyAddedPayload{
		ID:           reply.ID,
		ProjectID:    projectID,
		AnnotationID: annotationID,
		Reply: ws.ReplyPayload{
			Content:     reply.Content,
			AddedBy:     reply.AddedBy,
			AddedByName: reply.AddedByName,
		},
		Timestamp: reply.CreatedAt.Format(time.RFC3339Nano),
	})

	h.recordActivity(projectID, domain.ActivityReplyAdded, req.AddedBy, map[string]any{
		"annotationId": annotationID,
		"replyId":      reply.ID,
	})
}

// SetElementStatusHandler updates one element's approval state and
// announces it.
func (h *Handler) SetElementStatusHandler(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	elementID := chi.URLParam(r, "elementId")
	if projectID == "" || elementID == "" {
		json.WriteValidationError(w, errors.New("project ID or element ID is missing"))
		return
	}

	var req setElementStatusRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()
	element, err := h.elementRepository.SetStatus(ctx, projectID, elementID, domain.ElementStatus(req.Status), req.UpdatedBy, req.Comment)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, element)

	h.hub.Announce(projectID, ws.ElementStatusChangedEvnt, ws.ElementStatusPayload{
		ProjectID: projectID,
		ElementID: elementID,
		Status:    req.Status,
		UpdatedBy: req.UpdatedBy,
		Comment:   req.Comment,
		Timestamp: element.UpdatedAt.Format(time.RFC3339Nano),
	})

	h.recordActivity(projectID, domain.ActivityElementStatus, req.UpdatedBy, map[string]any{
		"elementId": elementID,
		"status":    req.Status,
	})
}

// SetReviewStatusHandler updates a review's state and announces it to every
// room member, the initiator included, so all open tabs converge.
func (h *Handler) SetReviewStatusHandler(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	reviewID := chi.URLParam(r, "reviewId")
	if projectID == "" || reviewID == "" {
		json.WriteValidationError(w, errors.New("project ID or review ID is missing"))
		return
	}

	var req setReviewStatusRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()
	review, err := h.reviewRepository.SetStatus(ctx, reviewID, domain.ReviewStatus(req.Status), req.ChangedBy, req.IsFromAdmin)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, review)

	h.hub.Announce(projectID, ws.ReviewStatusUpdated, ws.ReviewStatusPayload{
		ProjectID:   projectID,
		ReviewID:    reviewID,
		Status:      req.Status,
		ChangedBy:   req.ChangedBy,
		IsFromAdmin: req.IsFromAdmin,
		Timestamp:   review.UpdatedAt.Format(time.RFC3339Nano),
	})

	h.recordActivity(projectID, domain.ActivityReviewStatus, req.ChangedBy, map[string]any{
		"reviewId": reviewID,
		"status":   req.Status,
	})
}

// GetActivityHandler returns the most recent activity entries for a
// project, newest first.
func (h *Handler) GetActivityHandler(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	if projectID == "" {
		json.WriteValidationError(w, errors.New("project ID is missing"))
		return
	}

	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			json.WriteBadRequestError(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	logs, err := h.activityRepository.GetByProjectID(r.Context(), projectID, limit)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	resp := make([]activityResponse, 0, len(logs))
	for _, entry := range logs {
		resp = append(resp, activityResponse{
			ID:        entry.ID,
			Type:      string(entry.Type),
			Actor:     entry.Actor,
			Timestamp: entry.Timestamp,
			Metadata:  entry.Metadata,
		})
	}

	json.Write(w, http.StatusOK, resp)
}

// recordActivity is fire-and-forget: the HTTP response has already been
// committed and a lost activity entry must not surface to the caller.
func (h *Handler) recordActivity(projectID string, activityType domain.ActivityType, actor string, metadata map[string]any) {
	if h.activityPublisher == nil {
		return
	}

	entry := domain.NewActivityLog(projectID, activityType, actor, metadata)
	if err := h.activityPublisher.Publish(context.Background(), entry); err != nil {
		h.logger.Errorf("failed to publish activity for project %s: %v", projectID, err)
	}
}
