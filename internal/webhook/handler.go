package webhook

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/centsible/sync-worker/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// JobCreator is the producer-side slice of the job queue: create only,
// never touch status or attempts.
type JobCreator interface {
	Create(ctx context.Context, job *models.SyncJob) error
}

// Handler translates aggregator push notifications and manual triggers
// into queued sync jobs.
type Handler struct {
	jobs JobCreator
}

func NewHandler(jobs JobCreator) *Handler {
	return &Handler{jobs: jobs}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/webhooks/aggregator", h.handleAggregatorEvent)
	r.Post("/api/sync/trigger", h.handleManualTrigger)
	return r
}

type aggregatorEvent struct {
	Event        string `json:"event"`
	ItemID       string `json:"itemId"`
	ClientUserID string `json:"clientUserId"`
}

type triggerRequest struct {
	UserID string `json:"userId"`
	ItemID string `json:"itemId"`
}

type enqueueResponse struct {
	JobID string `json:"jobId"`
}

func (h *Handler) handleAggregatorEvent(w http.ResponseWriter, r *http.Request) {
	var evt aggregatorEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// Only updated connections need a sync pass; other events are acknowledged.
	if evt.Event != "item/updated" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if evt.ItemID == "" || evt.ClientUserID == "" {
		http.Error(w, "itemId and clientUserId are required", http.StatusBadRequest)
		return
	}

	h.enqueue(w, r, &models.SyncJob{
		ID:        uuid.New().String(),
		Type:      models.JobTypeSync,
		UserID:    evt.ClientUserID,
		ItemID:    evt.ItemID,
		SyncJobID: uuid.New().String(),
	})
}

func (h *Handler) handleManualTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.ItemID == "" {
		http.Error(w, "userId and itemId are required", http.StatusBadRequest)
		return
	}

	h.enqueue(w, r, &models.SyncJob{
		ID:        uuid.New().String(),
		Type:      models.JobTypeTrigger,
		UserID:    req.UserID,
		ItemID:    req.ItemID,
		SyncJobID: uuid.New().String(),
	})
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, job *models.SyncJob) {
	if err := h.jobs.Create(r.Context(), job); err != nil {
		log.Printf("Failed to enqueue sync job: %v", err)
		http.Error(w, "failed to enqueue sync", http.StatusInternalServerError)
		return
	}

	log.Printf("Enqueued sync job %s (type: %s, user: %s, item: %s)", job.ID, job.Type, job.UserID, job.ItemID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(enqueueResponse{JobID: job.ID})
}
