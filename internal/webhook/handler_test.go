package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/centsible/sync-worker/internal/models"
)

type mockJobCreator struct {
	created []models.SyncJob
	err     error
}

func (m *mockJobCreator) Create(ctx context.Context, job *models.SyncJob) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, *job)
	return nil
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_AggregatorEvent_CreatesSyncJob(t *testing.T) {
	creator := &mockJobCreator{}
	handler := NewHandler(creator).Routes()

	rec := postJSON(t, handler, "/webhooks/aggregator",
		`{"event":"item/updated","itemId":"it1","clientUserId":"u1"}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(creator.created) != 1 {
		t.Fatalf("expected 1 job created, got %d", len(creator.created))
	}
	job := creator.created[0]
	if job.Type != models.JobTypeSync {
		t.Errorf("expected sync job, got %s", job.Type)
	}
	if job.UserID != "u1" || job.ItemID != "it1" {
		t.Errorf("unexpected job fields: %+v", job)
	}
	if job.ID == "" || job.SyncJobID == "" {
		t.Error("expected generated job and correlation ids")
	}
}

func TestHandler_AggregatorEvent_IgnoresOtherEvents(t *testing.T) {
	creator := &mockJobCreator{}
	handler := NewHandler(creator).Routes()

	rec := postJSON(t, handler, "/webhooks/aggregator",
		`{"event":"item/created","itemId":"it1","clientUserId":"u1"}`)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(creator.created) != 0 {
		t.Errorf("expected no jobs for item/created, got %d", len(creator.created))
	}
}

func TestHandler_AggregatorEvent_MissingFields(t *testing.T) {
	creator := &mockJobCreator{}
	handler := NewHandler(creator).Routes()

	rec := postJSON(t, handler, "/webhooks/aggregator", `{"event":"item/updated"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(creator.created) != 0 {
		t.Errorf("expected no jobs, got %d", len(creator.created))
	}
}

func TestHandler_ManualTrigger_CreatesTriggerJob(t *testing.T) {
	creator := &mockJobCreator{}
	handler := NewHandler(creator).Routes()

	rec := postJSON(t, handler, "/api/sync/trigger", `{"userId":"u1","itemId":"it1"}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(creator.created) != 1 {
		t.Fatalf("expected 1 job created, got %d", len(creator.created))
	}
	if creator.created[0].Type != models.JobTypeTrigger {
		t.Errorf("expected trigger job, got %s", creator.created[0].Type)
	}
}

func TestHandler_ManualTrigger_InvalidPayload(t *testing.T) {
	creator := &mockJobCreator{}
	handler := NewHandler(creator).Routes()

	rec := postJSON(t, handler, "/api/sync/trigger", `not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
