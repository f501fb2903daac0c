package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/infra/backend"
	"github.com/boddenberg/household-hub-bfa/internal/infra/resilience"

	"go.uber.org/zap"
)

func utilitiesSection() *domain.Section {
	return &domain.Section{
		Key:           "utilities",
		CategoryField: "category",
		SlotField:     "type",
		ListKey:       "utilities",
		RecordKey:     "utility",
		Endpoints: domain.Endpoints{
			Add:    "/add/utility",
			List:   "/get/utilities",
			Update: "/update/utility/:id",
			Delete: "/delete/utility/:id",
		},
	}
}

func newClient(t *testing.T, h http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	guard := resilience.NewGuard(resilience.NewCircuitBreaker("backend-test", zap.NewNop()), cfg)
	return backend.NewClient(srv.Client(), srv.URL, "test-key", guard, zap.NewNop())
}

func writeEnvelope(w http.ResponseWriter, status int, message string, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": status, "message": message, "payload": payload})
}

func TestListRecords_ObjectPayload(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/get/utilities" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected api key header, got %q", got)
		}
		if got := r.Header.Get("X-User"); got != "alice" {
			t.Errorf("expected X-User alice, got %q", got)
		}
		writeEnvelope(w, 1, "", map[string]any{
			"utilities": []map[string]any{
				{"id": 7, "type": "Electricity", "category": "Core", "monthlyCost": 80, "is_active": 1},
				{"id": "u2", "type": "Solar Panels", "category": "Core", "is_active": 0},
			},
		})
	})

	records, err := client.ListRecords(context.Background(), "alice", utilitiesSection())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "7" || records[0].SlotName != "Electricity" || !records[0].Active {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Active {
		t.Error("expected second record to be inactive")
	}
}

func TestListRecords_ArrayPayload(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 1, "", []map[string]any{{"id": "u1", "type": "Water", "category": "Core", "is_active": 1}})
	})

	records, err := client.ListRecords(context.Background(), "alice", utilitiesSection())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 1 || records[0].SlotName != "Water" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestListRecords_ApplicationError(t *testing.T) {
	var calls int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeEnvelope(w, 0, "Session expired", nil)
	})

	_, err := client.ListRecords(context.Background(), "alice", utilitiesSection())

	var appErr *domain.ErrApplication
	if !errors.As(err, &appErr) {
		t.Fatalf("expected ErrApplication, got %v", err)
	}
	if appErr.Message != "Session expired" {
		t.Errorf("expected backend message, got %q", appErr.Message)
	}
	if calls != 1 {
		t.Errorf("rejections must not be retried, got %d calls", calls)
	}
}

func TestListRecords_ServerErrorIsRetried(t *testing.T) {
	var calls int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, 1, "", []any{})
	})

	records, err := client.ListRecords(context.Background(), "alice", utilitiesSection())
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty list, got %d", len(records))
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestCreateRecord_SendsPayloadOnce(t *testing.T) {
	var calls int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost || r.URL.Path != "/add/utility" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if got["type"] != "Electricity" {
			t.Errorf("expected type Electricity, got %v", got["type"])
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.CreateRecord(context.Background(), "alice", utilitiesSection(), map[string]any{"type": "Electricity"})

	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if calls != 1 {
		t.Errorf("mutations must be sent once, got %d calls", calls)
	}
}

func TestUpdateRecord_DecodesSavedRecord(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/update/utility/u1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeEnvelope(w, 1, "Updated", map[string]any{
			"utility": map[string]any{"id": "u1", "type": "Gas", "category": "Core", "is_active": 1},
		})
	})

	rec, err := client.UpdateRecord(context.Background(), "alice", utilitiesSection(), "u1", map[string]any{"type": "Gas"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec == nil || rec.ID != "u1" || rec.SlotName != "Gas" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestDeleteRecord_Path(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/delete/utility/u9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeEnvelope(w, 1, "Deleted", nil)
	})

	if err := client.DeleteRecord(context.Background(), "alice", utilitiesSection(), "u9"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestMalformedEnvelope(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	})

	_, err := client.ListRecords(context.Background(), "alice", utilitiesSection())

	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}
