package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"coinledger/internal/middleware"
	"coinledger/internal/models"
	"coinledger/internal/services"

	"github.com/go-chi/chi/v5"
)

func authedRequest(method, target string, body []byte, userID string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCompleteUsageEventReturnsDeclineState(t *testing.T) {
	handler := newTestHandler(testHandlerOptions{
		usage: stubUsageService{
			completeEventFn: func(_ context.Context, userID, eventID, response string) (models.UsageEvent, error) {
				applied := false
				required := int64(3)
				reason := services.DeclineReasonInsufficientFunds
				return models.UsageEvent{ID: eventID, UserID: userID, CostApplied: &applied, CoinsRequired: &required, ChargeFailedReason: &reason}, nil
			},
		},
	})

	req := authedRequest(http.MethodPost, "/usage/events/evt-1/response", []byte(`{"response":"answer"}`), "user-1")
	req = withURLParam(req, "id", "evt-1")
	rec := httptest.NewRecorder()
	handler.CompleteUsageEvent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("decline is a handled outcome, got status %d", rec.Code)
	}
	var event models.UsageEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &event); err != nil {
		t.Fatalf("unexpected body: %v", err)
	}
	if event.CostApplied == nil || *event.CostApplied || event.CoinsRequired == nil || *event.CoinsRequired != 3 {
		t.Fatalf("unexpected event state: %#v", event)
	}
}

func TestCompleteUsageEventRejectsEmptyResponse(t *testing.T) {
	handler := newTestHandler(testHandlerOptions{
		usage: stubUsageService{
			completeEventFn: func(_ context.Context, _, _, _ string) (models.UsageEvent, error) {
				t.Fatal("empty response must not reach the service")
				return models.UsageEvent{}, nil
			},
		},
	})

	req := authedRequest(http.MethodPost, "/usage/events/evt-1/response", []byte(`{"response":""}`), "user-1")
	req = withURLParam(req, "id", "evt-1")
	rec := httptest.NewRecorder()
	handler.CompleteUsageEvent(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCompleteUsageEventErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrEventNotFound, http.StatusNotFound},
		{services.ErrNotEventOwner, http.StatusForbidden},
		{services.ErrNoResponse, http.StatusBadRequest},
		{services.ErrAccountNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		handler := newTestHandler(testHandlerOptions{
			usage: stubUsageService{
				completeEventFn: func(_ context.Context, _, _, _ string) (models.UsageEvent, error) {
					return models.UsageEvent{}, tc.err
				},
			},
		})
		req := authedRequest(http.MethodPost, "/usage/events/evt-1/response", []byte(`{"response":"answer"}`), "user-1")
		req = withURLParam(req, "id", "evt-1")
		rec := httptest.NewRecorder()
		handler.CompleteUsageEvent(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("error %v: expected status %d, got %d", tc.err, tc.status, rec.Code)
		}
	}
}

func TestCreateUsageEvent(t *testing.T) {
	handler := newTestHandler(testHandlerOptions{
		usage: stubUsageService{
			createEventFn: func(_ context.Context, userID, prompt string) (models.UsageEvent, error) {
				return models.UsageEvent{ID: "evt-1", UserID: userID, Prompt: prompt}, nil
			},
		},
	})

	req := authedRequest(http.MethodPost, "/usage/events", []byte(`{"prompt":"hello"}`), "user-1")
	rec := httptest.NewRecorder()
	handler.CreateUsageEvent(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var event models.UsageEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &event); err != nil {
		t.Fatalf("unexpected body: %v", err)
	}
	if event.ID != "evt-1" || event.Prompt != "hello" {
		t.Fatalf("unexpected event: %#v", event)
	}
}
