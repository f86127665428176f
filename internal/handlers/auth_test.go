package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"coinledger/internal/auth"
	"coinledger/internal/models"
	"coinledger/internal/services"
)

func TestRegisterReturnsToken(t *testing.T) {
	var seenRequest services.RegisterRequest
	handler := newTestHandler(testHandlerOptions{
		provision: stubProvisionService{
			registerFn: func(_ context.Context, req services.RegisterRequest) (string, error) {
				seenRequest = req
				return "user-1", nil
			},
		},
	})

	payload := []byte(`{"username":"newuser","email":"new@example.com","password":"longenough"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body: %s", rec.Code, rec.Body.String())
	}
	if seenRequest.Username != "newuser" || seenRequest.PasswordHash == "" {
		t.Fatalf("unexpected provision request: %#v", seenRequest)
	}
	if seenRequest.PasswordHash == "longenough" {
		t.Fatal("password must be hashed before provisioning")
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected body: %v", err)
	}
	claims, err := auth.ParseToken("test-secret", body["token"])
	if err != nil {
		t.Fatalf("expected a valid token: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestRegisterDuplicateUser(t *testing.T) {
	handler := newTestHandler(testHandlerOptions{
		provision: stubProvisionService{
			registerFn: func(_ context.Context, _ services.RegisterRequest) (string, error) {
				return "", services.ErrUserExists
			},
		},
	})

	payload := []byte(`{"username":"newuser","email":"new@example.com","password":"longenough"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	handler := newTestHandler(testHandlerOptions{
		provision: stubProvisionService{
			registerFn: func(_ context.Context, _ services.RegisterRequest) (string, error) {
				t.Fatal("invalid input must not reach provisioning")
				return "", nil
			},
		},
	})

	cases := []string{
		`{"username":"ab","email":"new@example.com","password":"longenough"}`,
		`{"username":"newuser","email":"not-an-email","password":"longenough"}`,
		`{"username":"newuser","email":"new@example.com","password":"short"}`,
	}
	for _, payload := range cases {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte(payload)))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("payload %s: unexpected status %d", payload, rec.Code)
		}
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("rightpassword")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	handler := newTestHandler(testHandlerOptions{
		users: stubUserStore{
			getByEmailFn: func(_ context.Context, _ string) (models.User, error) {
				return models.User{ID: "user-1", PasswordHash: hash}, nil
			},
		},
	})

	payload := []byte(`{"email":"user@example.com","password":"wrongpassword"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestLoginReturnsToken(t *testing.T) {
	hash, err := auth.HashPassword("rightpassword")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	handler := newTestHandler(testHandlerOptions{
		users: stubUserStore{
			getByEmailFn: func(_ context.Context, _ string) (models.User, error) {
				return models.User{ID: "user-1", PasswordHash: hash}, nil
			},
		},
	})

	payload := []byte(`{"email":"user@example.com","password":"rightpassword"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected body: %v", err)
	}
	if _, err := auth.ParseToken("test-secret", body["token"]); err != nil {
		t.Fatalf("expected a valid token: %v", err)
	}
}
