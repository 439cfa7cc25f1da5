package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type fakeStorage struct {
	err error
}

func (f fakeStorage) Init() error        { return nil }
func (f fakeStorage) Close() error       { return nil }
func (f fakeStorage) HealthCheck() error { return f.err }
func (f fakeStorage) GetDB() *gorm.DB    { return nil }

type fakeLLM struct {
	err    error
	called bool
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error {
	f.called = true
	return f.err
}

func pingApp(h *HealthHandler) *fiber.App {
	app := fiber.New()
	app.Get("/ping", h.Check)
	return app
}

func getPing(t *testing.T, app *fiber.App, path string) (*http.Response, map[string]interface{}) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, body
}

func TestCheckHealthy(t *testing.T) {
	llm := &fakeLLM{err: errors.New("unreachable")}
	app := pingApp(NewHealthHandler(fakeStorage{}, nil, llm))

	resp, _ := getPing(t, app, "/ping")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if llm.called {
		t.Error("completion backend must not be checked unless requested")
	}
}

func TestCheckDatabaseDown(t *testing.T) {
	app := pingApp(NewHealthHandler(fakeStorage{err: errors.New("connection refused")}, nil, nil))

	resp, _ := getPing(t, app, "/ping")
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestCheckLLMOptIn(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"reachable", nil, fiber.StatusOK},
		{"unreachable", errors.New("mistral API error (status 503)"), fiber.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{err: tt.err}
			app := pingApp(NewHealthHandler(fakeStorage{}, nil, llm))

			resp, _ := getPing(t, app, "/ping?llm=true")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if !llm.called {
				t.Error("completion backend was not checked")
			}
		})
	}
}
