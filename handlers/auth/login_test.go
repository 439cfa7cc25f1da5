package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lmercier/bulletin-analyzer/utils/auth"
)

type loginEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	} `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func newLoginApp(t *testing.T) *fiber.App {
	t.Helper()

	hash, err := auth.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: "test-secret",
		Expiry: time.Hour,
		Issuer: "bulletin-analyzer-test",
	})

	app := fiber.New()
	app.Post("/login", NewAuthHandler("admin", hash, jwtManager).Login)
	return app
}

func postLogin(t *testing.T, app *fiber.App, body map[string]string) (*http.Response, loginEnvelope) {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	var env loginEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, env
}

func TestLoginSuccess(t *testing.T) {
	app := newLoginApp(t)

	resp, env := postLogin(t, app, map[string]string{
		"username": "admin",
		"password": "correct horse battery",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !env.Success || env.Data.AccessToken == "" {
		t.Errorf("body = %+v", env)
	}
	if env.Data.ExpiresIn != 12*60*60 {
		t.Errorf("expires_in = %d", env.Data.ExpiresIn)
	}
}

func TestLoginWrongCredentials(t *testing.T) {
	app := newLoginApp(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"wrong password", map[string]string{"username": "admin", "password": "nope nope nope"}},
		{"wrong username", map[string]string{"username": "root", "password": "correct horse battery"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := postLogin(t, app, tt.body)
			if resp.StatusCode != fiber.StatusUnauthorized {
				t.Errorf("status = %d", resp.StatusCode)
			}
			if env.Data.AccessToken != "" {
				t.Error("no token must be issued")
			}
		})
	}
}

func TestLoginMissingFields(t *testing.T) {
	app := newLoginApp(t)

	resp, env := postLogin(t, app, map[string]string{"username": "admin"})
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("error = %+v", env.Error)
	}
	if _, ok := env.Error.Fields["password"]; !ok {
		t.Errorf("fields = %v, want a password entry", env.Error.Fields)
	}
}
