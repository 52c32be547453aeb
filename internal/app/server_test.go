package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/markdave123-py/zapdesk/internal/config"
	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/core/chatbot"
	db "github.com/markdave123-py/zapdesk/internal/core/database"
	"github.com/markdave123-py/zapdesk/internal/core/dispatch"
	"github.com/markdave123-py/zapdesk/internal/services"
)

type nopSender struct{}

func (nopSender) Send(context.Context, string, string) (*core.SendResult, error) {
	return &core.SendResult{}, nil
}

type nopBackend struct{}

func (nopBackend) Reply(context.Context, []core.Turn, string) (string, error) { return "ok", nil }

func newRouter(t *testing.T, env string) http.Handler {
	t.Helper()
	cfg := &config.Config{
		AppEnv:             env,
		JWTSecret:          "s3cret",
		RateLimitMax:       2,
		RateLimitWindow:    time.Minute,
		CORSAllowedOrigins: []string{"*"},
	}
	store := db.NewMemoryClient()
	convs := services.NewConversationService(store, chatbot.NewResponder(nopBackend{}), nopSender{}, nil)
	d := dispatch.NewDispatcher(convs.Handle, 4)
	d.Start(context.Background(), 1)
	t.Cleanup(d.Stop)
	return NewRouter(cfg, d, convs, services.NewFAQService(store), services.NewAgentService(store, cfg.JWTSecret))
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Routes(t *testing.T) {
	h := newRouter(t, "test")

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/ping", "", http.StatusOK},
		{http.MethodGet, "/api/conversations", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/faq", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/agents", `{}`, http.StatusUnauthorized},
		{http.MethodPost, "/api/login", `{"email":"x@example.com","password":"nope12345"}`, http.StatusUnauthorized},
		{http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=x", "", http.StatusForbidden},
		{http.MethodPost, "/webhook", `{"messages":[{"from":"+5511999999999","body":"oi"}]}`, http.StatusOK},
		{http.MethodPost, "/webhook/test", `{"phone_number":"+5511999999999","message":"oi"}`, http.StatusOK},
	}
	for _, tt := range tests {
		if rec := serve(h, tt.method, tt.path, tt.body); rec.Code != tt.want {
			t.Errorf("%s %s = %d; want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
		}
	}
}

func TestRouter_ProductionHidesTestEndpoint(t *testing.T) {
	h := newRouter(t, "production")
	rec := serve(h, http.MethodPost, "/webhook/test", `{"phone_number":"+5511999999999","message":"oi"}`)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /webhook/test in production = %d; want 404", rec.Code)
	}
}

func TestRouter_RateLimitsAPI(t *testing.T) {
	h := newRouter(t, "development")
	for i := 0; i < 2; i++ {
		serve(h, http.MethodPost, "/api/login", `{}`)
	}
	if rec := serve(h, http.MethodPost, "/api/login", `{}`); rec.Code != http.StatusTooManyRequests {
		t.Errorf("third login = %d; want 429", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/ping", ""); rec.Code != http.StatusOK {
		t.Errorf("ping = %d; want 200 outside the limiter", rec.Code)
	}
}
