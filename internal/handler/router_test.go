package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/participant"
	"github.com/zhouzirui/maktab-chat/backend/internal/obs"
	chatService "github.com/zhouzirui/maktab-chat/backend/internal/service/chat"
)

func newTestRouter() http.Handler {
	reg := prometheus.NewRegistry()
	profiles := participant.NewMemoryStore(participant.Seed())
	return NewRouter(Deps{
		Participants: profiles,
		Chat: chatService.NewService(nil, profiles, chatService.Options{
			Metrics: obs.NewMetrics(reg),
			Logger:  obs.Discard(),
		}),
		Gatherer: reg,
		Logger:   obs.Discard(),
	})
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r := newTestRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "support_chat_sessions")
}

func TestRouterMountsAPI(t *testing.T) {
	r := newTestRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/participants", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("X-User-ID", "u1")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusCreated, resp.Code)

	req = httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "https://maktab.example")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNoContent, resp.Code)
}
