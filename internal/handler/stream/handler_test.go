package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/obs"
	chatservice "github.com/zhouzirui/maktab-chat/backend/internal/service/chat"
)

func TestStreamUnknownSession(t *testing.T) {
	chatSvc := chatservice.NewService(nil, nil, chatservice.Options{Logger: obs.Discard()})
	r := chi.NewRouter()
	New(chatSvc, obs.Discard()).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/missing", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestStreamForwardsSessionEvents(t *testing.T) {
	chatSvc := chatservice.NewService(nil, nil, chatservice.Options{ResponseDelay: time.Hour, Logger: obs.Discard()})
	ctrl, err := chatSvc.CreateSession(context.Background(), chat.Identity{UserID: "u1", Role: "student"})
	require.NoError(t, err)

	r := chi.NewRouter()
	New(chatSvc, obs.Discard()).RegisterRoutes(r)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream/"+ctrl.ID(), nil).WithContext(ctx)
	resp := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(resp, req)
	}()

	require.Eventually(t, func() bool {
		return chatSvc.Broker().SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, ctrl.Open())
	_, err = ctrl.Submit("Salom")
	require.NoError(t, err)

	// the events are buffered; give the loop a moment to drain them
	require.Eventually(t, func() bool {
		return chatSvc.Broker().Pending() == 0
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	body := resp.Body.String()
	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))
	assert.GreaterOrEqual(t, strings.Count(body, "event: session\n"), 3)
	assert.Contains(t, body, "event: message\n")
	assert.Contains(t, body, "event: typing\n")
	assert.Contains(t, body, `"text":"Salom"`)
}
