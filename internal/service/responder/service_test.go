package responder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/maktab-chat/backend/internal/analysis/intent"
	"github.com/zhouzirui/maktab-chat/backend/internal/obs"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), intent.DefaultCatalog(), obs.Discard())
	require.NoError(t, err)
	return svc
}

func TestRespondGreeting(t *testing.T) {
	svc := newTestService(t)

	reply := svc.Respond(context.Background(), "Salom")

	assert.Equal(t, intent.Greeting, reply.Category)
	assert.Equal(t, intent.DefaultCatalog().Replies[intent.Greeting], reply.Text)
}

func TestRespondMatchesPureClassifier(t *testing.T) {
	svc := newTestService(t)
	catalog := intent.DefaultCatalog()

	inputs := []string{
		"Baholarim qanday?",
		"salom, dars jadvali?",
		"RAHMAT",
		"nimadir boshqa",
		"",
	}
	for _, in := range inputs {
		got := svc.Respond(context.Background(), in)
		assert.Equal(t, intent.Answer(in, catalog), got, "input %q", in)
	}
}

func TestRespondFallsBackWhenCatalogEmpty(t *testing.T) {
	svc, err := NewService(context.Background(), intent.Catalog{}, obs.Discard())
	require.NoError(t, err)

	called := false
	svc.fallback = func(text string, catalog intent.Catalog) intent.Reply {
		called = true
		return intent.Reply{Category: intent.Unknown, Text: "fallback"}
	}

	reply := svc.Respond(context.Background(), "salom")
	assert.True(t, called)
	assert.Equal(t, "fallback", reply.Text)
}

func TestCatalogIsTheOneAnsweredFrom(t *testing.T) {
	catalog := intent.DefaultCatalog()
	catalog.ResetNotice = "Chat cleared"
	catalog.Replies[intent.Thanks] = "Marhamat"

	svc, err := NewService(context.Background(), catalog, obs.Discard())
	require.NoError(t, err)

	assert.Equal(t, "Chat cleared", svc.Catalog().ResetNotice)
	assert.Equal(t, svc.Catalog().Reply(intent.Thanks), svc.Respond(context.Background(), "rahmat").Text)
}
