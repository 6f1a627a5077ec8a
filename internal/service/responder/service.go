package responder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/compose"

	"github.com/zhouzirui/maktab-chat/backend/internal/analysis/intent"
)

// Service simulates the support backend: it classifies end-user text and
// renders the localized canned reply through a compiled eino chain.
type Service struct {
	catalog  intent.Catalog
	pipeline compose.Runnable[string, intent.Reply]
	fallback func(text string, catalog intent.Catalog) intent.Reply
	logger   *slog.Logger
}

// NewService compiles the classify -> render pipeline for the given catalog.
func NewService(ctx context.Context, catalog intent.Catalog, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	chain := compose.NewChain[string, intent.Reply]()
	chain.AppendLambda(compose.InvokableLambda(func(_ context.Context, text string) (intent.Category, error) {
		return intent.Classify(text), nil
	}))
	chain.AppendLambda(compose.InvokableLambda(func(_ context.Context, category intent.Category) (intent.Reply, error) {
		return intent.Reply{Category: category, Text: catalog.Reply(category)}, nil
	}))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile responder chain: %w", err)
	}

	return &Service{
		catalog:  catalog,
		pipeline: runnable,
		fallback: intent.Answer,
		logger:   logger.With("component", "responder"),
	}, nil
}

// Catalog returns the text catalog the responder answers from.
func (s *Service) Catalog() intent.Catalog {
	return s.catalog
}

// Respond returns the canned reply for text. It never fails: a pipeline error
// degrades to the direct classification path.
func (s *Service) Respond(ctx context.Context, text string) intent.Reply {
	reply, err := s.pipeline.Invoke(ctx, text)
	if err != nil {
		s.logger.Warn("responder pipeline failed, using fallback", "err", err)
		return s.fallback(text, s.catalog)
	}
	if reply.Text == "" {
		return s.fallback(text, s.catalog)
	}
	return reply
}
