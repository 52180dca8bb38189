package chat

import (
	"context"
	"fmt"

	ai "github.com/neurolytics/neuroscan/internal/domain/ai"
	domain "github.com/neurolytics/neuroscan/internal/domain/analysis"
	"github.com/neurolytics/neuroscan/internal/infra/ai/prompt"
)

// Service answers free-form follow-up questions grounded in the most
// recently stored analysis.
type Service struct {
	ai    ai.Client
	store domain.ArtifactStore
}

func NewService(client ai.Client, store domain.ArtifactStore) *Service {
	return &Service{ai: client, store: store}
}

// Answer embeds the latest analysis record as inline JSON context and asks
// the model the user's question. The response is prose and returned as-is.
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	latest, err := s.store.Latest(ctx)
	if err != nil {
		return "", err
	}
	if latest == nil || latest.Record == nil {
		return "", domain.ErrNoContext
	}

	ctxJSON, err := latest.Record.JSON()
	if err != nil {
		return "", fmt.Errorf("encode grounding context: %w", err)
	}
	return s.ai.Generate(ctx, prompt.GetChatPrompt(string(ctxJSON), question))
}
