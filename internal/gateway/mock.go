package gateway

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"

	"bankbot/internal/prompt"
)

// MockClient answers without a model server: it quotes the first retrieved
// passage, or says that no context was found. Used for demos and front-end
// development.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (m *MockClient) Model() string { return "mock" }

func (m *MockClient) Generate(ctx context.Context, env prompt.Envelope, _ Options) (string, error) {
	ctxzap.Info(ctx, "[MOCK] generating answer")
	if err := ctx.Err(); err != nil {
		return "", &Failure{Kind: classify(err), Err: err}
	}
	passage, _, _ := strings.Cut(strings.TrimSpace(env.Context), "\n\n")
	if passage == "" {
		return "[mock] No document context was supplied for: " + env.Query, nil
	}
	return "[mock] From the document: " + passage, nil
}
