package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrEmptyInput is returned for blank text; the embedding API rejects it.
var ErrEmptyInput = errors.New("embedding input is empty")

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options configures an OpenAI-compatible embedding endpoint.
type Options struct {
	// e.g. https://api.openai.com/v1 or a local LM Studio server
	BaseURL string
	APIKey  string
	Model   string
}

type openAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	log    *zap.Logger
}

// NewOpenAIEmbedder creates an Embedder for any server speaking the OpenAI embeddings API.
func NewOpenAIEmbedder(opts Options, log *zap.Logger) Embedder {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &openAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(opts.Model),
		log:    log.With(zap.String("component", "embedding")),
	}
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("create embedding: empty response")
	}
	e.log.Debug("embedding created",
		zap.Int("chars", len(text)),
		zap.Int("dims", len(resp.Data[0].Embedding)),
	)
	return resp.Data[0].Embedding, nil
}
