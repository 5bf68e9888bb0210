package embedder

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Dimensions is the vector size stored in the index. Models that emit wider
// vectors are truncated and renormalized to unit length.
const Dimensions = 768

// Config points at an OpenAI-compatible embeddings endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Embedder turns snippet descriptions into fixed-size vectors. The client is
// created lazily on first use so pipelines that never embed pay nothing.
type Embedder struct {
	cfg Config

	mu     sync.Mutex
	client *openai.Client
}

// New creates an Embedder. No connection happens until the first Embed call.
func New(cfg Config) *Embedder {
	return &Embedder{cfg: cfg}
}

func (e *Embedder) getClient() *openai.Client {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		opts := []option.RequestOption{option.WithAPIKey(e.cfg.APIKey)}
		if e.cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(e.cfg.BaseURL))
		}
		client := openai.NewClient(opts...)
		e.client = &client
		log.Printf("🧠 Embedding client ready (model: %s)", e.cfg.Model)
	}
	return e.client
}

// Unload drops the client so the next use reinitializes it.
func (e *Embedder) Unload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.client = nil
}

// Embed returns the vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds several texts in one request, preserving order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	client := e.getClient()
	resp, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.cfg.Model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", idx)
		}
		vectors[idx] = truncateAndNormalize(d.Embedding, Dimensions)
	}
	return vectors, nil
}

// truncateAndNormalize cuts a vector to dims entries and rescales it to unit
// length so cosine similarity stays meaningful after truncation.
func truncateAndNormalize(vec []float64, dims int) []float32 {
	if len(vec) > dims {
		vec = vec[:dims]
	}

	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)

	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
