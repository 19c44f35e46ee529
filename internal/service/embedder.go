package service

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"

	"github.com/bhoomash/publicwayservice-sub000/internal/gemini"
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// HashingEmbedder is a local feature-hashing embedder over word unigrams and
// bigrams. It needs no network and is deterministic.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder builds a hashing embedder with dims buckets.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashingEmbedder{dims: dims}
}

// Model implements Embedder.
func (e *HashingEmbedder) Model() string { return "hashing-" + strconv.Itoa(e.dims) }

// Embed implements Embedder. The result is L2 normalised; empty text yields a zero vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, e.dims)
	words := strings.Fields(keywordText(text))
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (e *HashingEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

type geminiEmbedClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbeddingModelName() string
}

// GeminiEmbedder adapts the Gemini embedding model.
type GeminiEmbedder struct {
	client geminiEmbedClient
}

// NewGeminiEmbedder wraps client.
func NewGeminiEmbedder(client geminiEmbedClient) *GeminiEmbedder {
	return &GeminiEmbedder{client: client}
}

var _ geminiEmbedClient = (*gemini.Client)(nil)

// Model implements Embedder.
func (e *GeminiEmbedder) Model() string { return "gemini/" + e.client.EmbeddingModelName() }

// Embed implements Embedder.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, text)
}

// cosine returns the cosine similarity of a and b, or 0 when either is zero or lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
