package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("gemini API key is required")

// Config for the Gemini client.
type Config struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxRetries     int
	RetryDelay     time.Duration
	// CallTimeout bounds each model or embedding request. Zero means no extra bound.
	CallTimeout time.Duration
}

// Client wraps the Gemini API for complaint classification and embeddings.
type Client struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	embedder   *genai.EmbeddingModel
	logger     *zap.Logger
	modelName  string
	embedName  string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-1.5-flash"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-004"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction)},
	}
	model.ResponseMIMEType = "application/json"
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.2),
		TopP:            genai.Ptr[float32](0.9),
		MaxOutputTokens: genai.Ptr[int32](512),
	}

	logger.Info("gemini client initialized",
		zap.String("model", cfg.ModelName),
		zap.String("embedding_model", cfg.EmbeddingModel),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		client:     client,
		model:      model,
		embedder:   client.EmbeddingModel(cfg.EmbeddingModel),
		logger:     logger,
		modelName:  cfg.ModelName,
		embedName:  cfg.EmbeddingModel,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.CallTimeout,
	}, nil
}

// Close closes the Gemini client.
func (c *Client) Close() error {
	return c.client.Close()
}

// ModelName returns the generative model in use.
func (c *Client) ModelName() string { return c.modelName }

// EmbeddingModelName returns the embedding model in use.
func (c *Client) EmbeddingModelName() string { return c.embedName }

// Classify asks the model for a triage verdict, retrying malformed replies.
func (c *Client) Classify(ctx context.Context, req Request) (*Classification, error) {
	prompt := BuildPrompt(req)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying gemini request", zap.Int("attempt", attempt+1), zap.Int("max_retries", c.maxRetries))
			if err := sleep(ctx, c.retryDelay); err != nil {
				return nil, err
			}
		}

		callCtx, cancel := c.callContext(ctx)
		resp, err := c.model.GenerateContent(callCtx, genai.Text(prompt))
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("gemini API error: %w", err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from gemini")
			continue
		}
		text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			lastErr = fmt.Errorf("unexpected response type from gemini")
			continue
		}

		result, err := ParseClassification(string(text))
		if err != nil {
			lastErr = err
			c.logger.Warn("invalid gemini classification", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}
		return result, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	res, err := c.embedder.EmbedContent(callCtx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: empty embedding")
	}
	return res.Embedding.Values, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
