// Package gemini embeds text with the Gemini embedding API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hh-matcher/internal/utils"
)

const (
	defaultModel      = "gemini-embedding-001"
	defaultMaxRetries = 3
	taskType          = "SEMANTIC_SIMILARITY"

	retryBase     = 500 * time.Millisecond
	maxRetryDelay = 10 * time.Second
)

var (
	sleep = utils.WaitFor

	retryAfterRe = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

// embedAPI is the part of genai.Models the embedder needs.
type embedAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder implements similarity.Embedder on top of the Gemini API.
type Embedder struct {
	api        embedAPI
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewEmbedder creates an Embedder configured for the Gemini API backend.
// maxRetries is the total number of attempts per text.
func NewEmbedder(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Embedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, model, maxRetries, logger), nil
}

func newEmbedder(api embedAPI, model string, maxRetries int, logger *zap.Logger) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{api: api, model: model, maxRetries: maxRetries, logger: logger}
}

// Model returns the embedding model in use.
func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

// Embed returns the embedding vector of text, retrying temporary API failures.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e == nil || e.api == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	cfg := &genai.EmbedContentConfig{TaskType: taskType}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		resp, err := e.api.EmbedContent(ctx, e.model, genai.Text(text), cfg)
		if err == nil {
			return firstEmbedding(resp)
		}

		lastErr = err
		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == e.maxRetries {
			break
		}

		e.logger.Debug("retrying gemini embedding",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}

func firstEmbedding(resp *genai.EmbedContentResponse) ([]float64, error) {
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned no embeddings")
	}

	values := resp.Embeddings[0].Values
	if len(values) == 0 {
		return nil, errors.New("gemini api returned an empty embedding")
	}

	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	return vec, nil
}

// retryDelay decides whether err is temporary and how long to wait before the next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if m := retryAfterRe.FindStringSubmatch(apiErr.Message); m != nil {
			seconds, parseErr := strconv.ParseFloat(m[1], 64)
			if parseErr == nil {
				d := time.Duration(seconds * float64(time.Second))
				if d > maxRetryDelay {
					return 0, false
				}
				return d, true
			}
		}
		return utils.Backoff(attempt, retryBase, maxRetryDelay), true
	case apiErr.Code >= http.StatusInternalServerError:
		return utils.Backoff(attempt, retryBase, maxRetryDelay), true
	default:
		return 0, false
	}
}
