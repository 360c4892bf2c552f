// Package remote is an HTTP client for an external text-pair similarity service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	contentType    = "application/json"
	userAgent      = "spigell/hh-matcher"
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

// Config describes how to reach the scoring service.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
	// RateLimit is the number of requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// Client posts {text_a, text_b} to the service and reads back {score}.
type Client struct {
	url        string
	token      string
	HTTPClient *http.Client
	UserAgent  string

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

type scoreRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

type scoreResponse struct {
	Score *float64 `json:"score"`
}

// New creates a Client. The URL is required.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("remote scorer url is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c := &Client{
		url:        url,
		token:      strings.TrimSpace(cfg.Token),
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		UserAgent:  userAgent,
		limiter:    limiter,
		logger:     logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "remote-scorer",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A caller giving up says nothing about the service's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c, nil
}

// Score returns the similarity of a and b as reported by the service.
func (c *Client) Score(ctx context.Context, a, b string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.score(ctx, a, b)
	})
	if err != nil {
		return 0, err
	}

	return out.(float64), nil
}

func (c *Client) score(ctx context.Context, a, b string) (float64, error) {
	payload, err := json.Marshal(scoreRequest{TextA: a, TextB: b})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	c.setHeaders(req)

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, err
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("bad status: %s", resp.Status)
	}

	var decoded scoreResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return 0, fmt.Errorf("decoding score response: %w", err)
	}
	if decoded.Score == nil {
		return 0, errors.New("score response has no score")
	}

	return *decoded.Score, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	req.Header.Set("User-Agent", c.UserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
}
