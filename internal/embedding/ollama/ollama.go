package ollama

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"bankbot/internal/pkg/httpclient"
)

const (
	DefaultBaseURL = "http://127.0.0.1:11434"
	DefaultPath    = "/api/embeddings"
	DefaultModel   = "nomic-embed-text"
)

var ErrNoEmbedding = errors.New("no embedding returned")

type Config struct {
	BaseURL  string
	Path     string
	Model    string
	APIKey   string
	Timeout  time.Duration
	Attempts uint
	CacheTTL time.Duration
}

// Client embeds text through an Ollama or OpenAI-compatible embeddings
// endpoint. Results are cached by model and text.
type Client struct {
	conn     *httpclient.Connector
	path     string
	model    string
	attempts uint
	cache    *cache.Cache

	mu        sync.RWMutex
	dimension int
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	return &Client{
		conn: httpclient.NewConnector(cfg.BaseURL,
			httpclient.WithRequestTimeout(cfg.Timeout),
			httpclient.WithBearerToken(cfg.APIKey),
			httpclient.WithRequestLogging(),
		),
		path:     cfg.Path,
		model:    cfg.Model,
		attempts: cfg.Attempts,
		cache:    cache.New(cfg.CacheTTL, cfg.CacheTTL),
	}
}

func (c *Client) Name() string { return "ollama" }

// Prepare is a no-op; the dimension is learned from the first response.
func (c *Client) Prepare(context.Context, []string) error { return nil }

func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// Ping embeds a short probe to confirm the endpoint and model are usable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Embed(ctx, "bank account")
	return err
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt,omitempty"`
	Input  string `json:"input,omitempty"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Data      []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (r embedResponse) vector() []float64 {
	if len(r.Embedding) > 0 {
		return r.Embedding
	}
	if len(r.Data) > 0 {
		return r.Data[0].Embedding
	}
	return nil
}

// Embed returns the embedding of text. Network failures, 429 and 5xx answers
// are retried with exponential backoff.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	key := c.cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		return v.([]float64), nil
	}

	var vec []float64
	err := retry.Do(
		func() error {
			var resp embedResponse
			err := c.conn.DoRequest(ctx, http.MethodPost, c.path, embedRequest{Model: c.model, Prompt: text, Input: text}, &resp)
			if err != nil {
				return err
			}
			if vec = resp.vector(); len(vec) == 0 {
				return ErrNoEmbedding
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Debug(ctx, "retrying embedding request", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", c.model, err)
	}

	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(vec)
	}
	c.mu.Unlock()

	c.cache.SetDefault(key, vec)
	return vec, nil
}

func retryable(err error) bool {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var netErr *httpclient.NetworkError
	return errors.As(err, &netErr)
}

func (c *Client) cacheKey(text string) string {
	sum := sha1.Sum([]byte(c.model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
