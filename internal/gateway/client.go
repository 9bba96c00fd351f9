package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"bankbot/internal/domain"
	"bankbot/internal/pkg/httpclient"
	"bankbot/internal/prompt"
)

// EmptyReply is returned when the model answers with no text field.
const EmptyReply = "I apologize, but I couldn't process that request."

const (
	DefaultBaseURL     = "http://127.0.0.1:11434"
	DefaultModel       = "qwen2.5:1.5b"
	FallbackModel      = "llama3"
	DefaultTemperature = 0.7
	DefaultNumPredict  = 512
	DefaultTimeout     = 60 * time.Second
)

// Mode selects the Ollama endpoint.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeChat     Mode = "chat"
)

type Config struct {
	BaseURL string
	Mode    Mode
	Model   string
	Timeout time.Duration
}

// Options are per-call sampling settings.
type Options struct {
	Model       string
	Temperature float64
	NumPredict  int
	Timeout     time.Duration
}

// Client talks to a local Ollama server. Each Generate is a single HTTP
// exchange without retries.
type Client struct {
	conn    *httpclient.Connector
	mode    Mode
	model   string
	timeout time.Duration
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeGenerate
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		conn:    httpclient.NewConnector(cfg.BaseURL, httpclient.WithRequestLogging()),
		mode:    cfg.Mode,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (c *Client) Model() string { return c.model }

type sampling struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options sampling `json:"options"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  sampling      `json:"options"`
}

type chatResponse struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Generate sends env to the model and returns its answer. Any error is a *Failure.
func (c *Client) Generate(ctx context.Context, env prompt.Envelope, opts Options) (string, error) {
	opts = c.withDefaults(opts)
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ctxzap.Debug(ctx, "calling model",
		zap.String("mode", string(c.mode)),
		zap.String("model", opts.Model),
		zap.Float64("temperature", opts.Temperature),
		zap.Int("num_predict", opts.NumPredict),
	)

	params := sampling{Temperature: opts.Temperature, NumPredict: opts.NumPredict}
	var (
		text string
		err  error
	)
	switch c.mode {
	case ModeChat:
		text, err = c.chat(ctx, env, opts.Model, params)
	default:
		text, err = c.generate(ctx, env, opts.Model, params)
	}
	if err != nil {
		kind := classify(err)
		ctxzap.Warn(ctx, "model call failed", zap.Stringer("kind", kind), zap.Error(err))
		return "", &Failure{Kind: kind, Err: err}
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, env prompt.Envelope, model string, params sampling) (string, error) {
	req := generateRequest{Model: model, Prompt: env.String(), Options: params}
	var resp generateResponse
	if err := c.conn.DoRequest(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	if resp.Response == nil || strings.TrimSpace(*resp.Response) == "" {
		return EmptyReply, nil
	}
	return strings.TrimSpace(*resp.Response), nil
}

func (c *Client) chat(ctx context.Context, env prompt.Envelope, model string, params sampling) (string, error) {
	req := chatRequest{Model: model, Messages: stripTimes(env.Messages()), Options: params}
	var resp chatResponse
	if err := c.conn.DoRequest(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	if resp.Message == nil || strings.TrimSpace(resp.Message.Content) == "" {
		return EmptyReply, nil
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// Generator is satisfied by Client and MockClient.
type Generator interface {
	Generate(ctx context.Context, env prompt.Envelope, opts Options) (string, error)
}

// Reply is Generate with failures already turned into their user-facing text.
func Reply(ctx context.Context, gen Generator, env prompt.Envelope, opts Options) string {
	text, err := gen.Generate(ctx, env, opts)
	if err != nil {
		return Message(KindOf(err))
	}
	return text
}

func (c *Client) withDefaults(opts Options) Options {
	if opts.Model == "" {
		opts.Model = c.model
	}
	if opts.NumPredict <= 0 {
		opts.NumPredict = DefaultNumPredict
	}
	if opts.Timeout <= 0 {
		opts.Timeout = c.timeout
	}
	opts.Temperature = min(max(opts.Temperature, 0), 1)
	return opts
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// DetectModel returns the first locally installed model, or FallbackModel when
// the server cannot be asked or has none.
func (c *Client) DetectModel(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var resp tagsResponse
	if err := c.conn.DoRequest(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		ctxzap.Info(ctx, "model detection failed, using fallback", zap.Error(err))
		return FallbackModel
	}
	for _, m := range resp.Models {
		if m.Name != "" {
			return m.Name
		}
	}
	return FallbackModel
}

// UseModel switches the default model. Call it before serving requests.
func (c *Client) UseModel(model string) {
	if model != "" {
		c.model = model
	}
}

// Ping reports whether the server answers at all.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var resp tagsResponse
	if err := c.conn.DoRequest(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return &Failure{Kind: classify(err), Err: err}
	}
	return nil
}

func stripTimes(msgs []domain.Message) []chatMessage {
	out := make([]chatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
