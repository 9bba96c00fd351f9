package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"bankbot/internal/chunker"
	"bankbot/internal/classifier"
	"bankbot/internal/config"
	"bankbot/internal/embedding"
	"bankbot/internal/embedding/ollama"
	"bankbot/internal/embedding/tfidf"
	"bankbot/internal/gateway"
	"bankbot/internal/pkg/logger"
	"bankbot/internal/retrieval"
	"bankbot/internal/service"
	"bankbot/internal/session"
	"bankbot/internal/summarizer"
	"bankbot/internal/vectorstore"
	"bankbot/internal/vectorstore/memory"
	"bankbot/internal/vectorstore/qdrant"
)

// Components is everything a front-end needs to serve chats.
type Components struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Service   *service.BankService
	Sessions  *session.Store
	Knowledge *retrieval.SemanticRetriever
	ModelName string
}

// SetupLogger builds the process logger from the log section.
func SetupLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	return logger.New(cfg.Log.Level, cfg.Log.File)
}

// Build wires the chat pipeline from cfg. A knowledge base that cannot be
// reached is logged and left disabled; it never fails the build.
func Build(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Components, error) {
	ctx = ctxzap.ToContext(ctx, log)

	cls := classifier.New(
		classifier.WithKeywords(cfg.Classifier.Keywords),
		classifier.WithSynonyms(cfg.Classifier.Synonyms),
		classifier.WithCutoff(cfg.Classifier.Cutoff),
	)
	ch := chunker.NewWindowChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)

	gen, model := buildGenerator(ctx, cfg.Gateway)
	log.Info("model gateway ready", zap.String("model", model), zap.Bool("mock", cfg.Gateway.Mock))

	var kb service.KnowledgeBase
	knowledge, err := buildKnowledgeBase(ctx, cfg)
	if err != nil {
		log.Warn("knowledge base disabled", zap.Error(err))
	} else if knowledge != nil {
		kb = knowledge
		log.Info("knowledge base enabled", zap.String("retriever", knowledge.Name()))
	}

	defaults := session.Settings{Temperature: cfg.Gateway.Temperature, MaxTokens: cfg.Gateway.MaxTokens}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("default session settings: %w", err)
	}

	svc := service.NewBankService(cls, ch, gen, summarizer.NewFrequencySummarizer(), kb, service.Options{
		MaxChunks:        cfg.Retrieval.MaxChunks,
		KnowledgeResults: cfg.Retrieval.KBResults,
		BatchLimit:       cfg.Retrieval.BatchLimit,
		SummarySentences: cfg.Summarizer.MaxSentences,
		FAQ:              cfg.FAQ,
	})

	return &Components{
		Config:    cfg,
		Logger:    log,
		Service:   svc,
		Sessions:  session.NewStore(cfg.Session.TTL(), defaults),
		Knowledge: knowledge,
		ModelName: model,
	}, nil
}

// Context returns parent carrying the process logger, for front-ends that
// call the service outside of an HTTP request.
func (c *Components) Context(parent context.Context) context.Context {
	return ctxzap.ToContext(parent, c.Logger)
}

// LoadKnowledgeBase indexes the configured files plus extra paths and returns
// the corpus summary. Failures are logged; the bot keeps running without them.
func (c *Components) LoadKnowledgeBase(ctx context.Context, extra ...string) string {
	paths := append(append([]string(nil), c.Config.Retrieval.KnowledgeBase...), extra...)
	if len(paths) == 0 || c.Knowledge == nil {
		return ""
	}
	ctx = logger.WithAction(c.Context(ctx), "LoadKnowledgeBase")
	start := time.Now()
	summary, err := c.Service.IngestKnowledgeBase(ctx, paths)
	if err != nil {
		ctxzap.Warn(ctx, "knowledge base not loaded", zap.Strings("paths", paths), zap.Error(err))
		return ""
	}
	n, _ := c.Knowledge.Count(ctx)
	ctxzap.Info(ctx, "knowledge base loaded", zap.Int("chunks", n), zap.Duration("took", time.Since(start)))
	return summary
}

func buildGenerator(ctx context.Context, cfg config.GatewayConfig) (service.Generator, string) {
	if cfg.Mock {
		m := gateway.NewMockClient()
		return m, m.Model()
	}
	client := gateway.New(gateway.Config{
		BaseURL: cfg.BaseURL,
		Mode:    gateway.Mode(cfg.Mode),
		Model:   cfg.Model,
		Timeout: cfg.Timeout(),
	})
	if cfg.AutoDetect || cfg.Model == "" {
		client.UseModel(client.DetectModel(ctx))
	}
	return client, client.Model()
}

func buildKnowledgeBase(ctx context.Context, cfg *config.AppConfig) (*retrieval.SemanticRetriever, error) {
	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "none":
		return nil, nil
	case "tfidf":
		emb = tfidf.NewEmbedder()
	case "ollama":
		o := cfg.Embedder.Ollama
		emb = ollama.NewClient(ollama.Config{
			BaseURL:  o.BaseURL,
			Path:     o.Path,
			Model:    o.Model,
			APIKey:   o.APIKey,
			Timeout:  time.Duration(o.TimeoutSecs) * time.Second,
			Attempts: o.Attempts,
			CacheTTL: time.Duration(o.CacheTTLMinutes) * time.Minute,
		})
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}

	var store vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory":
		store = memory.NewStorage()
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		store = qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Distance:   q.Distance,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.VectorStore.Type)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return retrieval.NewSemanticRetriever(probeCtx, emb, store)
}
