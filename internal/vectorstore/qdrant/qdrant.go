package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"bankbot/internal/domain"
	"bankbot/internal/pkg/httpclient"
)

const DefaultCollection = "bank_faqs"

// Storage keeps chunk vectors in a Qdrant collection over its REST API.
type Storage struct {
	conn       *httpclient.Connector
	collection string
	distance   string
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Distance   string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Distance == "" {
		cfg.Distance = "Cosine"
	}
	opts := []httpclient.Option{
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithRequestLogging(),
	}
	if cfg.APIKey != "" {
		opts = append(opts, httpclient.WithStaticHeader("api-key", cfg.APIKey))
	}
	return &Storage{
		conn:       httpclient.NewConnector(cfg.URL, opts...),
		collection: cfg.Collection,
		distance:   cfg.Distance,
	}
}

func (s *Storage) Name() string { return "qdrant" }

func (s *Storage) collectionPath() string {
	return "/collections/" + s.collection
}

// Init creates the collection unless it already exists.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	err := s.do(ctx, http.MethodGet, s.collectionPath(), nil, nil)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("qdrant get collection: %w", err)
	}
	body := map[string]any{
		"vectors": map[string]any{"size": dimension, "distance": s.distance},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(), body, nil); err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Upsert writes one point per chunk. Point ids are UUIDv5 of the chunk id so
// re-ingesting the same file overwrites instead of duplicating.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	points := make([]point, len(chunks))
	for i, ch := range chunks {
		points[i] = point{
			ID:     uuid.NewSHA1(uuid.NameSpaceURL, []byte(ch.ChunkID)).String(),
			Vector: vectors[i],
			Payload: map[string]any{
				"document_id": ch.DocumentID,
				"chunk_id":    ch.ChunkID,
				"index":       ch.Index,
				"offset":      ch.Offset,
				"text":        ch.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, s.collectionPath()+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			DocumentID string `json:"document_id"`
			ChunkID    string `json:"chunk_id"`
			Index      int    `json:"index"`
			Offset     int    `json:"offset"`
			Text       string `json:"text"`
		} `json:"payload"`
	} `json:"result"`
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}
	req := map[string]any{"vector": vector, "limit": topK, "with_payload": true}
	var resp searchResponse
	if err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	out := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.SearchResult{
			Score: r.Score,
			Chunk: domain.Chunk{
				DocumentID: r.Payload.DocumentID,
				ChunkID:    r.Payload.ChunkID,
				Index:      r.Payload.Index,
				Offset:     r.Payload.Offset,
				Text:       r.Payload.Text,
			},
		})
	}
	return out, nil
}

// Count returns the exact number of points, or zero when the collection does not exist.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/count", map[string]any{"exact": true}, &resp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return resp.Result.Count, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionPath(), nil, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("qdrant drop collection: %w", err)
	}
	return nil
}

// do retries transient failures: network errors and 5xx answers.
func (s *Storage) do(ctx context.Context, method, endpoint string, reqBody, respBody any) error {
	return retry.Do(
		func() error { return s.conn.DoRequest(ctx, method, endpoint, reqBody, respBody) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var httpErr *httpclient.HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.StatusCode >= 500
			}
			var netErr *httpclient.NetworkError
			return errors.As(err, &netErr)
		}),
	)
}

func isNotFound(err error) bool {
	var httpErr *httpclient.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
