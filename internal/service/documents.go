package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"bankbot/internal/domain"
	"bankbot/internal/ingest"
	"bankbot/internal/session"
)

var (
	ErrKnowledgeBaseDisabled = errors.New("knowledge base is disabled")
	ErrNoDocuments           = errors.New("no readable knowledge base documents found")
)

// UploadDocument extracts text from r and makes it the session's document,
// replacing any previous one.
func (s *BankService) UploadDocument(ctx context.Context, sess *session.Session, filename string, r io.Reader) (*session.Document, error) {
	text, err := ingest.Extract(filename, r)
	if err != nil {
		return nil, err
	}

	doc := session.Document{
		Name:     filepath.Base(filename),
		Text:     text,
		Keywords: s.classifier.DocumentKeywords(text),
	}
	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(text, s.opts.SummarySentences)
		if err != nil {
			ctxzap.Warn(ctx, "document summary failed", zap.Error(err))
		}
		doc.Summary = summary
	}
	sess.SetDocument(doc)

	ctxzap.Info(ctx, "document uploaded",
		zap.String("session_id", sess.ID),
		zap.String("name", doc.Name),
		zap.Int("chars", len([]rune(text))),
		zap.Int("keywords", len(doc.Keywords)),
	)
	return sess.Document(), nil
}

// ClearDocument removes the session's document and its keywords.
func (s *BankService) ClearDocument(ctx context.Context, sess *session.Session) {
	sess.ClearDocument()
	ctxzap.Info(ctx, "document cleared", zap.String("session_id", sess.ID))
}

// IngestKnowledgeBase loads files matching paths (globs allowed) into the
// knowledge base and returns a short summary of their content.
func (s *BankService) IngestKnowledgeBase(ctx context.Context, paths []string) (string, error) {
	if s.knowledge == nil {
		return "", ErrKnowledgeBaseDisabled
	}

	var (
		chunks []domain.Chunk
		all    strings.Builder
	)
	for _, path := range expand(paths) {
		text, err := readFile(path)
		if err != nil {
			ctxzap.Warn(ctx, "skipping knowledge base file", zap.String("path", path), zap.Error(err))
			continue
		}
		doc := domain.Document{ID: hashString(path), Path: path, Content: text}
		docChunks, err := s.chunker.Chunk(doc)
		if err != nil {
			return "", fmt.Errorf("chunk %s: %w", path, err)
		}
		chunks = append(chunks, docChunks...)
		all.WriteString(text)
		all.WriteString("\n")
	}
	if len(chunks) == 0 {
		return "", ErrNoDocuments
	}

	if err := s.knowledge.Index(ctx, chunks); err != nil {
		return "", fmt.Errorf("index knowledge base: %w", err)
	}
	if s.summarizer == nil {
		return "", nil
	}
	return s.summarizer.Summarize(all.String(), s.opts.SummarySentences)
}

// Stats describes the knowledge base.
type Stats struct {
	Count  int    `json:"count"`
	Status string `json:"status"`
}

const (
	StatusActive   = "Active"
	StatusDisabled = "RAG Disabled"
)

func (s *BankService) KnowledgeBaseStats(ctx context.Context) Stats {
	if s.knowledge == nil {
		return Stats{Status: StatusDisabled}
	}
	n, err := s.knowledge.Count(ctx)
	if err != nil {
		ctxzap.Warn(ctx, "knowledge base count failed", zap.Error(err))
		return Stats{Status: StatusDisabled}
	}
	return Stats{Count: n, Status: StatusActive}
}

func expand(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil || len(matches) == 0 {
			matches = []string{p}
		}
		out = append(out, matches...)
	}
	return out
}

func readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ingest.Extract(path, f)
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
