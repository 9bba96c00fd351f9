package chat

import (
	"context"
	"io"

	"bankbot/internal/service"
	"bankbot/internal/session"
)

type ChatService interface {
	Ask(ctx context.Context, sess *session.Session, text string) service.Reply
	UploadDocument(ctx context.Context, sess *session.Session, filename string, r io.Reader) (*session.Document, error)
	ClearDocument(ctx context.Context, sess *session.Session)
	KnowledgeBaseStats(ctx context.Context) service.Stats
}

type SessionStore interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) error
	List() []*session.Session
}
