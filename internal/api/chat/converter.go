package chat

import (
	"time"

	"bankbot/internal/domain"
	"bankbot/internal/service"
	"bankbot/internal/session"
)

type SessionDTO struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	Settings  session.Settings  `json:"settings"`
	Document  *session.Document `json:"document,omitempty"`
	Messages  []domain.Message  `json:"messages"`
}

type SessionSummaryDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	service.Reply
	Failure string `json:"failure,omitempty"`
}

// SettingsRequest carries partial updates; absent fields keep their value.
type SettingsRequest struct {
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

func toSessionDTO(s *session.Session) SessionDTO {
	msgs := s.Messages()
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return SessionDTO{
		ID:        s.ID,
		Title:     s.Title(),
		CreatedAt: s.CreatedAt,
		Settings:  s.Settings(),
		Document:  s.Document(),
		Messages:  msgs,
	}
}

func toSummaryDTO(s *session.Session) SessionSummaryDTO {
	return SessionSummaryDTO{ID: s.ID, Title: s.Title(), CreatedAt: s.CreatedAt}
}

func toMessageResponse(r service.Reply) MessageResponse {
	resp := MessageResponse{Reply: r}
	if r.Failure != 0 {
		resp.Failure = r.Failure.String()
	}
	return resp
}
