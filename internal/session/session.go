package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"bankbot/internal/domain"
)

var (
	ErrNotFound           = errors.New("session not found")
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 1")
	ErrInvalidMaxTokens   = errors.New("max tokens must be positive")
)

const titleLimit = 40

// Settings are the sampling parameters a user may tune per session.
type Settings struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
}

func (s Settings) Validate() error {
	if s.Temperature < 0 || s.Temperature > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidTemperature, s.Temperature)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, s.MaxTokens)
	}
	return nil
}

// Document is the file a user uploaded into a session.
type Document struct {
	Name     string    `json:"name"`
	Text     string    `json:"-"`
	Keywords []string  `json:"keywords"`
	Summary  string    `json:"summary,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Session is one conversation. Turns are serialized with BeginTurn/EndTurn;
// the accessors are safe to call while a turn is running.
type Session struct {
	ID        string
	CreatedAt time.Time

	turn sync.Mutex

	mu       sync.RWMutex
	settings Settings
	messages []domain.Message
	document *Document
}

func newSession(id string, settings Settings) *Session {
	return &Session{ID: id, CreatedAt: time.Now(), settings: settings}
}

func (s *Session) BeginTurn() { s.turn.Lock() }
func (s *Session) EndTurn()   { s.turn.Unlock() }

func (s *Session) Append(role domain.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, domain.Message{Role: role, Content: content, At: time.Now()})
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Title is the first user message cut to 40 characters, or "New Chat".
func (s *Session) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.Role != domain.RoleUser {
			continue
		}
		r := []rune(m.Content)
		if len(r) > titleLimit {
			return string(r[:titleLimit]) + "..."
		}
		return m.Content
	}
	return "New Chat"
}

func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Session) SetSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

// Document returns a copy of the active document, or nil.
func (s *Session) Document() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.document == nil {
		return nil
	}
	doc := *s.document
	doc.Keywords = append([]string(nil), s.document.Keywords...)
	return &doc
}

func (s *Session) HasDocument() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document != nil
}

// SetDocument replaces the active document and its keywords.
func (s *Session) SetDocument(doc Document) {
	if doc.LoadedAt.IsZero() {
		doc.LoadedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = &doc
}

// ClearDocument drops the document together with its keywords.
func (s *Session) ClearDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = nil
}

// DetectedTerms returns up to n document keywords and whether more exist.
func (s *Session) DetectedTerms(n int) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.document == nil {
		return nil, false
	}
	kws := s.document.Keywords
	if len(kws) <= n {
		return append([]string(nil), kws...), false
	}
	return append([]string(nil), kws[:n]...), true
}
