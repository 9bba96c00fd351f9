package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"bankbot/internal/chunker"
	"bankbot/internal/classifier"
	"bankbot/internal/domain"
	"bankbot/internal/extractor"
	"bankbot/internal/gateway"
	"bankbot/internal/pkg/logger"
	"bankbot/internal/prompt"
	"bankbot/internal/ranker"
	"bankbot/internal/retrieval"
	"bankbot/internal/session"
)

// AnswerCommand asks for every banking question in the uploaded document.
const AnswerCommand = "answer"

// Generator produces a model answer. Errors are *gateway.Failure values.
type Generator interface {
	Generate(ctx context.Context, env prompt.Envelope, opts gateway.Options) (string, error)
}

// KnowledgeBase is an optional shared corpus searched when no document is uploaded.
type KnowledgeBase interface {
	retrieval.Retriever
	Index(ctx context.Context, chunks []domain.Chunk) error
	Count(ctx context.Context) (int, error)
}

// Outcome says which path produced a reply.
type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeNoContext   Outcome = "no_context"
	OutcomeOutOfDomain Outcome = "out_of_domain"
	OutcomeFAQ         Outcome = "faq"
	OutcomeBatch       Outcome = "batch"
	OutcomeNoQuestions Outcome = "no_questions"
	OutcomeFailed      Outcome = "failed"
)

// Reply is the assistant's answer to one turn.
type Reply struct {
	Text    string              `json:"text"`
	Outcome Outcome             `json:"outcome"`
	Failure gateway.FailureKind `json:"-"`
	Context []string            `json:"context,omitempty"`
}

// FAQEntry answers any query containing Key without calling the model.
type FAQEntry struct {
	Key    string `yaml:"key"`
	Answer string `yaml:"answer"`
}

type Options struct {
	Policy           string
	MaxChunks        int
	KnowledgeResults int
	BatchLimit       int
	BatchTemperature float64
	BatchNumPredict  int
	SummarySentences int
	FAQ              []FAQEntry
}

func (o *Options) applyDefaults() {
	if o.Policy == "" {
		o.Policy = prompt.DefaultPolicy
	}
	if o.MaxChunks <= 0 {
		o.MaxChunks = ranker.DefaultMaxChunks
	}
	if o.KnowledgeResults <= 0 {
		o.KnowledgeResults = 3
	}
	if o.BatchLimit <= 0 {
		o.BatchLimit = extractor.DefaultLimit
	}
	if o.BatchTemperature <= 0 {
		o.BatchTemperature = 0.2
	}
	if o.BatchNumPredict <= 0 {
		o.BatchNumPredict = 200
	}
	if o.SummarySentences <= 0 {
		o.SummarySentences = 3
	}
}

// BankService runs the chat pipeline: domain check, context retrieval,
// prompt assembly and the model call.
type BankService struct {
	classifier *classifier.Classifier
	chunker    *chunker.WindowChunker
	generator  Generator
	summarizer domain.Summarizer
	knowledge  KnowledgeBase
	opts       Options
}

// NewBankService wires the pipeline. knowledge and summarizer may be nil.
func NewBankService(
	c *classifier.Classifier,
	ch *chunker.WindowChunker,
	gen Generator,
	sum domain.Summarizer,
	knowledge KnowledgeBase,
	opts Options,
) *BankService {
	opts.applyDefaults()
	return &BankService{
		classifier: c,
		chunker:    ch,
		generator:  gen,
		summarizer: sum,
		knowledge:  knowledge,
		opts:       opts,
	}
}

// Ask handles one user message. The user message and the reply are both
// appended to the session; turns on the same session run one at a time.
func (s *BankService) Ask(ctx context.Context, sess *session.Session, text string) Reply {
	sess.BeginTurn()
	defer sess.EndTurn()

	ctx = logger.AddFields(ctx, zap.String("session_id", sess.ID))
	sess.Append(domain.RoleUser, text)

	reply := s.route(ctx, sess, text)

	sess.Append(domain.RoleAssistant, reply.Text)
	ctxzap.Info(ctx, "turn answered",
		zap.String("outcome", string(reply.Outcome)),
		zap.Int("context_passages", len(reply.Context)),
	)
	return reply
}

func (s *BankService) route(ctx context.Context, sess *session.Session, text string) Reply {
	doc := sess.Document()
	if doc != nil && strings.EqualFold(strings.TrimSpace(text), AnswerCommand) {
		return s.answerDocument(ctx, sess, doc)
	}

	if answer, ok := s.matchFAQ(text); ok {
		return Reply{Text: answer, Outcome: OutcomeFAQ}
	}

	var extra []string
	if doc != nil {
		extra = doc.Keywords
	}
	if !s.classifier.IsInDomain(text, extra) {
		return Reply{Text: prompt.OutOfDomainReply, Outcome: OutcomeOutOfDomain}
	}

	passages := s.contextFor(ctx, doc, text)
	settings := sess.Settings()
	env := prompt.Envelope{Policy: s.opts.Policy, Context: strings.Join(passages, "\n\n"), Query: text}

	answer, err := s.generator.Generate(ctx, env, gateway.Options{
		Temperature: settings.Temperature,
		NumPredict:  settings.MaxTokens,
	})
	if err != nil {
		kind := gateway.KindOf(err)
		ctxzap.Warn(ctx, "model call failed", zap.Stringer("kind", kind), zap.Error(err))
		return Reply{Text: gateway.Message(kind), Outcome: OutcomeFailed, Failure: kind, Context: passages}
	}

	outcome := OutcomeAnswered
	if len(passages) == 0 {
		outcome = OutcomeNoContext
	}
	return Reply{Text: answer, Outcome: outcome, Context: passages}
}

// contextFor picks passages from the uploaded document, or from the knowledge
// base when there is no document. Retrieval problems only cost the context.
func (s *BankService) contextFor(ctx context.Context, doc *session.Document, query string) []string {
	if doc != nil {
		return retrieve(ctx, retrieval.NewLexicalRetriever(s.chunker, doc.Text), query, s.opts.MaxChunks)
	}
	if s.knowledge == nil {
		return nil
	}
	return retrieve(ctx, s.knowledge, query, s.opts.KnowledgeResults)
}

func retrieve(ctx context.Context, r retrieval.Retriever, query string, k int) []string {
	passages, err := r.Retrieve(ctx, query, k)
	if err != nil {
		ctxzap.Warn(ctx, "context lookup failed", zap.String("retriever", r.Name()), zap.Error(err))
		return nil
	}
	return passages
}

func (s *BankService) matchFAQ(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, e := range s.opts.FAQ {
		key := strings.ToLower(strings.TrimSpace(e.Key))
		if key != "" && strings.Contains(lower, key) {
			return e.Answer, true
		}
	}
	return "", false
}

// answerDocument answers each banking question found in the document, in order.
func (s *BankService) answerDocument(ctx context.Context, sess *session.Session, doc *session.Document) Reply {
	ctx = logger.WithAction(ctx, "AnswerDocument")
	questions := extractor.BankingQuestions(s.classifier, doc.Text, doc.Keywords)
	if len(questions) == 0 {
		return Reply{Text: prompt.NoQuestionsReply, Outcome: OutcomeNoQuestions}
	}
	if len(questions) > s.opts.BatchLimit {
		ctxzap.Info(ctx, "question list truncated", zap.Int("found", len(questions)), zap.Int("limit", s.opts.BatchLimit))
		questions = questions[:s.opts.BatchLimit]
	}

	docRetriever := retrieval.NewLexicalRetriever(s.chunker, doc.Text)
	blocks := make([]string, 0, len(questions))
	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			break
		}
		passages := retrieve(ctx, docRetriever, q, s.opts.MaxChunks)
		env := prompt.Envelope{Policy: s.opts.Policy, Context: strings.Join(passages, "\n\n"), Query: q}
		answer := gateway.Reply(ctx, s.generator, env, gateway.Options{
			Temperature: s.opts.BatchTemperature,
			NumPredict:  s.opts.BatchNumPredict,
		})
		blocks = append(blocks, fmt.Sprintf("Q%d. %s\n\n%s", i+1, q, answer))
	}
	return Reply{Text: strings.Join(blocks, "\n\n---\n\n"), Outcome: OutcomeBatch}
}
