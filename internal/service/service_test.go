package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bankbot/internal/chunker"
	"bankbot/internal/classifier"
	"bankbot/internal/domain"
	"bankbot/internal/embedding/tfidf"
	"bankbot/internal/gateway"
	"bankbot/internal/prompt"
	"bankbot/internal/retrieval"
	"bankbot/internal/session"
	"bankbot/internal/summarizer"
	"bankbot/internal/vectorstore/memory"
)

type call struct {
	env  prompt.Envelope
	opts gateway.Options
}

type fakeGenerator struct {
	mu     sync.Mutex
	calls  []call
	answer func(env prompt.Envelope) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, env prompt.Envelope, opts gateway.Options) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{env: env, opts: opts})
	f.mu.Unlock()
	if f.answer != nil {
		return f.answer(env)
	}
	return "answer to " + env.Query, nil
}

func newService(gen Generator, kb KnowledgeBase, opts Options) *BankService {
	return NewBankService(
		classifier.New(),
		chunker.NewWindowChunker(chunker.DefaultSize, chunker.DefaultOverlap),
		gen,
		summarizer.NewFrequencySummarizer(),
		kb,
		opts,
	)
}

func newSession() *session.Session {
	return session.NewStore(0, session.Settings{Temperature: 0.7, MaxTokens: 512}).Create()
}

func TestAsk_OutOfDomainNeverCallsModel(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{})
	sess := newSession()

	reply := svc.Ask(context.Background(), sess, "What is the weather today?")

	assert.Equal(t, prompt.OutOfDomainReply, reply.Text)
	assert.Equal(t, OutcomeOutOfDomain, reply.Outcome)
	assert.Empty(t, gen.calls)

	msgs := sess.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, prompt.OutOfDomainReply, msgs[1].Content)
}

func TestAsk_NoDocumentSendsNoContext(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{})

	reply := svc.Ask(context.Background(), newSession(), "What is my loan EMI?")

	require.Len(t, gen.calls, 1)
	c := gen.calls[0]
	assert.Empty(t, c.env.Context)
	assert.NotContains(t, c.env.String(), "Context from uploaded file:")
	assert.Equal(t, 0.7, c.opts.Temperature)
	assert.Equal(t, 512, c.opts.NumPredict)
	assert.Equal(t, OutcomeNoContext, reply.Outcome)
	assert.Equal(t, "answer to What is my loan EMI?", reply.Text)
}

func TestAsk_UsesSessionSettings(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{})
	sess := newSession()
	require.NoError(t, sess.SetSettings(session.Settings{Temperature: 0.1, MaxTokens: 64}))

	svc.Ask(context.Background(), sess, "explain neft")

	require.Len(t, gen.calls, 1)
	assert.Equal(t, 0.1, gen.calls[0].opts.Temperature)
	assert.Equal(t, 64, gen.calls[0].opts.NumPredict)
}

func TestAsk_DocumentContext(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{})
	sess := newSession()
	text := strings.Repeat("general terms apply. ", 60) + "The savings account interest rate is 3.5 percent. " + strings.Repeat("misc text. ", 80)
	_, err := svc.UploadDocument(context.Background(), sess, "rates.txt", strings.NewReader(text))
	require.NoError(t, err)

	reply := svc.Ask(context.Background(), sess, "what is the savings account interest rate")

	require.Len(t, gen.calls, 1)
	assert.Contains(t, gen.calls[0].env.Context, "3.5 percent")
	assert.LessOrEqual(t, len(reply.Context), 3)
	assert.Equal(t, OutcomeAnswered, reply.Outcome)
}

func TestAsk_FailureMapsToMessage(t *testing.T) {
	gen := &fakeGenerator{answer: func(prompt.Envelope) (string, error) {
		return "", &gateway.Failure{Kind: gateway.Timeout}
	}}
	svc := newService(gen, nil, Options{})
	sess := newSession()

	reply := svc.Ask(context.Background(), sess, "what is upi")

	assert.Equal(t, OutcomeFailed, reply.Outcome)
	assert.Equal(t, gateway.Timeout, reply.Failure)
	assert.Equal(t, "The request took too long. Please try a simpler question.", reply.Text)
	assert.Equal(t, reply.Text, sess.Messages()[1].Content)
}

func TestAsk_FAQShortCircuits(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{FAQ: []FAQEntry{{Key: "Bank Timings", Answer: "9 to 4"}}})

	reply := svc.Ask(context.Background(), newSession(), "what are the bank timings today")

	assert.Equal(t, "9 to 4", reply.Text)
	assert.Equal(t, OutcomeFAQ, reply.Outcome)
	assert.Empty(t, gen.calls)
}

func TestAsk_AnswerWithoutDocumentIsOrdinaryText(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{})

	reply := svc.Ask(context.Background(), newSession(), "answer")

	assert.Equal(t, OutcomeOutOfDomain, reply.Outcome)
}

func TestAsk_BatchAnswer(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{})
	sess := newSession()
	doc := "Customer FAQ\nWhat is the weather today?\nWhat is KYC?\nHow do I open a savings account?\nThank you"
	_, err := svc.UploadDocument(context.Background(), sess, "faq.txt", strings.NewReader(doc))
	require.NoError(t, err)

	reply := svc.Ask(context.Background(), sess, "  Answer ")

	assert.Equal(t, OutcomeBatch, reply.Outcome)
	assert.Equal(t,
		"Q1. What is KYC?\n\nanswer to What is KYC?\n\n---\n\nQ2. How do I open a savings account?\n\nanswer to How do I open a savings account?",
		reply.Text)
	require.Len(t, gen.calls, 2)
	for _, c := range gen.calls {
		assert.Equal(t, 0.2, c.opts.Temperature)
		assert.Equal(t, 200, c.opts.NumPredict)
	}
}

func TestAsk_BatchCapsQuestions(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{})
	sess := newSession()
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("What is the loan limit?\n")
	}
	_, err := svc.UploadDocument(context.Background(), sess, "many.txt", strings.NewReader(b.String()))
	require.NoError(t, err)

	reply := svc.Ask(context.Background(), sess, "answer")

	assert.Len(t, gen.calls, 20)
	assert.Contains(t, reply.Text, "Q20. ")
	assert.NotContains(t, reply.Text, "Q21. ")
}

func TestAsk_BatchFailuresStayInline(t *testing.T) {
	gen := &fakeGenerator{answer: func(env prompt.Envelope) (string, error) {
		if strings.Contains(env.Query, "KYC") {
			return "", &gateway.Failure{Kind: gateway.Unavailable}
		}
		return "ok", nil
	}}
	svc := newService(gen, nil, Options{})
	sess := newSession()
	_, err := svc.UploadDocument(context.Background(), sess, "faq.txt", strings.NewReader("What is KYC?\nWhat is NEFT?"))
	require.NoError(t, err)

	reply := svc.Ask(context.Background(), sess, "answer")

	assert.Equal(t, OutcomeBatch, reply.Outcome)
	assert.Contains(t, reply.Text, "Q1. What is KYC?\n\n"+gateway.Message(gateway.Unavailable))
	assert.Contains(t, reply.Text, "Q2. What is NEFT?\n\nok")
}

func TestAsk_BatchNoQuestions(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{})
	sess := newSession()
	_, err := svc.UploadDocument(context.Background(), sess, "doc.txt", strings.NewReader("Account statement for March. Balance carried forward."))
	require.NoError(t, err)

	reply := svc.Ask(context.Background(), sess, "answer")

	assert.Equal(t, prompt.NoQuestionsReply, reply.Text)
	assert.Empty(t, gen.calls)
}

func TestClearDocument_DropsKeywordsAndContext(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newService(gen, nil, Options{})
	sess := newSession()
	_, err := svc.UploadDocument(context.Background(), sess, "notes.txt", strings.NewReader("Branch notes."))
	require.NoError(t, err)

	svc.ClearDocument(context.Background(), sess)
	reply := svc.Ask(context.Background(), sess, "tell me about the notes")

	assert.Equal(t, OutcomeOutOfDomain, reply.Outcome)
	assert.Empty(t, gen.calls)
}

func TestUploadDocument_Metadata(t *testing.T) {
	svc := newService(&fakeGenerator{}, nil, Options{})
	sess := newSession()

	doc, err := svc.UploadDocument(context.Background(), sess, "/tmp/in/statement.md", strings.NewReader("# Statement\n\nYour savings account balance is low. Pay the penalty."))

	require.NoError(t, err)
	assert.Equal(t, "statement.md", doc.Name)
	assert.Contains(t, doc.Keywords, "savings account")
	assert.Contains(t, doc.Keywords, "penalty")
	assert.NotEmpty(t, doc.Summary)
}

func TestUploadDocument_Rejected(t *testing.T) {
	svc := newService(&fakeGenerator{}, nil, Options{})
	sess := newSession()

	_, err := svc.UploadDocument(context.Background(), sess, "photo.jpg", strings.NewReader("x"))

	assert.Error(t, err)
	assert.False(t, sess.HasDocument())
}

func knowledgeBase(t *testing.T) *retrieval.SemanticRetriever {
	t.Helper()
	kb, err := retrieval.NewSemanticRetriever(context.Background(), tfidf.NewEmbedder(), memory.NewStorage())
	require.NoError(t, err)
	return kb
}

func TestKnowledgeBase_IngestAndAsk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rbi.txt"), []byte("Positive pay is required for cheques above fifty thousand rupees."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.bin"), []byte("?"), 0o644))

	gen := &fakeGenerator{}
	svc := newService(gen, knowledgeBase(t), Options{})
	ctx := context.Background()

	summary, err := svc.IngestKnowledgeBase(ctx, []string{filepath.Join(dir, "*")})
	require.NoError(t, err)
	assert.Contains(t, summary, "Positive pay")
	assert.Equal(t, Stats{Count: 1, Status: StatusActive}, svc.KnowledgeBaseStats(ctx))

	reply := svc.Ask(ctx, newSession(), "cheque positive pay rules")

	require.Len(t, gen.calls, 1)
	assert.Contains(t, gen.calls[0].env.Context, "Positive pay")
	assert.Equal(t, OutcomeAnswered, reply.Outcome)
}

func TestKnowledgeBase_Disabled(t *testing.T) {
	svc := newService(&fakeGenerator{}, nil, Options{})

	_, err := svc.IngestKnowledgeBase(context.Background(), []string{"x.txt"})

	assert.ErrorIs(t, err, ErrKnowledgeBaseDisabled)
	assert.Equal(t, Stats{Status: StatusDisabled}, svc.KnowledgeBaseStats(context.Background()))
}

func TestKnowledgeBase_NoFiles(t *testing.T) {
	svc := newService(&fakeGenerator{}, knowledgeBase(t), Options{})

	_, err := svc.IngestKnowledgeBase(context.Background(), []string{filepath.Join(t.TempDir(), "*.txt")})

	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestAsk_ConcurrentTurnsStayPaired(t *testing.T) {
	svc := newService(&fakeGenerator{}, nil, Options{})
	sess := newSession()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Ask(context.Background(), sess, "what is my balance")
		}()
	}
	wg.Wait()

	msgs := sess.Messages()
	require.Len(t, msgs, 20)
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, domain.RoleUser, msgs[i].Role)
		assert.Equal(t, domain.RoleAssistant, msgs[i+1].Role)
	}
}

type brokenKnowledgeBase struct{}

func (brokenKnowledgeBase) Name() string { return "broken" }

func (brokenKnowledgeBase) Retrieve(context.Context, string, int) ([]string, error) {
	return nil, errors.New("index offline")
}

func (brokenKnowledgeBase) Index(context.Context, []domain.Chunk) error { return nil }

func (brokenKnowledgeBase) Count(context.Context) (int, error) { return 0, nil }

func TestAsk_RetrievalErrorIsLoggedAndDropsContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := ctxzap.ToContext(context.Background(), zap.New(core))
	gen := &fakeGenerator{}
	svc := newService(gen, brokenKnowledgeBase{}, Options{})

	reply := svc.Ask(ctx, newSession(), "what is the fixed deposit rate?")

	assert.Equal(t, OutcomeNoContext, reply.Outcome)
	require.Len(t, gen.calls, 1)
	assert.Empty(t, gen.calls[0].env.Context)
	failures := logs.FilterMessage("context lookup failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "broken", failures[0].ContextMap()["retriever"])
}
