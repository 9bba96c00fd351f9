package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bankbot/internal/domain"
	"bankbot/internal/service"
	"bankbot/internal/session"
	"bankbot/internal/transcript"
)

// ChatService is the TUI-facing subset of the bank service.
type ChatService interface {
	Ask(ctx context.Context, sess *session.Session, text string) service.Reply
	UploadDocument(ctx context.Context, sess *session.Session, filename string, r io.Reader) (*session.Document, error)
	ClearDocument(ctx context.Context, sess *session.Session)
	KnowledgeBaseStats(ctx context.Context) service.Stats
}

type SessionFactory interface {
	Create() *session.Session
}

// SuggestedPrompts are shown on an empty chat.
var SuggestedPrompts = []string{
	"What is the difference between NEFT and RTGS?",
	"How do I block a lost debit card?",
	"Which documents are needed for KYC?",
	"How is the EMI on a home loan calculated?",
}

const helpText = "/upload <file>  load a document   /clear  drop it   /new  new chat\n" +
	"/temp <0-1>  /tokens <n>  /export [txt|pdf|docx]  /sources  /quit\n" +
	"Type \"answer\" with a document loaded to answer every banking question in it."

const detectedTermsShown = 5

type replyMsg struct {
	query string
	reply service.Reply
}

type uploadMsg struct {
	doc *session.Document
	err error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx       context.Context
	service   ChatService
	sessions  SessionFactory
	sess      *session.Session
	modelName string
	kbSummary string
	kbStats   service.Stats

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	busy        bool
	status      string
	statusErr   bool
	lastQuery   string
	lastContext []string
	showSources bool
	ready       bool
	width       int
}

// New creates the chat model. kbSummary is the knowledge base summary shown
// on the welcome screen, if any.
func New(ctx context.Context, svc ChatService, sessions SessionFactory, modelName, kbSummary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a banking question, or /help"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:       ctx,
		service:   svc,
		sessions:  sessions,
		sess:      sessions.Create(),
		modelName: modelName,
		kbSummary: kbSummary,
		kbStats:   svc.KnowledgeBaseStats(ctx),
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		status:    "Ready.",
	}
}

// Session returns the chat currently shown.
func (m Model) Session() *session.Session { return m.sess }

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 2 + 1 + ih + 1 // header, banner, spacer, input, status
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil

	case replyMsg:
		m.busy = false
		m.lastQuery = msg.query
		m.lastContext = msg.reply.Context
		m.setStatus(outcomeStatus(msg.reply), msg.reply.Outcome == service.OutcomeFailed)
		m.refresh()
		return m, nil

	case uploadMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus("Upload failed: "+msg.err.Error(), true)
		} else {
			m.setStatus(fmt.Sprintf("Loaded %s.", msg.doc.Name), false)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			if strings.HasPrefix(text, "/") {
				return m.command(text)
			}
			return m.ask(text)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(text string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.setStatus("Thinking...", false)
	sess, svc, ctx := m.sess, m.service, m.ctx
	// the user message is appended by Ask; render it right away
	m.viewport.SetContent(m.render() + "\n" + userStyle.Render("You: ") + text)
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return replyMsg{query: text, reply: svc.Ask(ctx, sess, text)}
	})
}

func (m Model) command(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/help":
		m.setStatus(helpText, false)
	case "/new":
		m.sess = m.sessions.Create()
		m.lastContext = nil
		m.setStatus("Started a new chat.", false)
	case "/clear":
		if !m.sess.HasDocument() {
			m.setStatus("No document is loaded.", true)
			break
		}
		m.service.ClearDocument(m.ctx, m.sess)
		m.setStatus("Document cleared.", false)
	case "/upload":
		if arg == "" {
			m.setStatus("Usage: /upload <file>", true)
			break
		}
		m.busy = true
		m.setStatus("Reading "+filepath.Base(arg)+"...", false)
		sess, svc, ctx := m.sess, m.service, m.ctx
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			f, err := os.Open(arg)
			if err != nil {
				return uploadMsg{err: err}
			}
			defer f.Close()
			doc, err := svc.UploadDocument(ctx, sess, arg, f)
			return uploadMsg{doc: doc, err: err}
		})
	case "/temp":
		m.updateSettings(func(s *session.Settings) error {
			v, err := strconv.ParseFloat(arg, 64)
			s.Temperature = v
			return err
		})
	case "/tokens":
		m.updateSettings(func(s *session.Settings) error {
			v, err := strconv.Atoi(arg)
			s.MaxTokens = v
			return err
		})
	case "/export":
		m.export(arg)
	case "/sources":
		m.showSources = !m.showSources
		m.setStatus(fmt.Sprintf("Sources %s.", map[bool]string{true: "shown", false: "hidden"}[m.showSources]), false)
	default:
		m.setStatus("Unknown command "+name+". Type /help.", true)
	}
	m.refresh()
	return m, nil
}

func (m *Model) updateSettings(apply func(*session.Settings) error) {
	s := m.sess.Settings()
	if err := apply(&s); err != nil {
		m.setStatus("Invalid value: "+err.Error(), true)
		return
	}
	if err := m.sess.SetSettings(s); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("Temperature %.2f, max tokens %d.", s.Temperature, s.MaxTokens), false)
}

func (m *Model) export(format string) {
	f, err := transcript.ForFormat(transcript.Format(format))
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	data, err := f.Format(m.sess.Title(), m.sess.Messages())
	if err != nil {
		m.setStatus("Export failed: "+err.Error(), true)
		return
	}
	name := "chat_history" + f.FileExtension()
	if err := os.WriteFile(name, data, 0o644); err != nil {
		m.setStatus("Export failed: "+err.Error(), true)
		return
	}
	m.setStatus("Saved "+name+".", false)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

func (m Model) render() string {
	wrap := lipgloss.NewStyle().Width(max(20, m.viewport.Width))
	msgs := m.sess.Messages()
	if len(msgs) == 0 {
		return wrap.Render(m.welcome())
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := userStyle.Render("You: ")
		if msg.Role == domain.RoleAssistant {
			label = botStyle.Render("BankBot: ")
		}
		b.WriteString(wrap.Render(label + msg.Content))
	}
	if m.showSources && len(m.lastContext) > 0 {
		b.WriteString("\n\n" + mutedStyle.Render("Sources for the last answer:"))
		for i, passage := range m.lastContext {
			b.WriteString(fmt.Sprintf("\n[%d] ", i+1))
			b.WriteString(wrap.Render(highlightBestSentence(passage, m.lastQuery)))
		}
	}
	return b.String()
}

func (m Model) welcome() string {
	var b strings.Builder
	b.WriteString("Welcome to BankBot. I answer banking questions only.\n\nTry asking:\n")
	for _, p := range SuggestedPrompts {
		b.WriteString("  • " + p + "\n")
	}
	if m.kbSummary != "" {
		b.WriteString("\nKnowledge base: " + m.kbSummary + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render(helpText))
	return b.String()
}

func (m Model) banner() string {
	doc := m.sess.Document()
	if doc == nil {
		return mutedStyle.Render("No document loaded. Use /upload <file>.")
	}
	line := "Document: " + doc.Name
	if terms, more := m.sess.DetectedTerms(detectedTermsShown); len(terms) > 0 {
		line += " | Banking terms detected: " + strings.Join(terms, ", ")
		if more {
			line += " and more..."
		}
	}
	return line
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	s := m.sess.Settings()
	header := titleStyle.Render("BankBot") + "  " + mutedStyle.Render(fmt.Sprintf(
		"model %s | temp %.2f | tokens %d | %s",
		m.modelName, s.Temperature, s.MaxTokens, kbLabel(m.kbStats),
	))

	status := statusStyle.Render(m.status)
	if m.statusErr {
		status = errorStyle.Render(m.status)
	}
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		bannerStyle.Width(max(20, m.width-2)).Render(m.banner()) + "\n" +
		chatBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		status
}

func kbLabel(s service.Stats) string {
	if s.Status == service.StatusActive {
		return fmt.Sprintf("KB %s (%d)", s.Status, s.Count)
	}
	return "KB " + s.Status
}

func outcomeStatus(r service.Reply) string {
	switch r.Outcome {
	case service.OutcomeFailed:
		return "Model call failed: " + r.Failure.String()
	case service.OutcomeOutOfDomain:
		return "Question is outside banking."
	case service.OutcomeFAQ:
		return "Answered from FAQ."
	case service.OutcomeBatch:
		return "Answered the document's questions."
	case service.OutcomeNoQuestions:
		return "No questions found in the document."
	case service.OutcomeNoContext:
		return "Answered without document context."
	default:
		return fmt.Sprintf("Answered using %d passage(s).", len(r.Context))
	}
}
