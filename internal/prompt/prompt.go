package prompt

import (
	"strings"

	"bankbot/internal/domain"
)

const (
	OutOfDomainReply = "I can assist only with banking-related queries."
	NotFoundReply    = "Answer not found in the provided document."
	NoQuestionsReply = "No banking-related questions were found in the uploaded document."

	contextHeader = "Context from uploaded file:"
)

// SystemPrompt restricts the model to banking topics.
const SystemPrompt = "You are BankBot, a restricted banking assistant.\n" +
	"You must answer only banking, finance, or account-related questions.\n" +
	"If the question is not related to banking, reply exactly:\n" +
	"\"" + OutOfDomainReply + "\"\n" +
	"Do not provide programming, medical, legal, personal, or general knowledge answers.\n" +
	"Do not speculate or invent information.\n" +
	"Be helpful, professional, and concise in your banking responses."

// DefaultPolicy is SystemPrompt plus the rule that document answers come only
// from the supplied context.
const DefaultPolicy = SystemPrompt + "\n\nSTRICT RULE:\n" +
	"If document context is provided, answer ONLY from it.\n" +
	"If the answer is not present, reply exactly:\n" +
	"\"" + NotFoundReply + "\"\n"

// Envelope is everything the model sees for one question.
type Envelope struct {
	Policy  string
	Context string
	Query   string
}

// New builds an envelope with DefaultPolicy.
func New(context, query string) Envelope {
	return Envelope{Policy: DefaultPolicy, Context: context, Query: query}
}

func (e Envelope) policy() string {
	if e.Policy == "" {
		return DefaultPolicy
	}
	return e.Policy
}

// String renders the single-string form used by completion endpoints.
func (e Envelope) String() string {
	var b strings.Builder
	b.WriteString(e.policy())
	if e.Context != "" {
		b.WriteString(contextHeader)
		b.WriteString("\n")
		b.WriteString(e.Context)
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(e.Query)
	b.WriteString("\nAssistant:")
	return b.String()
}

// Messages renders the role-tagged form used by chat endpoints. The context
// block travels with the system message.
func (e Envelope) Messages() []domain.Message {
	system := e.policy()
	if e.Context != "" {
		system += contextHeader + "\n" + e.Context
	}
	return []domain.Message{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleUser, Content: e.Query},
	}
}

// Build renders a completion prompt for the given policy, context and query.
func Build(policy, context, query string) string {
	return Envelope{Policy: policy, Context: context, Query: query}.String()
}
