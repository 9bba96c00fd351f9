package telegram

import (
	"fmt"
	"strings"

	"bankbot/internal/service"
	"bankbot/internal/session"
)

// Telegram rejects messages longer than this many characters.
const maxMessageRunes = 4096

const (
	msgWelcome = "Welcome to BankBot, your banking assistant.\n\n" +
		"Ask about accounts, loans, cards, UPI, NEFT/RTGS, KYC and other banking topics.\n" +
		"Send a PDF, DOCX, TXT, Markdown or HTML file to ask questions about it, then type \"answer\" " +
		"to answer every banking question in the file.\n\n" +
		"/new - start a new chat\n/clear - remove the uploaded document\n" +
		"/transcript - download this chat\n/status - knowledge base status"
	msgNewChat         = "Started a new chat."
	msgDocumentCleared = "Document cleared."
	msgNoDocument      = "No document is loaded."
	msgUnknownCommand  = "Unknown command. Use /start to see what I can do."
	msgEmptyChat       = "Nothing to export yet."
	msgGenericError    = "Something went wrong. Please try again."
	msgFileTooLarge    = "The file is too large."
)

func documentLoaded(doc *session.Document, terms []string, more bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Loaded %s.", doc.Name)
	if len(terms) > 0 {
		b.WriteString("\nBanking terms detected: ")
		b.WriteString(strings.Join(terms, ", "))
		if more {
			b.WriteString(" and more...")
		}
	}
	if doc.Summary != "" {
		b.WriteString("\n\nSummary: ")
		b.WriteString(doc.Summary)
	}
	return b.String()
}

func knowledgeBaseStatus(stats service.Stats) string {
	if stats.Status != service.StatusActive {
		return "Knowledge base: " + stats.Status
	}
	return fmt.Sprintf("Knowledge base: %s (%d passages)", stats.Status, stats.Count)
}

// splitMessage cuts text into pieces of at most limit runes, preferring to
// break after a newline.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 || len(parts) == 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
