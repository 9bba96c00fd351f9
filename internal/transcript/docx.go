package transcript

import (
	"bytes"

	docx "github.com/fumiama/go-docx"

	"bankbot/internal/domain"
)

type DOCXFormatter struct{}

func (DOCXFormatter) Format(title string, messages []domain.Message) ([]byte, error) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().AddText(title).Bold().Size("32")

	for _, m := range messages {
		label := "You"
		if m.Role == domain.RoleAssistant {
			label = "BankBot"
		}
		p := w.AddParagraph()
		p.AddText(label + ": ").Bold()
		p.AddText(m.Content)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (DOCXFormatter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}
func (DOCXFormatter) FileExtension() string { return ".docx" }
