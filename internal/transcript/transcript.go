package transcript

import (
	"errors"
	"fmt"
	"strings"

	"bankbot/internal/domain"
)

var ErrUnsupportedFormat = errors.New("unsupported transcript format")

type Format string

const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Formatter renders a conversation into a downloadable file.
type Formatter interface {
	Format(title string, messages []domain.Message) ([]byte, error)
	ContentType() string
	FileExtension() string
}

func ForFormat(format Format) (Formatter, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatText, "":
		return TextFormatter{}, nil
	case FormatPDF:
		return PDFFormatter{}, nil
	case FormatDOCX:
		return DOCXFormatter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Text renders messages as "USER: ..." / "ASSISTANT: ..." lines.
func Text(messages []domain.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, strings.ToUpper(string(m.Role))+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

type TextFormatter struct{}

func (TextFormatter) Format(_ string, messages []domain.Message) ([]byte, error) {
	return []byte(Text(messages)), nil
}

func (TextFormatter) ContentType() string   { return "text/plain; charset=utf-8" }
func (TextFormatter) FileExtension() string { return ".txt" }
