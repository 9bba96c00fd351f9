package transcript

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"bankbot/internal/domain"
)

// PDFFormatter uses the core Helvetica font; characters outside cp1252 are
// replaced by the translator.
type PDFFormatter struct{}

func (PDFFormatter) Format(title string, messages []domain.Message) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)

	for _, m := range messages {
		label := "You"
		if m.Role == domain.RoleAssistant {
			label = "BankBot"
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 6, tr(label+" - "+m.At.Format("15:04")))
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, tr(m.Content), "", "", false)
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (PDFFormatter) ContentType() string   { return "application/pdf" }
func (PDFFormatter) FileExtension() string { return ".pdf" }
