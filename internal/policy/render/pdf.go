// Package render produces the downloadable policy document.
package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"policydesk/internal/policy/models"
)

const (
	title      = "Seguros Atlas - Póliza"
	dateLayout = "2/1/2006"
)

var footer = []string{
	"Este documento es un ejemplo generado desde el ambiente de demostración.",
	"Para efectos oficiales, consulta la póliza emitida en los sistemas centrales.",
}

// PDF renders a single-page policy summary with the core Helvetica fonts.
type PDF struct{}

func NewPDF() *PDF { return &PDF{} }

func (PDF) ContentType() string { return "application/pdf" }

// Render lays out the policy. Text goes through a cp1252 translator so accented
// Spanish renders with the core fonts.
func (PDF) Render(p *models.Policy) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("policydesk", true)
	pdf.SetCreationDate(p.EffectiveDate)
	pdf.SetModificationDate(p.EffectiveDate)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetMargins(18, 20, 18)

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(115, 82, 59)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(0, 8, tr("Póliza "+p.PolicyNumber), "", 1, "L", false, 0, "")

	pdf.SetDrawColor(230, 179, 102)
	pdf.SetLineWidth(0.4)
	y := pdf.GetY() + 2
	pdf.Line(18, y, 192, y)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	rows := []string{
		"Asegurado: " + p.InsuredName,
		"Producto: " + p.ProductName,
		"Número de póliza: " + p.PolicyNumber,
		fmt.Sprintf("Vigencia: %s  a  %s", p.EffectiveDate.Format(dateLayout), p.ExpiryDate.Format(dateLayout)),
		"ID de póliza interno: " + p.ID.String(),
	}
	if p.NotificationEmail != "" {
		rows = append(rows, "Correo de envío: "+p.NotificationEmail)
	}
	rows = append(rows, "")
	rows = append(rows, footer...)
	for _, row := range rows {
		pdf.CellFormat(0, 6, tr(row), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render policy pdf: %w", err)
	}
	return buf.Bytes(), nil
}
