package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/go-pdf/fpdf"

	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// qrSize is the QR code edge in pixels before it is placed on the page
const qrSize = 200

var pageTemplate = template.Must(template.New("office-order").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Office Order {{.CoverPageNo}}</title></head>
<body>
{{- if .Header}}
<header>{{.Header}}</header>
{{- end}}
<div class="meta">
<span class="ref">No. {{.ReferenceNumber}}</span>
<span class="date">{{.Date}}</span>
</div>
{{- if .Subject}}
<h3 class="subject">Subject: {{.Subject}}</h3>
{{- end}}
{{- if .ReferenceText}}
<p class="reference">Ref: {{.ReferenceText}}</p>
{{- end}}
<section class="body">{{.Body}}</section>
{{- if .Visit}}
<p class="visit">{{.Visit}}</p>
{{- end}}
<div class="signatory">{{.SigningAuthority}}</div>
{{- if .ToSection}}
<div class="to"><p>To:</p>{{.ToSection}}</div>
{{- end}}
{{- if .Footer}}
<footer>{{.Footer}}</footer>
{{- end}}
</body>
</html>
`))

type pageData struct {
	CoverPageNo      string
	Header           string
	ReferenceNumber  string
	Date             string
	Subject          string
	ReferenceText    string
	Body             template.HTML
	Visit            string
	SigningAuthority string
	ToSection        template.HTML
	Footer           string
}

// RenderHTML renders the office order of task as a standalone HTML page.
// The task is not modified.
func RenderHTML(task *entity.Task) ([]byte, error) {
	body := document.Cleanup(task.OfficeOrder.Body, task.OfficeOrder.SigningAuthority)

	data := pageData{
		CoverPageNo:     task.CoverPageNo,
		Header:          task.OfficeOrder.Header,
		ReferenceNumber: referenceOf(task),
		Date:            formatDate(issueDate(task)),
		Subject:         task.OfficeOrder.Subject,
		ReferenceText:   task.OfficeOrder.ReferenceText,
		// both renderers escape every text node
		Body:             template.HTML(document.RenderHTML(body)),
		Visit:            visitLine(task),
		SigningAuthority: task.OfficeOrder.SigningAuthority,
		ToSection:        template.HTML(document.RenderList(true, task.OfficeOrder.ToSection)),
		Footer:           task.OfficeOrder.Footer,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render office order html: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF renders the office order of task as an A4 PDF with a QR code of the
// cover page number. The task is not modified.
func RenderPDF(task *entity.Task) ([]byte, error) {
	body := document.Cleanup(task.OfficeOrder.Body, task.OfficeOrder.SigningAuthority)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Office Order "+task.CoverPageNo, true)
	if issued := issueDate(task); !issued.IsZero() {
		pdf.SetCreationDate(issued)
	}
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if task.CoverPageNo != "" {
		if err := placeQR(pdf, task.CoverPageNo); err != nil {
			return nil, err
		}
	}

	if task.OfficeOrder.Header != "" {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, tr(task.OfficeOrder.Header), "", "C", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(120, 6, tr("No. "+referenceOf(task)), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, formatDate(issueDate(task)), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	if task.OfficeOrder.Subject != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, tr("Subject: "+task.OfficeOrder.Subject), "", "L", false)
		pdf.Ln(2)
	}
	if task.OfficeOrder.ReferenceText != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, tr("Ref: "+task.OfficeOrder.ReferenceText), "", "L", false)
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, b := range body.Blocks {
		writeBlock(pdf, tr, b)
	}
	if line := visitLine(task); line != "" {
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
		pdf.Ln(2)
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.MultiCell(0, 6, tr(task.OfficeOrder.SigningAuthority), "", "R", false)

	if len(task.OfficeOrder.ToSection) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, "To:", "", 1, "L", false, 0, "")
		for i, entry := range task.OfficeOrder.ToSection {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%d. %s", i+1, entry)), "", "L", false)
		}
	}

	if task.OfficeOrder.Footer != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(task.OfficeOrder.Footer), "", "C", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render office order pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBlock(pdf *fpdf.Fpdf, tr func(string) string, b document.Block) {
	switch b.Kind {
	case document.KindHeading:
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 7, tr(b.Text), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
	case document.KindParagraph:
		pdf.MultiCell(0, 6, tr(b.Text), "", "J", false)
	case document.KindList:
		for i, item := range b.Items {
			bullet := "-"
			if b.Ordered {
				bullet = fmt.Sprintf("%d.", i+1)
			}
			pdf.MultiCell(0, 6, tr(bullet+" "+item), "", "L", false)
		}
	case document.KindTable:
		writeTable(pdf, tr, b)
	}
	pdf.Ln(2)
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, b document.Block) {
	cols := len(b.Header)
	for _, row := range b.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return
	}

	left, _, right, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	width := (pageWidth - left - right) / float64(cols)

	if len(b.Header) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		for i := 0; i < cols; i++ {
			pdf.CellFormat(width, 7, tr(cell(b.Header, i)), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range b.Rows {
		for i := 0; i < cols; i++ {
			pdf.CellFormat(width, 7, tr(cell(row, i)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetFont("Helvetica", "", 11)
}

func placeQR(pdf *fpdf.Fpdf, content string) error {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return fmt.Errorf("failed to encode qr code: %w", err)
	}
	code, err = barcode.Scale(code, qrSize, qrSize)
	if err != nil {
		return fmt.Errorf("failed to scale qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return fmt.Errorf("failed to encode qr png: %w", err)
	}

	pageWidth, _ := pdf.GetPageSize()
	options := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", options, &buf)
	pdf.ImageOptions("qr", pageWidth-40, 8, 22, 22, false, options, 0, "")
	return pdf.Error()
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func referenceOf(task *entity.Task) string {
	if task.OfficeOrder.ReferenceNumber != "" {
		return task.OfficeOrder.ReferenceNumber
	}
	return task.CoverPageNo
}

// issueDate is the last update, falling back to initiation; drafts have neither
func issueDate(task *entity.Task) time.Time {
	if !task.UpdatedOn.IsZero() {
		return task.UpdatedOn
	}
	return task.InitiatedOn
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006")
}

func visitLine(task *entity.Task) string {
	v := task.Visit
	if v.From.IsZero() || v.To.IsZero() {
		return ""
	}

	place := strings.Join(nonBlank(v.City, v.Country), ", ")
	line := fmt.Sprintf("Period of visit: %s to %s (%d days)",
		formatDate(v.From), formatDate(v.To), task.Duration())
	if place != "" {
		line += ", " + place
	}
	if v.NatureOfVisit != "" {
		line += " for " + v.NatureOfVisit
	}
	return line + "."
}

func nonBlank(values ...string) []string {
	var out []string
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
