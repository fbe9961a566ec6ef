package infra

// pdf.go: complaint acknowledgement receipt rendered with go-pdf/fpdf.
// A5 portrait page with:
//   - Company header and receipt title
//   - Complaint number and submission timestamp
//   - Customer and product details table
//   - Description excerpt and tracking instructions

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"github.com/go-pdf/fpdf"
)

var complaintTypeLabels = map[string]string{
	"germination":  "Daya tumbuh / germination",
	"purity":       "Kemurnian / purity",
	"pest_disease": "Hama & penyakit / pest & disease",
	"packaging":    "Kemasan / packaging",
	"other":        "Lainnya / other",
}

// ComplaintReceiptPDF renders the acknowledgement sent to a customer after a
// complaint is filed and returns the PDF bytes.
func ComplaintReceiptPDF(c *model.Complaint, companyName string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	if companyName == "" {
		companyName = "Seed Quality Assurance"
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, companyName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Tanda Terima Pengaduan / Complaint Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(3)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(3)

	// ── Complaint number ─────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 6, "No. "+c.ComplaintNumber, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, c.CreatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	// ── Details ──────────────────────────────────────────────────────────────
	labelW := contentW * 0.35
	valueW := contentW - labelW
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(labelW, 6, label, "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(valueW, 6, truncate(value, 60), "1", 1, "L", false, 0, "")
	}
	row("Nama", c.CustomerName)
	row("Telepon", c.CustomerPhone)
	row("Nomor Lot", c.LotNumber)
	if c.SerialNumber != nil {
		row("No Seri", fmt.Sprintf("%d", *c.SerialNumber))
	}
	row("Varietas", c.Variety)
	row("Jenis Pengaduan", complaintTypeLabels[c.ComplaintType])
	row("Status", c.Status)

	// ── Description ──────────────────────────────────────────────────────────
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Keterangan", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.MultiCell(contentW, 4, truncate(c.Description, 600), "", "L", false)

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.MultiCell(contentW, 4,
		"Simpan nomor pengaduan ini. Status dapat dilacak dengan nomor pengaduan dan nomor telepon Anda.",
		"", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
