package export

import (
	"io"

	"github.com/go-pdf/fpdf"

	"teamreports/internal/core"
)

const (
	pdfFont      = "Helvetica"
	pdfTitleSize = 16
	pdfBodySize  = 12
	pdfMargin    = 15.0
)

func (r *Renderer) renderPDF(w io.Writer, entries []core.AggregateEntry) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	now := r.now()
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(Title, true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont(pdfFont, "", pdfTitleSize)
	pdf.CellFormat(0, 10, Title, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont(pdfFont, "", pdfBodySize)
	for _, e := range entries {
		pdf.CellFormat(0, 7, tr(EntryLine(e)), "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}
