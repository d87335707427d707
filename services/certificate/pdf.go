package certificate

import (
	"fmt"
	"liftworks/models/training"
	"os"

	"github.com/go-pdf/fpdf"
)

const dateLayout = "January 2, 2006"

// Render draws the certificate as a landscape Letter PDF and returns its path.
func (s *Service) Render(cert *training.Certificate) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create certificate dir: %w", err)
	}

	pdf := fpdf.New("L", "mm", "Letter", "")
	pdf.SetTitle("Certificate "+cert.CertificateNumber, true)
	pdf.SetAuthor("LiftWorks Training", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	w, h := pdf.GetPageSize()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Border
	pdf.SetDrawColor(31, 42, 54)
	pdf.SetLineWidth(2)
	pdf.Rect(10, 10, w-20, h-20, "D")
	pdf.SetDrawColor(242, 183, 5)
	pdf.SetLineWidth(0.8)
	pdf.Rect(14, 14, w-28, h-28, "D")

	pdf.SetTextColor(31, 42, 54)
	pdf.SetXY(20, 32)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.CellFormat(w-40, 14, "Certificate of Completion", "", 1, "C", false, 0, "")

	pdf.SetX(20)
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(w-40, 8, "Powered Industrial Truck Operator Training (OSHA 29 CFR 1910.178)", "", 1, "C", false, 0, "")

	pdf.Ln(12)
	pdf.SetX(20)
	pdf.SetFont("Helvetica", "I", 14)
	pdf.CellFormat(w-40, 8, "This certifies that", "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetX(20)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.CellFormat(w-40, 14, tr(cert.HolderName), "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetX(20)
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(w-40, 8, "has successfully completed the formal instruction and final examination for", "", 1, "C", false, 0, "")
	pdf.SetX(20)
	pdf.SetFont("Helvetica", "B", 17)
	pdf.CellFormat(w-40, 10, tr(cert.CourseTitle), "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetX(20)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(w-40, 8, fmt.Sprintf("Final exam score: %d%%", cert.Score), "", 1, "C", false, 0, "")

	// Details row
	colW := (w - 40) / 3
	pdf.SetXY(20, h-62)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(colW, 6, "Certificate No.", "", 0, "C", false, 0, "")
	pdf.CellFormat(colW, 6, "Issued", "", 0, "C", false, 0, "")
	pdf.CellFormat(colW, 6, "Expires", "", 1, "C", false, 0, "")
	pdf.SetX(20)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(colW, 6, cert.CertificateNumber, "", 0, "C", false, 0, "")
	pdf.CellFormat(colW, 6, cert.IssuedAt.Format(dateLayout), "", 0, "C", false, 0, "")
	pdf.CellFormat(colW, 6, cert.ExpiresAt.Format(dateLayout), "", 1, "C", false, 0, "")

	pdf.SetXY(20, h-44)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(w-40, 5,
		"Operator authorization also requires a practical evaluation by the employer at the workplace. "+
			"Verify this certificate at "+s.VerifyURL(cert.CertificateNumber), "", "C", false)

	path := s.pdfFile(cert.CertificateNumber)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write certificate pdf: %w", err)
	}
	return path, nil
}
