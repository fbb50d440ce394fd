package reports

import (
	"bytes"
	"fmt"
	"image/png"

	"lodge-ops/internal/config"
	"lodge-ops/internal/models"

	"github.com/signintech/gopdf"
)

const (
	fontName    = "dejavu"
	marginLeft  = 40.0
	rowHeight   = 18.0
	pageBottom  = 790.0
	statusColX  = 330.0
	degreeColX  = 230.0
	qrBoxSize   = 90.0
	qrBoxMargin = 40.0
)

// SheetGenerator renders the printable attendance sheet of a session.
type SheetGenerator struct {
	FontPath  string
	PublicURL string
}

func NewSheetGenerator(cfg config.ReportsConfig) *SheetGenerator {
	return &SheetGenerator{FontPath: cfg.FontPath, PublicURL: cfg.PublicURL}
}

// Generate lays out one line per member with the recorded status, or an
// empty status column when the session has not been finalized yet.
func (g *SheetGenerator) Generate(detail models.SessionDetail, members []models.Member) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont(fontName, g.FontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if err := pdf.SetFont(fontName, "", 14); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}

	qr, err := QRCodePNG(SessionURL(g.PublicURL, detail.Event.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to generate qr code: %w", err)
	}

	addSheetHeader(pdf, detail)
	addQRCode(pdf, qr)

	if err := pdf.SetFont(fontName, "", 10); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetY(150)
	addAttendanceTable(pdf, detail, members)
	addSheetFooter(pdf, detail)

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addSheetHeader(pdf *gopdf.GoPdf, detail models.SessionDetail) {
	pdf.SetX(marginLeft)
	pdf.SetY(40)
	pdf.Cell(nil, "ATTENDANCE SHEET")
	pdf.Br(24)

	status := models.SessionStatusPending
	if detail.Record != nil {
		status = detail.Record.Status
	}
	info := []struct {
		Label string
		Value string
	}{
		{"Event", detail.Event.Title},
		{"Date", detail.Event.Date},
		{"Status", string(status)},
	}
	for _, item := range info {
		pdf.SetX(marginLeft)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(18)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		return
	}
	x := gopdf.PageSizeA4.W - qrBoxMargin - qrBoxSize
	_ = pdf.ImageFrom(img, x, 30, &gopdf.Rect{W: qrBoxSize, H: qrBoxSize})
}

func addAttendanceTable(pdf *gopdf.GoPdf, detail models.SessionDetail, members []models.Member) {
	byMember := make(map[string]models.Attendance, len(detail.Attendance))
	for _, row := range detail.Attendance {
		byMember[row.BrotherID] = row
	}

	addTableHeader(pdf)
	for _, m := range members {
		if pdf.GetY()+rowHeight > pageBottom {
			pdf.AddPage()
			pdf.SetY(40)
			addTableHeader(pdf)
		}
		y := pdf.GetY()
		pdf.SetXY(marginLeft, y)
		pdf.Cell(nil, m.Name)
		pdf.SetXY(degreeColX, y)
		pdf.Cell(nil, string(m.Degree))
		pdf.SetXY(statusColX, y)
		if row, ok := byMember[m.ID]; ok {
			label := string(row.Status)
			if row.Justification != "" {
				label += " (" + row.Justification + ")"
			}
			pdf.Cell(nil, label)
		} else {
			pdf.Line(statusColX, y+12, statusColX+150, y+12)
		}
		pdf.SetY(y + rowHeight)
	}
}

func addTableHeader(pdf *gopdf.GoPdf) {
	y := pdf.GetY()
	pdf.SetXY(marginLeft, y)
	pdf.Cell(nil, "Member")
	pdf.SetXY(degreeColX, y)
	pdf.Cell(nil, "Degree")
	pdf.SetXY(statusColX, y)
	pdf.Cell(nil, "Status")
	pdf.Line(marginLeft, y+14, gopdf.PageSizeA4.W-marginLeft, y+14)
	pdf.SetY(y + rowHeight + 2)
}

func addSheetFooter(pdf *gopdf.GoPdf, detail models.SessionDetail) {
	if detail.Record == nil {
		return
	}
	pdf.Br(12)
	pdf.SetX(marginLeft)
	pdf.Cell(nil, "Beneficence collection: "+detail.Record.CharityCollection.StringFixed(2))
	if detail.Record.Observations != "" {
		pdf.Br(16)
		pdf.SetX(marginLeft)
		pdf.Cell(nil, "Observations: "+detail.Record.Observations)
	}
}
