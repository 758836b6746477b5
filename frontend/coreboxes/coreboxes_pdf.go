package coreboxes

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
)

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}

// renderCoreBoxLabelsPDF prints one landscape label per box with the work
// order as a code128 barcode.
func renderCoreBoxLabelsPDF(boxes []backend.CoreBox, printedAt time.Time) ([]byte, error) {
	if len(boxes) == 0 {
		return nil, fmt.Errorf("no core box labels to render")
	}

	pdf := gofpdf.New("L", "mm", "A5", "")
	pdf.SetTitle("Core Box Labels", false)
	pdf.SetAutoPageBreak(false, 0)
	for i, box := range boxes {
		if err := addCoreBoxLabelPage(pdf, box, printedAt, i); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func addCoreBoxLabelPage(pdf *gofpdf.Fpdf, box backend.CoreBox, printedAt time.Time, pageIndex int) error {
	workOrder := strings.TrimSpace(box.WorkOrder)
	if workOrder == "" {
		return fmt.Errorf("core box %d has no work order", box.ID)
	}
	barcodePNG, err := renderCode128PNG(workOrder, 1200, 240)
	if err != nil {
		return fmt.Errorf("barcode for %s: %w", workOrder, err)
	}
	project := strings.TrimSpace(box.Project)
	if project == "" {
		project = "Unnamed Project"
	}
	year := "-"
	if box.Year > 0 {
		year = strconv.Itoa(box.Year)
	}

	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()
	margin := 8.0
	x0, y0 := margin, margin
	w0, h0 := pageW-2*margin, pageH-2*margin

	pdf.SetLineWidth(0.35)
	pdf.Rect(x0, y0, w0, h0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(80, 80, 80)
	pdf.SetXY(x0+w0-60, y0+2)
	pdf.CellFormat(58, 5, "GEOLABS CORE BOX", "", 0, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	woFont := fitFontSizeForWidth(pdf, "Helvetica", "B", 40, 20, workOrder, w0-8)
	pdf.SetFont("Helvetica", "B", woFont)
	pdf.SetXY(x0+4, y0+8)
	pdf.CellFormat(w0-8, 18, workOrder, "", 0, "L", false, 0, "")

	projectFont := fitFontSizeForWidth(pdf, "Helvetica", "B", 18, 9, project, w0-8)
	pdf.SetFont("Helvetica", "B", projectFont)
	pdf.SetXY(x0+4, y0+28)
	pdf.CellFormat(w0-8, 9, project, "", 0, "L", false, 0, "")

	half := (w0 - 8) / 2
	fields := [][2]string{
		{"Island", orDash(box.Island)},
		{"Year", year},
		{"Engineer", orDash(box.Engineer)},
		{"Report submitted", orDash(box.ReportSubmissionDate)},
		{"Storage expiry", orDash(box.StorageExpiryDate)},
		{"Keep or dump", orDash(box.KeepOrDump)},
	}
	y := y0 + 40
	for i, f := range fields {
		x := x0 + 4
		if i%2 == 1 {
			x += half
		}
		pdf.SetXY(x, y)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(30, 6, f[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(half-30, 6, f[1], "", 0, "L", false, 0, "")
		if i%2 == 1 {
			y += 7
		}
	}

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	imageName := "corebox-barcode-" + strconv.Itoa(pageIndex)
	pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
	imgW := w0 - 40
	imgH := 30.0
	imgY := pageH - margin - imgH - 14
	pdf.ImageOptions(imageName, x0+20, imgY, imgW, imgH, false, opt, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(x0+4, imgY+imgH+2)
	pdf.CellFormat(w0-8, 5, workOrder+"   printed "+printedAt.Format("01/02/2006"), "", 0, "C", false, 0, "")
	return nil
}

func fitFontSizeForWidth(pdf *gofpdf.Fpdf, family, style string, base, min float64, text string, maxWidth float64) float64 {
	if maxWidth <= 0 {
		return min
	}
	size := base
	pdf.SetFont(family, style, size)
	for size > min && pdf.GetStringWidth(text) > maxWidth {
		size -= 0.5
		pdf.SetFont(family, style, size)
	}
	return size
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	var barcodePNG bytes.Buffer
	if err := png.Encode(&barcodePNG, toNRGBA(scaled)); err != nil {
		return nil, err
	}
	return barcodePNG.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
