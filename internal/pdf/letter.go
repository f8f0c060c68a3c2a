// Package pdf renders unlocked letters to A4 documents on demand.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/diewo77/gedoc/internal/models"
	"github.com/phpdave11/gofpdf"
)

const (
	pageWidth  = 210.0
	bottomLine = 275.0
)

// Layout holds the page geometry of one product.
type Layout struct {
	Margin     float64
	LineHeight float64
	FirstY     float64
	NextPageY  float64
	Premium    bool
}

var (
	standardLayout = Layout{Margin: 20, LineHeight: 6, FirstY: 25, NextPageY: 20}
	premiumLayout  = Layout{Margin: 25, LineHeight: 7, FirstY: 35, NextPageY: 25, Premium: true}
)

// LayoutFor picks the layout matching a product code.
func LayoutFor(productType string) Layout {
	if productType == models.ProductPremium {
		return premiumLayout
	}
	return standardLayout
}

// Filename returns "<type>-gedoc.pdf" or "<type>-gedoc-premium.pdf".
// Anything outside [a-z0-9_-] becomes a dash so the name is safe in a
// Content-Disposition header.
func Filename(typeLettre, productType string) string {
	name := slug(typeLettre)
	if name == "" {
		name = "lettre"
	}
	if productType == models.ProductPremium {
		return name + "-gedoc-premium.pdf"
	}
	return name + "-gedoc.pdf"
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Render writes the letter as PDF to w.
func Render(w io.Writer, content, productType string) error {
	doc := build(content, productType)
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func build(content, productType string) *gofpdf.Fpdf {
	l := LayoutFor(productType)
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle("GEDOC", true)
	doc.SetCreator("GEDOC", true)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	if l.Premium {
		doc.SetDrawColor(33, 85, 140)
		doc.SetLineWidth(0.8)
		doc.Line(l.Margin, 15, pageWidth-l.Margin, 15)
		doc.SetFont("Helvetica", "B", 9)
		doc.SetTextColor(33, 85, 140)
		doc.Text(l.Margin, 12, tr("GEDOC — Document Officiel Premium"))
		doc.SetTextColor(30, 30, 30)
	}
	doc.SetFont("Times", "", 12)

	width := pageWidth - 2*l.Margin
	y := l.FirstY
	for _, line := range strings.Split(content, "\n") {
		if line == "" {
			line = " "
		}
		for _, wl := range doc.SplitLines([]byte(tr(line)), width) {
			if y > bottomLine {
				doc.AddPage()
				doc.SetFont("Times", "", 12)
				y = l.NextPageY
			}
			doc.Text(l.Margin, y, string(wl))
			y += l.LineHeight
		}
	}

	if l.Premium {
		total := doc.PageCount()
		for i := 1; i <= total; i++ {
			doc.SetPage(i)
			doc.SetDrawColor(33, 85, 140)
			doc.SetLineWidth(0.5)
			doc.Line(l.Margin, 285, pageWidth-l.Margin, 285)
			doc.SetFont("Helvetica", "", 8)
			doc.SetTextColor(120, 120, 120)
			doc.Text(l.Margin, 290, tr(fmt.Sprintf("Page %d/%d — Généré par GEDOC Premium", i, total)))
		}
	}

	return doc
}
