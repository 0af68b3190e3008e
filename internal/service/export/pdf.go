package export

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/sfnt"
)

const (
	ContentType = "application/pdf"
	fontFamily  = "DejaVu"
)

//go:embed fonts/DejaVuSansCondensed.ttf
var fontBytes []byte

var documentFont = mustParseFont(fontBytes)

// ErrUnsupportedText is returned when text holds a rune the embedded font
// has no glyph for.
var ErrUnsupportedText = errors.New("text cannot be rendered")

// documentDate is stamped into every PDF so output depends only on content.
var documentDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func mustParseFont(b []byte) *sfnt.Font {
	f, err := sfnt.Parse(b)
	if err != nil {
		panic(fmt.Sprintf("export: embedded font: %v", err))
	}
	return f
}

// Render writes doc as an A4 portrait PDF. Text is written verbatim in UTF-8;
// a rune outside the font's coverage fails with ErrUnsupportedText.
func Render(w io.Writer, doc Document) error {
	if err := checkRenderable(doc); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(documentDate)
	pdf.SetModificationDate(documentDate)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(doc.Title, true)
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontBytes)

	pdf.AddPage()
	pdf.SetFont(fontFamily, "", 12)
	pdf.CellFormat(200, 10, doc.Title, "", 1, "C", false, 0, "")
	pdf.Ln(10)
	for _, field := range doc.Fields {
		pdf.CellFormat(200, 10, field.String(), "", 1, "", false, 0, "")
	}
	pdf.Ln(10)
	pdf.MultiCell(0, 10, doc.Body, "", "", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func checkRenderable(doc Document) error {
	var buf sfnt.Buffer
	check := func(label, s string) error {
		for _, r := range s {
			if unicode.IsControl(r) {
				continue
			}
			idx, err := documentFont.GlyphIndex(&buf, r)
			if err != nil {
				return fmt.Errorf("failed to look up glyph: %w", err)
			}
			if idx == 0 {
				return fmt.Errorf("%w: %s contains %q (U+%04X)", ErrUnsupportedText, label, r, r)
			}
		}
		return nil
	}

	if err := check("title", doc.Title); err != nil {
		return err
	}
	for _, field := range doc.Fields {
		if err := check(field.Label, field.Value); err != nil {
			return err
		}
	}
	return check("summary", doc.Body)
}
