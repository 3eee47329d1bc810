// Package export renders a single record as a printable PDF report.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
	"medisoft.com/zorgapp/internal/store"
)

const (
	fontSize   = 12
	marginLeft = 10
	marginTop  = 10
	wrapWidth  = 180
	lineHeight = 6
	fieldGap   = 4
)

type field struct {
	label string
	value string
}

func fields(r store.Record) []field {
	return []field{
		{"Type:", string(r.Type)},
		{"Client:", r.Client},
		{"Birth date:", r.BirthDate},
		{"Transcript:", r.OriginalTranscript},
		{"Analysis:", r.Analysis},
		{"Notes:", r.Notes},
		{"Tags:", r.Tags},
	}
}

// WritePDF renders the labelled record fields, wrapping long text and breaking
// pages automatically.
func WritePDF(w io.Writer, r store.Record) error {
	pdf := render(r)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func render(r store.Record) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginLeft)
	pdf.SetAutoPageBreak(true, marginTop)
	pdf.SetTitle(FileName(r), true)
	if !r.CreatedAt.IsZero() {
		pdf.SetCreationDate(r.CreatedAt)
	}
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", fontSize)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, f := range fields(r) {
		pdf.CellFormat(wrapWidth, lineHeight, tr(f.label), "", 1, "L", false, 0, "")
		if f.value != "" {
			pdf.MultiCell(wrapWidth, lineHeight, tr(f.value), "", "L", false)
		}
		pdf.Ln(fieldGap)
	}
	return pdf
}

// FileName is "<client>_report_<yyyy-mm-dd_hhmm>.pdf" with characters that are
// unsafe in file names replaced.
func FileName(r store.Record) string {
	client := sanitize(r.Client)
	if client == "" {
		client = "client"
	}
	stamp := "undated"
	if !r.CreatedAt.IsZero() {
		stamp = r.CreatedAt.Format("2006-01-02_1504")
	}
	return fmt.Sprintf("%s_report_%s.pdf", client, stamp)
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			return r
		case unicode.IsSpace(r), r == '_':
			return '_'
		default:
			return -1
		}
	}, s)
}

// FileNameIn is FileName with CreatedAt rendered in loc.
func FileNameIn(r store.Record, loc *time.Location) string {
	if loc != nil && !r.CreatedAt.IsZero() {
		r.CreatedAt = r.CreatedAt.In(loc)
	}
	return FileName(r)
}
