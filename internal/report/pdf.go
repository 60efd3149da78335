package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// PDF text page geometry for 9pt Courier on A4 portrait.
const (
	pdfPaper        = "A4P"
	pdfFont         = "Courier"
	pdfFontSize     = 9
	pdfMargin       = 36
	pdfColumns      = 92
	pdfLinesPerPage = 60
)

var disablePDFConfigDir sync.Once

// PDFExporter writes the printable report as PDF text pages followed by one
// page per figure. Figures that are not base64 data URIs of a GIF, JPEG or PNG
// image are skipped; the text pages are always present.
type PDFExporter struct{}

// Format implements Exporter.
func (PDFExporter) Format() Format { return FormatPDF }

// Export implements Exporter.
func (PDFExporter) Export(w io.Writer, r *Report) error {
	if r == nil {
		return errors.New("nil report")
	}
	disablePDFConfigDir.Do(api.DisableConfigDir)

	pages, err := pdfTextPages(r)
	if err != nil {
		return err
	}
	layout, err := pdfLayoutJSON(pages)
	if err != nil {
		return err
	}

	var text bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(layout), &text, nil); err != nil {
		return fmt.Errorf("render pdf text: %w", err)
	}

	var images []io.Reader
	for _, fig := range r.Figures {
		data, err := decodeDataURI(fig.URL)
		if err != nil {
			continue
		}
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			continue
		}
		images = append(images, bytes.NewReader(data))
	}
	if len(images) == 0 {
		_, err := w.Write(text.Bytes())
		return err
	}

	if err := api.ImportImages(bytes.NewReader(text.Bytes()), w, images, pdfcpu.DefaultImportConfig(), nil); err != nil {
		return fmt.Errorf("render pdf figures: %w", err)
	}
	return nil
}

// pdfTextPages renders the printable layout and splits it into page-sized
// chunks of wrapped, PDF-safe lines.
func pdfTextPages(r *Report) ([]string, error) {
	var buf bytes.Buffer
	if err := (TextExporter{}).Export(&buf, r); err != nil {
		return nil, err
	}

	var lines []string
	for line := range strings.SplitSeq(pdfSafe(buf.String()), "\n") {
		lines = append(lines, wrapLine(line, pdfColumns)...)
	}

	var pages []string
	for start := 0; start < len(lines); start += pdfLinesPerPage {
		end := min(start+pdfLinesPerPage, len(lines))
		pages = append(pages, strings.Join(lines[start:end], "\n"))
	}
	return pages, nil
}

type pdfLayout struct {
	Paper string             `json:"paper"`
	Pages map[string]pdfPage `json:"pages"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfContent struct {
	Text []pdfTextBox `json:"text"`
}

type pdfTextBox struct {
	Value  string        `json:"value"`
	Anchor string        `json:"anchor"`
	Align  string        `json:"align"`
	Font   pdfFontSpec   `json:"font"`
	Margin pdfMarginSpec `json:"margin"`
}

type pdfFontSpec struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type pdfMarginSpec struct {
	Width float64 `json:"width"`
}

// pdfLayoutJSON describes one anchored text box per page in pdfcpu's create format.
func pdfLayoutJSON(pages []string) ([]byte, error) {
	layout := pdfLayout{Paper: pdfPaper, Pages: make(map[string]pdfPage, len(pages))}
	for i, text := range pages {
		layout.Pages[strconv.Itoa(i+1)] = pdfPage{Content: pdfContent{Text: []pdfTextBox{{
			Value:  text,
			Anchor: "topLeft",
			Align:  "left",
			Font:   pdfFontSpec{Name: pdfFont, Size: pdfFontSize},
			Margin: pdfMarginSpec{Width: pdfMargin},
		}}}}
	}
	return json.Marshal(layout)
}

var pdfReplacements = strings.NewReplacer(
	"×", "x",
	"•", "-",
	"–", "-",
	"—", "-",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"\r", "",
	"\t", "    ",
	// pdfcpu expands %p, %P, %t and %v and drops a lone '%'.
	"%", "%%",
)

// pdfSafe reduces s to printable ASCII, the subset every standard PDF font renders.
func pdfSafe(s string) string {
	s = pdfReplacements.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || (r >= 0x20 && r < 0x7f):
			b.WriteRune(r)
		case r == utf8.RuneError || r >= 0x7f:
			b.WriteByte('?')
		}
	}
	return b.String()
}

// wrapLine breaks line at word boundaries so no piece exceeds width,
// keeping the original indentation on continuation lines.
func wrapLine(line string, width int) []string {
	if len(line) <= width {
		return []string{line}
	}
	indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
	if len(indent) >= width/2 {
		indent = ""
	}

	var out []string
	cur := indent
	for _, word := range strings.Fields(line) {
		for len(indent)+len(word) > width {
			if strings.TrimSpace(cur) != "" {
				out = append(out, cur)
			}
			cut := width - len(indent)
			out = append(out, indent+word[:cut])
			word = word[cut:]
			cur = indent
		}
		switch {
		case strings.TrimSpace(cur) == "":
			cur = indent + word
		case len(cur)+1+len(word) > width:
			out = append(out, cur)
			cur = indent + word
		default:
			cur += " " + word
		}
	}
	if strings.TrimSpace(cur) != "" {
		out = append(out, cur)
	}
	return out
}
