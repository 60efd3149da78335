package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-radiograph/internal/domain"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	r, err := testAssembler().Assemble(testRecord(), testOutcome(domain.DiagnosisFracture, 0.87))
	require.NoError(t, err)
	return r
}

func TestJSONExporter(t *testing.T) {
	r := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, JSONExporter{Indent: true}.Export(&buf, r))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.ID, decoded["report_id"])
	findings := decoded["findings"].(map[string]any)
	assert.Equal(t, "87.0%", findings["confidence"])
}

func TestTextExporter(t *testing.T) {
	r := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, TextExporter{}.Export(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "WONDER HEALTH HOSPITAL")
	assert.Contains(t, out, "Report #: "+r.ID)
	assert.Contains(t, out, "Classification:  FRACTURE")
	assert.Contains(t, out, "1. ACUTE FRACTURE")
	assert.Contains(t, out, "2. CLINICAL CORRELATION ADVISED")
	assert.Contains(t, out, "3. AI METHODOLOGY")
	assert.Contains(t, out, "Processing Time: 1.20 seconds")
	assert.NotContains(t, out, "<no value>")
}

type failingExporter struct{}

func (failingExporter) Format() Format { return FormatPDF }

func (failingExporter) Export(w io.Writer, _ *Report) error {
	_, _ = w.Write([]byte("%PDF-partial"))
	return errors.New("renderer crashed")
}

func TestWrite_FallsBackToPrintable(t *testing.T) {
	r := sampleReport(t)
	var buf bytes.Buffer

	used, err := Write(&buf, r, failingExporter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, FormatText, used)
	assert.NotContains(t, buf.String(), "%PDF-partial")
	assert.Contains(t, buf.String(), "RADIOLOGY REPORT")
}

func TestWrite_Primary(t *testing.T) {
	r := sampleReport(t)
	var buf bytes.Buffer

	used, err := Write(&buf, r, JSONExporter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, used)
	assert.True(t, json.Valid(buf.Bytes()))
}

// extractPDFContent returns the decoded content streams of every page in pdf.
func extractPDFContent(t *testing.T, pdf []byte) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, api.ExtractContent(bytes.NewReader(pdf), dir, "report.pdf", nil, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var sb strings.Builder
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		sb.Write(data)
	}
	return sb.String()
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range 8 {
		img.SetGray(i, i, color.Gray{Y: 255})
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))
	return domain.DataURI("image/png", base64.StdEncoding.EncodeToString(pngBuf.Bytes()))
}

func TestPDFExporter_ReportText(t *testing.T) {
	r := sampleReport(t)
	r.Figures = []Figure{{Title: "Original Radiograph", URL: pngDataURI(t)}}

	var out bytes.Buffer
	require.NoError(t, PDFExporter{}.Export(&out, r))

	content := extractPDFContent(t, out.Bytes())
	assert.Contains(t, content, r.ID)
	assert.Contains(t, content, "FRACTURE")
	assert.Contains(t, content, r.Patient.Name)
	assert.Contains(t, content, "IMPORTANT CLINICAL NOTICE")
	assert.Contains(t, content, "87.0%")
}

func TestPDFExporter_NoDecodableFigures(t *testing.T) {
	r := sampleReport(t)
	r.Figures = []Figure{{Title: "x", URL: "https://example.invalid/x.png"}}

	var out bytes.Buffer
	used, err := Write(&out, r, PDFExporter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, used)

	textPages, err := pdfTextPages(r)
	require.NoError(t, err)
	pages, err := api.PageCount(bytes.NewReader(out.Bytes()), nil)
	require.NoError(t, err)
	assert.Equal(t, len(textPages), pages)
	assert.Contains(t, extractPDFContent(t, out.Bytes()), r.ID)
}

func TestPDFExporter_Figures(t *testing.T) {
	uri := pngDataURI(t)
	r := sampleReport(t)
	r.Figures = []Figure{{Title: "Original Radiograph", URL: uri}, {Title: "Overlay", URL: uri}}

	var out bytes.Buffer
	require.NoError(t, PDFExporter{}.Export(&out, r))
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF")))

	textPages, err := pdfTextPages(r)
	require.NoError(t, err)
	pages, err := api.PageCount(bytes.NewReader(out.Bytes()), nil)
	require.NoError(t, err)
	assert.Equal(t, len(textPages)+2, pages)
}

func TestPDFSafe(t *testing.T) {
	assert.Equal(t, "224 x 224 pixels", pdfSafe("224 × 224 pixels"))
	assert.Equal(t, "A - B", pdfSafe("A • B"))
	assert.Equal(t, "87.0%% sure", pdfSafe("87.0% sure"))
	assert.Equal(t, "caf?", pdfSafe("café"))
}

func TestWrapLine(t *testing.T) {
	assert.Equal(t, []string{"short"}, wrapLine("short", 10))
	assert.Equal(t, []string{"  one two", "  three"}, wrapLine("  one two three", 10))
	assert.Equal(t, []string{"abcdefghij", "klm"}, wrapLine("abcdefghijklm", 10))

	for _, line := range wrapLine(strings.Repeat("word ", 60), pdfColumns) {
		assert.LessOrEqual(t, len(line), pdfColumns)
	}
}

func TestNewExporter(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatText, FormatPDF} {
		e, err := NewExporter(f)
		require.NoError(t, err)
		assert.Equal(t, f, e.Format())
	}
	_, err := NewExporter("docx")
	assert.Error(t, err)
}

func TestPDFExporter_SkipsUndecodableImage(t *testing.T) {
	r := sampleReport(t)
	truncated := domain.DataURI("image/png", base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n")))
	r.Figures = []Figure{{Title: "Original Radiograph", URL: truncated}, {Title: "Overlay", URL: pngDataURI(t)}}

	var out bytes.Buffer
	require.NoError(t, PDFExporter{}.Export(&out, r))

	textPages, err := pdfTextPages(r)
	require.NoError(t, err)
	pages, err := api.PageCount(bytes.NewReader(out.Bytes()), nil)
	require.NoError(t, err)
	assert.Equal(t, len(textPages)+1, pages)
}
