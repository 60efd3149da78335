package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/template"
)

// Format names an export representation.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
)

// Exporter renders a report into w.
type Exporter interface {
	Format() Format
	Export(w io.Writer, r *Report) error
}

// NewExporter returns the exporter for format.
func NewExporter(format Format) (Exporter, error) {
	switch format {
	case FormatJSON:
		return JSONExporter{Indent: true}, nil
	case FormatText:
		return TextExporter{}, nil
	case FormatPDF:
		return PDFExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// Write exports r with primary. If primary fails, the printable text rendering
// is written instead so the report is never lost. It returns the format
// actually written.
func Write(w io.Writer, r *Report, primary Exporter, logger *slog.Logger) (Format, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var buf bytes.Buffer
	used := primary.Format()
	if err := primary.Export(&buf, r); err != nil {
		logger.Warn("report export failed, falling back to printable text",
			"format", string(primary.Format()),
			"report_id", r.ID,
			"error", err)
		buf.Reset()
		if ferr := (TextExporter{}).Export(&buf, r); ferr != nil {
			return "", fmt.Errorf("export %s: %w (printable fallback: %w)", primary.Format(), err, ferr)
		}
		used = FormatText
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return used, nil
}

// JSONExporter writes the report as a JSON document.
type JSONExporter struct {
	Indent bool
}

// Format implements Exporter.
func (JSONExporter) Format() Format { return FormatJSON }

// Export implements Exporter.
func (e JSONExporter) Export(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	if e.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(r)
}

// TextExporter writes the printable plain-text rendering.
type TextExporter struct{}

// Format implements Exporter.
func (TextExporter) Format() Format { return FormatText }

// Export implements Exporter.
func (TextExporter) Export(w io.Writer, r *Report) error {
	if r == nil {
		return errors.New("nil report")
	}
	return printable.Execute(w, r)
}

var printable = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"upper": strings.ToUpper,
}).Parse(printableTemplate))

const printableTemplate = `{{upper .Facility.Name}}
{{.Facility.Department}}
{{.Facility.Address}}
Phone: {{.Facility.Phone}} | Fax: {{.Facility.Fax}}

RADIOLOGY REPORT
Report #: {{.ID}}

PATIENT INFORMATION
  Name:        {{.Patient.Name}}
  MRN:         {{.Patient.MRN}}
  DOB:         {{.Patient.DOB}}
  Age:         {{.Patient.Age}}
  Sex:         {{.Patient.Sex}}
  Study Date:  {{.StudyDate}}

STUDY INFORMATION
  Exam Type:           {{.Study.ExamType}}
  Study Date/Time:     {{.Study.DateTime}}
  Ordering Physician:  {{.Study.OrderingPhysician}}
  Reading Radiologist: {{.Study.ReadingRadiologist}}
  Report Status:       {{.Status}}
  Report Date:         {{.Study.ReportDate}}

CLINICAL HISTORY
{{.ClinicalHistory}}

TECHNIQUE
{{.Technique}}

FINDINGS
  Classification:  {{.Findings.Classification}}
  Confidence:      {{.Findings.Confidence}}
  Processing Time: {{.Findings.ProcessingTime}}

{{.Findings.Summary}}

{{.Findings.AttentionNote}}

RECOMMENDATION: {{.Findings.Recommendation}}

IMAGES
{{- range .Figures}}
  {{.Title}}: {{.Caption}}
{{- end}}

IMPRESSION
{{- range $i, $item := .Impression}}
  {{inc $i}}. {{$item}}
{{- end}}

RECOMMENDATIONS
{{- range .Recommendations}}
  - {{.}}
{{- end}}

TECHNICAL PARAMETERS
  AI Model:         {{.Technical.Model}}
  Input Resolution: {{.Technical.InputResolution}}
  Processing Time:  {{.Technical.ProcessingTime}}
  Analysis Method:  {{.Technical.Method}}
  Visualization:    {{.Technical.Visualization}}

IMPORTANT CLINICAL NOTICE
{{.Disclaimer}}

ELECTRONICALLY SIGNED BY: {{.Study.ReadingRadiologist}}
Signed: {{.StudyDate}} at {{.StudyTime}}
Report ID: {{.ID}}

{{.Footer}}
`

func decodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, errors.New("not a data uri")
	}
	_, payload, ok := strings.Cut(uri, ";base64,")
	if !ok {
		return nil, errors.New("data uri is not base64")
	}
	return base64.StdEncoding.DecodeString(payload)
}
