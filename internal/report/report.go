// Package report assembles the clinical report for a completed analysis and
// exports it as structured JSON, printable text, or a PDF of the study figures.
//
// Assembly is a pure function of the patient record, the analysis outcome,
// and the wall-clock time at the call.
package report

import (
	"fmt"
	"time"

	"github.com/ahrav/go-radiograph/internal/domain"
)

// Layouts for the rendered dates and times.
const (
	StudyDateLayout  = "January 2, 2006"
	StudyTimeLayout  = "03:04 PM"
	ReportDateLayout = "Monday, January 2, 2006"
)

// Report status printed on every assembled report.
const StatusFinal = "FINAL"

// Facility is the letterhead printed on reports.
type Facility struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Fax        string `json:"fax"`
}

// Config holds the fixed report content that does not come from the analysis.
type Config struct {
	Facility           Facility
	ExamType           string
	OrderingPhysician  string
	ReadingRadiologist string
	ModelName          string
	InputResolution    string
	DefaultHistory     string
	Location           *time.Location
}

// DefaultConfig returns the standard letterhead and study defaults.
func DefaultConfig() Config {
	return Config{
		Facility: Facility{
			Name:       "Wonder Health Hospital",
			Department: "Department of Radiology",
			Address:    "123 Medical Center Drive, Healthcare City, HC 12345",
			Phone:      "(555) 123-4567",
			Fax:        "(555) 123-4568",
		},
		ExamType:           "X-RAY WRIST",
		OrderingPhysician:  "Dr. Emergency Medicine",
		ReadingRadiologist: "Dr. AI Radiologist, MD",
		ModelName:          "DenseNet121",
		InputResolution:    "224 × 224 pixels",
		DefaultHistory:     "Patient presents with wrist pain following trauma. Rule out fracture.",
		Location:           time.Local,
	}
}

// Report is the literal field set rendered by every exporter.
type Report struct {
	ID              string         `json:"report_id"`
	Status          string         `json:"status"`
	GeneratedAt     time.Time      `json:"generated_at"`
	StudyDate       string         `json:"study_date"`
	StudyTime       string         `json:"study_time"`
	ReportDate      string         `json:"report_date"`
	Facility        Facility       `json:"facility"`
	Patient         PatientSection `json:"patient"`
	Study           StudySection   `json:"study"`
	ClinicalHistory string         `json:"clinical_history"`
	Technique       string         `json:"technique"`
	Findings        Findings       `json:"findings"`
	Figures         []Figure       `json:"figures"`
	Impression      []string       `json:"impression"`
	Recommendations []string       `json:"recommendations"`
	Technical       Technical      `json:"technical"`
	Disclaimer      string         `json:"disclaimer"`
	Footer          string         `json:"footer"`
}

// PatientSection is the demographics block.
type PatientSection struct {
	Name string `json:"name"`
	MRN  string `json:"mrn"`
	DOB  string `json:"dob"`
	Age  string `json:"age"`
	Sex  string `json:"sex"`
}

// StudySection describes the examination.
type StudySection struct {
	ExamType           string `json:"exam_type"`
	DateTime           string `json:"date_time"`
	OrderingPhysician  string `json:"ordering_physician"`
	ReadingRadiologist string `json:"reading_radiologist"`
	ReportDate         string `json:"report_date"`
}

// Findings carries the diagnosis-dependent narrative.
type Findings struct {
	Classification string `json:"classification"`
	Positive       bool   `json:"positive"`
	Confidence     string `json:"confidence"`
	ProcessingTime string `json:"processing_time"`
	Summary        string `json:"summary"`
	AttentionNote  string `json:"attention_note"`
	Recommendation string `json:"recommendation"`
}

// Figure is an image reference included in the report.
type Figure struct {
	Title   string `json:"title"`
	Caption string `json:"caption"`
	URL     string `json:"url"`
}

// Technical lists the analysis parameters.
type Technical struct {
	Model           string `json:"model"`
	InputResolution string `json:"input_resolution"`
	ProcessingTime  string `json:"processing_time"`
	Method          string `json:"method"`
	Visualization   string `json:"visualization"`
}

// Assembler builds reports. It holds no mutable state.
type Assembler struct {
	cfg Config
	now func() time.Time
}

// NewAssembler creates an assembler; zero-valued fields of cfg fall back to DefaultConfig.
func NewAssembler(cfg Config) *Assembler {
	def := DefaultConfig()
	if cfg.Facility == (Facility{}) {
		cfg.Facility = def.Facility
	}
	if cfg.ExamType == "" {
		cfg.ExamType = def.ExamType
	}
	if cfg.OrderingPhysician == "" {
		cfg.OrderingPhysician = def.OrderingPhysician
	}
	if cfg.ReadingRadiologist == "" {
		cfg.ReadingRadiologist = def.ReadingRadiologist
	}
	if cfg.ModelName == "" {
		cfg.ModelName = def.ModelName
	}
	if cfg.InputResolution == "" {
		cfg.InputResolution = def.InputResolution
	}
	if cfg.DefaultHistory == "" {
		cfg.DefaultHistory = def.DefaultHistory
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	return &Assembler{cfg: cfg, now: time.Now}
}

// Assemble derives the report for a complete record and a successful outcome.
// A missing outcome returns domain.ErrNoOutcomeToReport.
func (a *Assembler) Assemble(record *domain.PatientRecord, outcome *domain.AnalysisOutcome) (*Report, error) {
	if outcome == nil {
		return nil, domain.ErrNoOutcomeToReport
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	now := a.now().In(a.cfg.Location)
	studyDate := now.Format(StudyDateLayout)
	studyTime := now.Format(StudyTimeLayout)
	reportDate := now.Format(ReportDateLayout)
	confidence := outcome.ConfidencePercent()
	processing := fmt.Sprintf("%.2f seconds", outcome.ProcessingTime)
	n := narrativeFor(outcome.Diagnosis, confidence, a.cfg.ModelName)

	history := record.ClinicalNote
	if history == "" {
		history = a.cfg.DefaultHistory
	}

	r := &Report{
		ID:          ReportID(record.PatientID, now),
		Status:      StatusFinal,
		GeneratedAt: now,
		StudyDate:   studyDate,
		StudyTime:   studyTime,
		ReportDate:  reportDate,
		Facility:    a.cfg.Facility,
		Patient: PatientSection{
			Name: record.Name,
			MRN:  record.PatientID,
			DOB:  DerivedDOB(now, record.AgeYears()),
			Age:  fmt.Sprintf("%d years", record.AgeYears()),
			Sex:  string(record.Sex),
		},
		Study: StudySection{
			ExamType:           a.cfg.ExamType,
			DateTime:           reportDate + " at " + studyTime,
			OrderingPhysician:  a.cfg.OrderingPhysician,
			ReadingRadiologist: a.cfg.ReadingRadiologist,
			ReportDate:         studyDate + " " + studyTime,
		},
		ClinicalHistory: history,
		Technique:       techniqueText(a.cfg.ModelName),
		Findings: Findings{
			Classification: n.classification,
			Positive:       outcome.Diagnosis.IsPositive(),
			Confidence:     confidence,
			ProcessingTime: processing,
			Summary:        n.summary,
			AttentionNote:  n.attention,
			Recommendation: n.recommendation,
		},
		Figures:         figures(record, outcome),
		Impression:      n.impression,
		Recommendations: n.recommendations,
		Technical: Technical{
			Model:           a.cfg.ModelName,
			InputResolution: a.cfg.InputResolution,
			ProcessingTime:  processing,
			Method:          "Deep Learning Classification",
			Visualization:   "Grad-CAM Attention Mapping",
		},
		Disclaimer: disclaimerText,
		Footer:     fmt.Sprintf("%s • %s • %s", a.cfg.Facility.Name, a.cfg.Facility.Department, studyDate),
	}
	return r, nil
}

// ReportID formats RAD-<patientID>-<last six digits of the epoch milliseconds>.
func ReportID(patientID string, at time.Time) string {
	return fmt.Sprintf("RAD-%s-%06d", patientID, at.UnixMilli()%1_000_000)
}

// DerivedDOB approximates a date of birth as January 1 of (current year - age).
func DerivedDOB(at time.Time, age int) string {
	return fmt.Sprintf("%d/01/01", at.Year()-age)
}

func figures(record *domain.PatientRecord, outcome *domain.AnalysisOutcome) []Figure {
	figs := []Figure{{
		Title:   "Original Radiograph",
		Caption: "Figure 1: AP view of wrist, digital acquisition",
		URL:     record.Image.PreviewURL,
	}}
	if outcome.AttentionMapURL != "" {
		figs = append(figs, Figure{
			Title:   "AI Analysis Overlay",
			Caption: "Figure 2: Grad-CAM attention mapping overlay",
			URL:     outcome.AttentionMapURL,
		})
	}
	return figs
}
