// Package domain provides the core types of the radiograph diagnostic workflow.
// It defines the patient intake record, the uploaded radiograph, the analysis
// outcome returned by the remote classifier, and the ordered workflow stages.
// Types validate themselves so that incomplete or malformed data never crosses
// into the transport or reporting layers.
package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Sex represents the biological sex captured at intake.
type Sex string

const (
	// SexMale represents a male patient.
	SexMale Sex = "Male"

	// SexFemale represents a female patient.
	SexFemale Sex = "Female"

	// SexOther represents any other or unspecified sex.
	SexOther Sex = "Other"
)

// ParseSex maps a case-insensitive label to a Sex value.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return SexMale, nil
	case "female", "f":
		return SexFemale, nil
	case "other", "o":
		return SexOther, nil
	default:
		return "", fmt.Errorf("unknown sex %q: %w", s, ErrInvalidSubmission)
	}
}

// Age bounds accepted at intake, inclusive.
const (
	MinAge = 0
	MaxAge = 150
)

const defaultMediaType = "application/octet-stream"

// RadiographImage is the uploaded study image together with its in-memory preview reference.
type RadiographImage struct {
	// Filename is the name the operator uploaded the image under.
	Filename string `json:"filename" validate:"required"`

	// MediaType is the sniffed content type of Data.
	MediaType string `json:"media_type"`

	// Data holds the raw image bytes.
	Data []byte `json:"-" validate:"required,min=1"`

	// PreviewURL is a data URI rendering of Data, directly displayable by a viewer.
	PreviewURL string `json:"preview_url"`
}

// NewRadiographImage wraps uploaded bytes and derives the media type and preview reference.
// The data slice is copied so later mutation by the caller cannot alter the record.
func NewRadiographImage(filename string, data []byte) *RadiographImage {
	mediaType := detectMediaType(filename, data)
	return &RadiographImage{
		Filename:   filepath.Base(filename),
		MediaType:  mediaType,
		Data:       bytes.Clone(data),
		PreviewURL: DataURI(mediaType, base64.StdEncoding.EncodeToString(data)),
	}
}

// Size returns the image size in bytes.
func (i *RadiographImage) Size() int {
	if i == nil {
		return 0
	}
	return len(i.Data)
}

func (i *RadiographImage) clone() *RadiographImage {
	if i == nil {
		return nil
	}
	c := *i
	c.Data = bytes.Clone(i.Data)
	return &c
}

// DataURI formats an already base64-encoded payload as a data URI.
func DataURI(mediaType, encoded string) string {
	return "data:" + mediaType + ";base64," + encoded
}

func detectMediaType(filename string, data []byte) string {
	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); sniffed != defaultMediaType &&
			!strings.HasPrefix(sniffed, "text/") {
			return sniffed
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return defaultMediaType
}

// PatientRecord holds identity and clinical context for one study.
// A record is complete only when name, identifier, sex, age, and image are present.
type PatientRecord struct {
	// Name is the patient's display name.
	Name string `json:"name" validate:"required"`

	// PatientID is an opaque identifier, rendered as the MRN on reports.
	PatientID string `json:"patient_id" validate:"required"`

	// Sex is the biological sex captured at intake.
	Sex Sex `json:"sex" validate:"required,oneof=Male Female Other"`

	// Age in whole years. Nil means the operator has not entered one.
	Age *int `json:"age" validate:"required,min=0,max=150"`

	// ClinicalNote is optional free text supplied by the operator.
	ClinicalNote string `json:"clinical_note,omitempty" validate:"omitempty,max=4000"`

	// Image is the uploaded radiograph.
	Image *RadiographImage `json:"image" validate:"required"`
}

// Years returns a pointer to n for populating PatientRecord.Age.
func Years(n int) *int { return &n }

// NewPatientRecord builds a record from intake form values, trimming text fields.
// The returned record is not validated; call Validate before submitting it.
func NewPatientRecord(name, patientID string, sex Sex, age *int, note string, image *RadiographImage) *PatientRecord {
	return &PatientRecord{
		Name:         strings.TrimSpace(name),
		PatientID:    strings.TrimSpace(patientID),
		Sex:          sex,
		Age:          age,
		ClinicalNote: strings.TrimSpace(note),
		Image:        image,
	}
}

// Validate reports whether the record is complete.
// Failures wrap ErrInvalidSubmission and name the offending fields.
func (p *PatientRecord) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: record is empty", ErrInvalidSubmission)
	}
	if err := validate.Struct(p); err != nil {
		fields := missingFields(err)
		if len(fields) == 0 {
			return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
		}
		return fmt.Errorf("%w: missing or invalid %s", ErrInvalidSubmission, strings.Join(fields, ", "))
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: missing or invalid name", ErrInvalidSubmission)
	}
	if strings.TrimSpace(p.PatientID) == "" {
		return fmt.Errorf("%w: missing or invalid patientid", ErrInvalidSubmission)
	}
	return nil
}

// IsComplete reports whether the record may be submitted for analysis.
func (p *PatientRecord) IsComplete() bool { return p.Validate() == nil }

// AgeYears returns the recorded age, or zero when absent.
func (p *PatientRecord) AgeYears() int {
	if p == nil || p.Age == nil {
		return 0
	}
	return *p.Age
}

// Clone returns a deep copy so the orchestrator can hold a record the caller cannot mutate.
func (p *PatientRecord) Clone() *PatientRecord {
	if p == nil {
		return nil
	}
	c := *p
	if p.Age != nil {
		c.Age = Years(*p.Age)
	}
	c.Image = p.Image.clone()
	return &c
}
