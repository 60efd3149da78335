package domain

import (
	"fmt"
	"strings"
	"time"
)

// Diagnosis is the binary classification returned by the remote analysis service.
type Diagnosis string

const (
	// DiagnosisFracture indicates fracture-positive findings.
	DiagnosisFracture Diagnosis = "Fracture"

	// DiagnosisNormal indicates no acute fracture.
	DiagnosisNormal Diagnosis = "Normal"
)

// ParseDiagnosis maps a service prediction label to a Diagnosis.
// Labels are matched case-insensitively; the service emits lowercase class names.
func ParseDiagnosis(label string) (Diagnosis, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "fracture":
		return DiagnosisFracture, nil
	case "normal":
		return DiagnosisNormal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDiagnosis, label)
	}
}

// IsPositive reports whether the diagnosis is fracture-positive.
func (d Diagnosis) IsPositive() bool { return d == DiagnosisFracture }

// ISO8601Millis is the completion timestamp layout, millisecond precision in UTC.
const ISO8601Millis = "2006-01-02T15:04:05.000Z07:00"

// AnalysisOutcome is the result of one successful remote analysis call.
// It is read-only after construction; failed calls never produce one.
type AnalysisOutcome struct {
	// Diagnosis is the predicted class.
	Diagnosis Diagnosis `json:"diagnosis" validate:"required,oneof=Fracture Normal"`

	// Confidence is the classifier's probability for Diagnosis, in [0, 1].
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`

	// AttentionMapURL is a directly renderable attention-map image reference, empty when unavailable.
	AttentionMapURL string `json:"attention_map_url"`

	// ProcessingTime is the analysis duration in seconds.
	ProcessingTime float64 `json:"processing_time" validate:"gte=0"`

	// CompletedAt is the client time at which the response was received.
	CompletedAt time.Time `json:"completed_at" validate:"required"`

	// GroundTruth is an optional reference label echoed by evaluation deployments.
	GroundTruth string `json:"ground_truth,omitempty"`

	// Correct reports whether Diagnosis matched GroundTruth, when the service knows.
	Correct *bool `json:"correct,omitempty"`

	// PatientMeta is opaque metadata echoed by the service.
	PatientMeta map[string]any `json:"patient_meta,omitempty"`
}

// NewAnalysisOutcome validates and copies o.
// Errors wrap ErrInvalidOutcome so transport callers can classify them.
func NewAnalysisOutcome(o AnalysisOutcome) (*AnalysisOutcome, error) {
	if err := validate.Struct(&o); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutcome, err)
	}
	o.PatientMeta = cloneAnyMap(o.PatientMeta)
	if o.Correct != nil {
		correct := *o.Correct
		o.Correct = &correct
	}
	return &o, nil
}

// Timestamp returns CompletedAt as an ISO-8601 string.
func (o *AnalysisOutcome) Timestamp() string {
	return o.CompletedAt.UTC().Format(ISO8601Millis)
}

// ConfidencePercent formats the confidence as a one-decimal percentage, e.g. "87.0%".
func (o *AnalysisOutcome) ConfidencePercent() string {
	return fmt.Sprintf("%.1f%%", o.Confidence*100)
}
