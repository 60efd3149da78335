package domain

import "fmt"

// AnalysisRequest is the serializable input handed to durable analysis runners.
type AnalysisRequest struct {
	// RunID identifies the workflow run that issued the request.
	RunID string `json:"run_id" validate:"required,uuid"`

	// Filename is forwarded to the service alongside the image.
	Filename string `json:"filename" validate:"required"`

	// Image holds the raw radiograph bytes.
	Image []byte `json:"image" validate:"required,min=1"`
}

// Validate checks that the request carries a run id, filename, and image bytes.
func (r *AnalysisRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	return nil
}
