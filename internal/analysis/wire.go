package analysis

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// attentionMapMediaType is the media type the service renders attention maps in.
const attentionMapMediaType = "image/png"

type analyzeRequest struct {
	Image       string         `json:"image"`
	Filename    string         `json:"filename"`
	PatientData map[string]any `json:"patient_data"`
}

// analyzeResponse mirrors the service success body. Pointers distinguish
// omitted fields from zero values.
type analyzeResponse struct {
	Prediction     string         `json:"prediction"`
	Confidence     *float64       `json:"confidence"`
	GradcamImage   string         `json:"gradcam_image"`
	ProcessingTime *float64       `json:"processing_time"`
	GroundTruth    string         `json:"ground_truth"`
	Correct        *bool          `json:"correct"`
	PatientMeta    map[string]any `json:"patient_meta"`
}

type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Detail  json.RawMessage `json:"detail"`
}

// ModelInfo describes the model deployed behind the analysis service.
type ModelInfo struct {
	Architecture string   `json:"architecture"`
	Classes      []string `json:"classes"`
	InputSize    int      `json:"input_size"`
	Device       string   `json:"device"`
	ModelLoaded  bool     `json:"model_loaded"`
}

// encodeImage returns the bare base64 payload for the request body.
// Data URI input is reduced to its payload so the service never sees a media-type prefix.
func encodeImage(data []byte) string {
	if payload, ok := stripDataURIPrefix(string(data)); ok {
		return payload
	}
	return base64.StdEncoding.EncodeToString(data)
}

// stripDataURIPrefix returns the payload of a base64 data URI.
func stripDataURIPrefix(s string) (string, bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", false
	}
	_, payload, found := strings.Cut(s, ";base64,")
	if !found {
		return "", false
	}
	return payload, true
}

// attentionMapURL wraps a bare base64 attention map into a renderable data URI.
// An empty map stays empty; an existing data URI passes through.
func attentionMapURL(encoded string) string {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" || strings.HasPrefix(encoded, "data:") {
		return encoded
	}
	return "data:" + attentionMapMediaType + ";base64," + encoded
}

// failureMessage extracts a human-readable reason from a non-success response.
// It prefers "message", then "error", then a string "detail", then the status reason phrase.
func failureMessage(resp *Response) string {
	var body errorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		switch {
		case strings.TrimSpace(body.Message) != "":
			return body.Message
		case strings.TrimSpace(body.Error) != "":
			return body.Error
		case len(body.Detail) > 0:
			var detail string
			if json.Unmarshal(body.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
				return detail
			}
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return "unknown error"
}
