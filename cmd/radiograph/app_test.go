package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-radiograph/internal/config"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func fakeService(t *testing.T, analyze http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/analyze", analyze)
	mux.HandleFunc("/model-info", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"architecture": "DenseNet121",
			"classes":      []string{"fracture", "normal"},
			"input_size":   224,
			"device":       "cpu",
			"model_loaded": true,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvAnalysisBaseURL, srv.URL)
	t.Setenv(config.EnvAnalysisRateLimit, "0")
	t.Setenv(config.EnvTemporalEnabled, "false")
	t.Setenv(config.EnvLogLevel, "error")

	img := filepath.Join(dir, "wrist.png")
	require.NoError(t, os.WriteFile(img, pngHeader, 0o600))
	return img
}

func intakeArgs(img string, extra ...string) []string {
	args := []string{"-image", img, "-name", "Jane Roe", "-id", "P-100", "-sex", "female", "-age", "34"}
	return append(args, extra...)
}

func TestRun_FractureReportAsJSON(t *testing.T) {
	srv := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"prediction":      "fracture",
			"confidence":      0.91,
			"processing_time": 1.2,
		})
	})
	img := setup(t, srv)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), intakeArgs(img, "-format", "json"), &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var rep map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rep))
	assert.Equal(t, "FINAL", rep["status"])
	assert.Contains(t, stderr.String(), "Diagnosis: Fracture")
	assert.Contains(t, stderr.String(), "Analysis service: online")
}

func TestRun_ReportToFile(t *testing.T) {
	srv := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"prediction": "normal", "confidence": 0.8})
	})
	img := setup(t, srv)
	out := filepath.Join(t.TempDir(), "report.txt")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), intakeArgs(img, "-out", out), &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Jane Roe")
	assert.Empty(t, stdout.String())
}

func TestRun_ServiceFailure(t *testing.T) {
	srv := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "model crashed"})
	})
	img := setup(t, srv)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), intakeArgs(img), &stdout, &stderr)

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "Analysis failed (request_failed)")
	assert.Contains(t, stderr.String(), "model crashed")
	assert.Empty(t, stdout.String())
}

func TestRun_InvalidIntake(t *testing.T) {
	var calls atomic.Int32
	srv := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	})
	img := setup(t, srv)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing name", args: []string{"-image", img, "-id", "P-1", "-sex", "male", "-age", "40"}},
		{name: "missing image", args: []string{"-name", "A", "-id", "P-1", "-sex", "male", "-age", "40"}},
		{name: "unknown sex", args: []string{"-image", img, "-name", "A", "-id", "P-1", "-sex", "x", "-age", "40"}},
		{name: "unknown flag", args: []string{"-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, exitInvalid, run(context.Background(), tt.args, &stdout, &stderr))
		})
	}
	assert.Zero(t, calls.Load())
}

func TestRun_UnsupportedFormatRejectedBeforeAnalysis(t *testing.T) {
	var calls atomic.Int32
	srv := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"prediction": "fracture", "confidence": 0.9})
	})
	img := setup(t, srv)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), intakeArgs(img, "-format", "docx"), &stdout, &stderr)

	assert.Equal(t, exitInvalid, code)
	assert.Zero(t, calls.Load())
	assert.Contains(t, stderr.String(), `unsupported report format "docx"`)
	assert.NotContains(t, stderr.String(), "Diagnosis:")
	assert.Empty(t, stdout.String())
}

func TestRun_PDFReport(t *testing.T) {
	srv := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"prediction": "fracture", "confidence": 0.9})
	})
	img := setup(t, srv)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), intakeArgs(img, "-format", "pdf"), &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.True(t, bytes.HasPrefix(stdout.Bytes(), []byte("%PDF")))
	assert.Contains(t, stderr.String(), "(pdf)")
}

func TestRun_ModelInfo(t *testing.T) {
	srv := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	setup(t, srv)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-model-info"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), `"architecture": "DenseNet121"`)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "Analyzing [..............................]   0%", progressBar(-5))
	assert.Equal(t, "Analyzing [###############...............]  50%", progressBar(50))
	assert.Equal(t, "Analyzing [##############################] 100%", progressBar(120))
}
