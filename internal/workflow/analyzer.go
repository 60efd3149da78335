package workflow

import (
	"context"

	"github.com/ahrav/go-radiograph/internal/domain"
)

// Analyzer runs one remote analysis. analysis.Client satisfies it directly;
// worker.TemporalAnalyzer runs the same call as a Temporal workflow.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, filename string) (*domain.AnalysisOutcome, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, image []byte, filename string) (*domain.AnalysisOutcome, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, image []byte, filename string) (*domain.AnalysisOutcome, error) {
	return f(ctx, image, filename)
}
