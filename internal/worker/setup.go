package worker

import (
	"fmt"
	"log/slog"

	"github.com/ahrav/go-radiograph/internal/analysis"
)

// InitializeAnalysisClient builds the analysis client with its middleware
// pipeline. A nil cfg uses analysis.DefaultConfig.
func InitializeAnalysisClient(cfg *analysis.Config, logger *slog.Logger) (analysis.Client, error) {
	if cfg == nil {
		cfg = analysis.DefaultConfig()
	}

	client, err := analysis.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analysis client: %w", err)
	}

	return client, nil
}
