package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ahrav/go-radiograph/internal/workflow"
)

const progressWidth = 30

// drawProgress redraws the cosmetic estimate every interval until done closes.
func drawProgress(ctx context.Context, w io.Writer, orch *workflow.Orchestrator, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			fmt.Fprint(w, "\r"+progressBar(100)+"\n")
			return
		case <-ctx.Done():
			fmt.Fprintln(w)
			return
		case <-ticker.C:
			fmt.Fprint(w, "\r"+progressBar(orch.Progress()))
		}
	}
}

func progressBar(pct float64) string {
	pct = min(max(pct, 0), 100)
	filled := int(pct / 100 * progressWidth)
	bar := make([]byte, progressWidth)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '.'
		}
	}
	return fmt.Sprintf("Analyzing [%s] %3.0f%%", bar, pct)
}
