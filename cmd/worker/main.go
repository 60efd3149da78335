// Command worker hosts the radiograph analysis workflow and activity on a
// Temporal task queue.
package main

import (
	"flag"
	"log"
	"os"

	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-radiograph/internal/config"
	"github.com/ahrav/go-radiograph/internal/worker"
	"github.com/ahrav/go-radiograph/pkg/events"
)

func main() {
	configPath := flag.String("config", "", "Path to radiograph.toml (default: ./radiograph.toml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config load failed:", err)
	}
	logger := cfg.Logging.NewLogger(os.Stderr)

	clientCfg, err := cfg.Analysis.ClientConfig()
	if err != nil {
		log.Fatal("invalid analysis config:", err)
	}
	svc, err := worker.InitializeAnalysisClient(clientCfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    sdklog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatal("temporal dial failed:", err)
	}
	defer c.Close()

	w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})
	worker.RegisterAll(w, svc, events.NewLogSink(logger))

	logger.Info("radiograph worker starting",
		"env", cfg.Env(),
		"task_queue", cfg.Temporal.TaskQueue,
		"analysis_url", clientCfg.BaseURL,
	)
	err = w.Run(sdkworker.InterruptCh())
	if err != nil {
		logger.Error("worker stopped", "error", err)
		return
	}
	logger.Info("radiograph worker stopped")
}
