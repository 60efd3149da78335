package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-radiograph/internal/analysis"
	"github.com/ahrav/go-radiograph/internal/config"
	"github.com/ahrav/go-radiograph/internal/domain"
	"github.com/ahrav/go-radiograph/internal/report"
	"github.com/ahrav/go-radiograph/internal/worker"
	"github.com/ahrav/go-radiograph/internal/workflow"
	"github.com/ahrav/go-radiograph/pkg/events"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

type options struct {
	configPath string
	imagePath  string
	name       string
	patientID  string
	sex        string
	age        int
	note       string
	format     string
	outPath    string
	modelInfo  bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("radiograph", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "Path to radiograph.toml (default: ./radiograph.toml if present)")
	fs.StringVar(&opts.imagePath, "image", "", "Radiograph image file")
	fs.StringVar(&opts.name, "name", "", "Patient name")
	fs.StringVar(&opts.patientID, "id", "", "Patient ID")
	fs.StringVar(&opts.sex, "sex", "", "Patient sex (male, female, other)")
	fs.IntVar(&opts.age, "age", -1, "Patient age in years")
	fs.StringVar(&opts.note, "note", "", "Clinical history")
	fs.StringVar(&opts.format, "format", "", "Report format: json, text, pdf (default from config)")
	fs.StringVar(&opts.outPath, "out", "", "Report output file (default: stdout)")
	fs.BoolVar(&opts.modelInfo, "model-info", false, "Print analysis model metadata and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitInvalid
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config load failed: %v\n", err)
		return exitFailure
	}
	logger := cfg.Logging.NewLogger(stderr)

	exporter, err := resolveExporter(cfg, opts)
	if err != nil {
		fmt.Fprintf(stderr, "invalid -format: %v\n", err)
		return exitInvalid
	}

	clientCfg, err := cfg.Analysis.ClientConfig()
	if err != nil {
		fmt.Fprintf(stderr, "invalid analysis config: %v\n", err)
		return exitFailure
	}
	svc, err := worker.InitializeAnalysisClient(clientCfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitFailure
	}

	if opts.modelInfo {
		return printModelInfo(ctx, svc, stdout, stderr)
	}

	a := &app{cfg: cfg, opts: opts, exporter: exporter, logger: logger, stdout: stdout, stderr: stderr}
	analyzer, closeFn, err := a.analyzer(svc)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitFailure
	}
	defer closeFn()

	if svc.CheckAvailability(ctx) {
		fmt.Fprintln(stderr, "Analysis service: online")
	} else {
		fmt.Fprintln(stderr, "Analysis service: offline (submission will still be attempted)")
	}

	return a.diagnose(ctx, analyzer)
}

type app struct {
	cfg      *config.Config
	opts     *options
	exporter report.Exporter
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
}

// resolveExporter picks the -format override or the configured default.
func resolveExporter(cfg *config.Config, opts *options) (report.Exporter, error) {
	format := cfg.Report.ExportFormat()
	if opts.format != "" {
		format = report.Format(opts.format)
	}
	return report.NewExporter(format)
}

// analyzer selects direct HTTP analysis or Temporal dispatch.
func (a *app) analyzer(svc analysis.Client) (workflow.Analyzer, func(), error) {
	if !a.cfg.Temporal.Enabled {
		return svc, func() {}, nil
	}

	c, err := client.Dial(client.Options{
		HostPort:  a.cfg.Temporal.HostPort,
		Namespace: a.cfg.Temporal.Namespace,
		Logger:    sdklog.NewStructuredLogger(a.logger),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("temporal dial %s: %w", a.cfg.Temporal.HostPort, err)
	}
	timeout, err := a.cfg.Temporal.Timeout()
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	return worker.NewTemporalAnalyzer(c, a.cfg.Temporal.TaskQueue, timeout, a.logger), c.Close, nil
}

func (a *app) diagnose(ctx context.Context, analyzer workflow.Analyzer) int {
	estimator, err := a.cfg.Workflow.Estimator()
	if err != nil {
		fmt.Fprintf(a.stderr, "%v\n", err)
		return exitFailure
	}
	interval, err := a.cfg.Workflow.Interval()
	if err != nil {
		fmt.Fprintf(a.stderr, "%v\n", err)
		return exitFailure
	}

	orch, err := workflow.NewOrchestrator(analyzer, workflow.Options{
		Sink:     events.NewLogSink(a.logger),
		Logger:   a.logger,
		Progress: estimator,
	})
	if err != nil {
		fmt.Fprintf(a.stderr, "%v\n", err)
		return exitFailure
	}
	if err := orch.Enter(); err != nil {
		fmt.Fprintf(a.stderr, "%v\n", err)
		return exitFailure
	}
	if err := orch.BeginIntake(); err != nil {
		fmt.Fprintf(a.stderr, "%v\n", err)
		return exitFailure
	}

	record, err := a.intake()
	if err != nil {
		fmt.Fprintf(a.stderr, "invalid submission: %v\n", err)
		return exitInvalid
	}
	if err := orch.Submit(ctx, record); err != nil {
		fmt.Fprintf(a.stderr, "invalid submission: %v\n", err)
		return exitInvalid
	}

	snap, err := a.await(ctx, orch, interval)
	if err != nil {
		orch.Reset()
		fmt.Fprintf(a.stderr, "analysis interrupted: %v\n", err)
		return exitFailure
	}

	if snap.Failed() {
		kind, _ := analysis.KindOf(snap.Failure)
		fmt.Fprintf(a.stderr, "Analysis failed (%s): %s\n", kind, failureMessage(snap.Failure))
		orch.Reset()
		return exitFailure
	}
	printReview(a.stderr, snap.Outcome)

	snap, err = orch.RequestReport()
	if err != nil {
		fmt.Fprintf(a.stderr, "%v\n", err)
		return exitFailure
	}
	if err := a.writeReport(snap); err != nil {
		fmt.Fprintf(a.stderr, "%v\n", err)
		return exitFailure
	}
	return exitOK
}

func (a *app) intake() (*domain.PatientRecord, error) {
	var image *domain.RadiographImage
	if a.opts.imagePath != "" {
		data, err := os.ReadFile(a.opts.imagePath)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		image = domain.NewRadiographImage(a.opts.imagePath, data)
	}

	var sex domain.Sex
	if a.opts.sex != "" {
		parsed, err := domain.ParseSex(a.opts.sex)
		if err != nil {
			return nil, err
		}
		sex = parsed
	}

	var age *int
	if a.opts.age >= 0 {
		age = domain.Years(a.opts.age)
	}

	return domain.NewPatientRecord(a.opts.name, a.opts.patientID, sex, age, a.opts.note, image), nil
}

// await waits for the run to resolve while redrawing the progress estimate.
func (a *app) await(ctx context.Context, orch *workflow.Orchestrator, interval time.Duration) (workflow.Snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	var snap workflow.Snapshot
	g.Go(func() error {
		defer close(done)
		var err error
		snap, err = orch.Wait(gctx)
		return err
	})
	g.Go(func() error {
		drawProgress(gctx, a.stderr, orch, interval, done)
		return nil
	})

	err := g.Wait()
	return snap, err
}

func (a *app) writeReport(snap workflow.Snapshot) error {
	rcfg, err := a.cfg.Report.AssemblerConfig()
	if err != nil {
		return err
	}
	rep, err := report.NewAssembler(rcfg).Assemble(snap.Record, snap.Outcome)
	if err != nil {
		return fmt.Errorf("assemble report: %w", err)
	}

	out := a.stdout
	if a.opts.outPath != "" {
		f, err := os.Create(a.opts.outPath)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	used, err := report.Write(out, rep, a.exporter, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "Report %s written (%s)\n", rep.ID, used)
	return nil
}

func printReview(w io.Writer, o *domain.AnalysisOutcome) {
	fmt.Fprintf(w, "Diagnosis: %s\n", o.Diagnosis)
	fmt.Fprintf(w, "Confidence: %s\n", o.ConfidencePercent())
	fmt.Fprintf(w, "Processing time: %.2fs\n", o.ProcessingTime)
}

func failureMessage(err error) string {
	var aerr *analysis.Error
	if errors.As(err, &aerr) && aerr.Message != "" {
		return aerr.Message
	}
	return err.Error()
}

func printModelInfo(ctx context.Context, svc analysis.Client, stdout, stderr io.Writer) int {
	info, err := svc.ModelInfo(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "model info: %v\n", err)
		return exitFailure
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		fmt.Fprintf(stderr, "model info: %v\n", err)
		return exitFailure
	}
	return exitOK
}
