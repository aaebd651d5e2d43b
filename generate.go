package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagine/core"
	"imagine/db"
	"imagine/imagegen"
	"imagine/logging"
	"imagine/pipeline"
	"imagine/progress"
	"imagine/shutdown"
)

// GenerateCmd turns every prompt into one image file. Its flags carry no env
// tags: core.LoadConfig reads the same variables with its own parsers.
type GenerateCmd struct {
	Prompts []string `arg:"" optional:"" name:"prompt" help:"Prompts to render; \".\" repeats the previous prompt"`

	Model     string        `name:"model" help:"Image model (default dall-e-3)"`
	Size      string        `name:"size" help:"Image size WIDTHxHEIGHT (default 1024x1024)"`
	Quality   string        `name:"quality" help:"Image quality, e.g. hd"`
	Style     string        `name:"style" help:"Image style, e.g. vivid or natural"`
	OutputDir string        `name:"output-dir" short:"o" help:"Directory receiving the images (default .)"`
	BaseURL   string        `name:"base-url" help:"API base URL"`
	Timeout   time.Duration `name:"timeout" help:"Limit for each network call (0 = none)"`
	Parallel  int           `name:"parallel" short:"p" help:"Prompts running at once (0 = all)"`
	Strict    bool          `name:"strict" help:"Stop everything on the first failure and exit 2"`
	Plain     bool          `name:"plain" help:"Print progress as plain lines"`
}

// apply overrides cfg with the flags that were given.
func (c *GenerateCmd) apply(cfg *core.Config) {
	override(&cfg.Model, c.Model)
	override(&cfg.Size, c.Size)
	override(&cfg.Quality, c.Quality)
	override(&cfg.Style, c.Style)
	override(&cfg.OutputDir, c.OutputDir)
	override(&cfg.BaseURL, c.BaseURL)
	if c.Timeout != 0 {
		cfg.Timeout = c.Timeout
	}
	if c.Parallel != 0 {
		cfg.MaxConcurrent = c.Parallel
	}
	cfg.Strict = cfg.Strict || c.Strict
}

func (c *GenerateCmd) Run(app *App, globals *Globals) error {
	cfg, err := globals.loadConfig()
	if err != nil {
		return &exitError{code: core.ExitCodeError, err: err}
	}
	c.apply(cfg)

	// the credential is checked before anything touches the network
	if err := cfg.Validate(); err != nil {
		return &exitError{code: core.ExitCodeError, err: err}
	}

	prompts, err := pipeline.Resolve(c.Prompts)
	if err != nil {
		return &exitError{code: core.ExitCodeError, err: err}
	}

	logger, err := globals.newLogger(cfg, app.Stderr)
	if err != nil {
		return &exitError{code: core.ExitCodeError, err: err}
	}
	logConfig(logger, cfg, len(prompts))

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		_ = logger.Sync()
		return &exitError{code: core.ExitCodeError, err: &imagegen.FilesystemError{Op: "mkdir", Path: cfg.OutputDir, Err: err}}
	}

	doer := app.Doer
	if doer == nil {
		doer = core.GetHTTPClient(cfg)
	}
	client, err := imagegen.NewClient(cfg, doer)
	if err != nil {
		_ = logger.Sync()
		return &exitError{code: core.ExitCodeError, err: err}
	}

	releases := shutdown.NewRegistry()
	releases.Register("logger", 20, syncLogger(logger))

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	ledger := openLedger(cfg.HistoryPath, logger)
	if ledger != nil {
		releases.Register("history", 10, func(context.Context) error { return ledger.Close() })
	}

	board := progress.NewBoard(app.newRenderer(c.Plain))
	if err := board.Start(); err != nil {
		logger.Warn("progress display failed to start", zap.Error(err))
	}
	releases.Register("progress", 0, func(context.Context) error { return board.Stop() })

	ctx, watcher := shutdown.Watch(globals.ctx, app.exit)
	defer watcher.Stop()

	scheduler := pipeline.NewScheduler(client, board, pipeline.SchedulerConfig{
		OutputDir:     cfg.OutputDir,
		Timeout:       cfg.Timeout,
		MaxConcurrent: cfg.MaxConcurrent,
		Strict:        cfg.Strict,
		Logger:        logger,
		OnOutcome: func(o pipeline.Outcome) {
			if ledger != nil {
				ledger.Record(historyRecord(runID, client, o))
			}
		},
	})
	outcomes := scheduler.Run(ctx, prompts)
	summary := pipeline.Summarize(outcomes)

	if sig := watcher.Signal(); sig != nil {
		logger.Warn("run interrupted", zap.Stringer("signal", sig))
	}
	if err := releases.Shutdown(context.Background()); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
		_ = logger.Sync()
	}

	return exitFor(watcher.ExitCode(), cfg.Strict, summary)
}

// exitFor maps a finished run to its exit code. An interrupt wins; failures
// only count in strict mode.
func exitFor(signalCode int, strict bool, summary pipeline.Summary) error {
	switch {
	case core.IsSignalExit(signalCode):
		return &exitError{code: signalCode}
	case strict && summary.Failed > 0:
		return &exitError{code: core.ExitCodeTaskFailed}
	default:
		return nil
	}
}

// openLedger opens the history file if one is configured. A ledger that
// cannot be opened is logged and skipped; it never stops a run.
func openLedger(path string, logger *logging.Logger) *db.Ledger {
	if path == "" {
		return nil
	}
	ledger, err := db.OpenLedger(path, logger)
	if err != nil {
		logger.Warn("history disabled", zap.String("path", path), zap.Error(err))
		return nil
	}
	return ledger
}

func historyRecord(runID string, client *imagegen.Client, o pipeline.Outcome) db.HistoryRecord {
	rec := db.HistoryRecord{
		RunID:      runID,
		Prompt:     o.Prompt,
		Status:     o.Kind.String(),
		Path:       o.Path,
		Bytes:      o.Bytes,
		DurationMS: o.Duration.Milliseconds(),
		Model:      client.Model(),
		Size:       client.Size(),
	}
	if o.Err != nil {
		rec.ErrorKind = imagegen.Kind(o.Err)
		rec.ErrorMessage = o.Err.Error()
	}
	return rec
}
