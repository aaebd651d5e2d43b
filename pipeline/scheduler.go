package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"imagine/core"
	"imagine/imagegen"
	"imagine/logging"
)

// Reporters hands out one progress reporter per task.
type Reporters interface {
	Reporter(label string) core.ProgressReporter
}

// SchedulerConfig holds the run-wide settings of a Scheduler.
type SchedulerConfig struct {
	OutputDir string
	Timeout   time.Duration

	// MaxConcurrent bounds how many tasks run at once (0 = all at once)
	MaxConcurrent int

	// Strict cancels the remaining tasks after the first failure. Otherwise a
	// failure only affects its own task.
	Strict bool

	// ProgressEvery is passed to every task (see TaskConfig)
	ProgressEvery int64

	// OnOutcome, if set, is called once per task as soon as it finishes.
	// It may be called from several goroutines at once.
	OnOutcome func(Outcome)

	Logger *logging.Logger
}

// Scheduler fans prompts out to concurrent tasks.
type Scheduler struct {
	client    ImageClient
	reporters Reporters
	cfg       SchedulerConfig
	logger    *logging.Logger
}

// NewScheduler creates a scheduler. client and reporters are shared by all
// tasks and must be safe for concurrent use.
func NewScheduler(client ImageClient, reporters Reporters, cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		client:    client,
		reporters: reporters,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run starts one task per prompt, waits for all of them and returns their
// outcomes in prompt order. Every prompt gets exactly one Outcome, including
// those cut short by a cancelled ctx or by a strict-mode failure.
func (s *Scheduler) Run(ctx context.Context, prompts []string) []Outcome {
	outcomes := make([]Outcome, len(prompts))
	if len(prompts) == 0 {
		return outcomes
	}

	// rows are created up front so the board shows every prompt from the start
	tasks := make([]*Task, len(prompts))
	for i, prompt := range prompts {
		name := imagegen.NameFor(prompt)
		reporter := s.reporters.Reporter(name)
		if s.cfg.MaxConcurrent > 0 && i >= s.cfg.MaxConcurrent {
			if err := reporter.ReportProgress("⏳ Waiting: " + name); err != nil {
				s.logger.Debug("progress report failed", zap.Error(err))
			}
		}
		tasks[i] = NewTask(i, prompt, s.client, reporter, TaskConfig{
			OutputDir:     s.cfg.OutputDir,
			Timeout:       s.cfg.Timeout,
			ProgressEvery: s.cfg.ProgressEvery,
			Logger:        s.logger,
		})
	}

	s.logger.Info("run started",
		zap.Int("prompts", len(prompts)),
		zap.Int("max_concurrent", s.cfg.MaxConcurrent),
		zap.Bool("strict", s.cfg.Strict))

	g, runCtx := s.group(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			outcome := task.Run(runCtx)
			outcomes[i] = outcome
			if s.cfg.OnOutcome != nil {
				s.cfg.OnOutcome(outcome)
			}
			if s.cfg.Strict && !outcome.OK() {
				return outcome.Err
			}
			return nil
		})
	}
	// the first strict failure is already recorded in its Outcome
	_ = g.Wait()

	summary := Summarize(outcomes)
	s.logger.Info("run finished", zap.Int("done", summary.Done), zap.Int("failed", summary.Failed))
	return outcomes
}

// group returns the errgroup for one run. Only strict mode shares a
// cancellable context between tasks.
func (s *Scheduler) group(ctx context.Context) (*errgroup.Group, context.Context) {
	var g *errgroup.Group
	runCtx := ctx
	if s.cfg.Strict {
		g, runCtx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	if s.cfg.MaxConcurrent > 0 {
		g.SetLimit(s.cfg.MaxConcurrent)
	}
	return g, runCtx
}
