package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"imagine/core"
	"imagine/imagegen"
	"imagine/logging"
)

// ImageClient generates an image and streams it back. *imagegen.Client
// implements it.
type ImageClient interface {
	Generate(ctx context.Context, prompt string) (*imagegen.GenerationResult, error)
	Fetch(ctx context.Context, url string) (*imagegen.ByteStream, error)
}

// DefaultProgressEvery is how many downloaded bytes pass between size updates.
const DefaultProgressEvery = 256 * 1024

// TaskConfig holds the settings shared by every task of a run.
type TaskConfig struct {
	// OutputDir receives the image files ("" = working directory)
	OutputDir string

	// Timeout bounds each network call (0 = none)
	Timeout time.Duration

	// ProgressEvery is the download size update interval in bytes
	// (0 = DefaultProgressEvery, negative = no size updates)
	ProgressEvery int64

	Logger *logging.Logger
}

// Task turns one prompt into one image file.
//
// A task owns its reporter and its output file; nothing else touches them.
// Run always returns an Outcome and never panics on a remote failure.
type Task struct {
	index    int
	prompt   string
	name     string
	client   ImageClient
	reporter core.ProgressReporter
	cfg      TaskConfig
	logger   *logging.Logger
	state    State
}

// NewTask creates a task for the prompt at position index.
func NewTask(index int, prompt string, client ImageClient, reporter core.ProgressReporter, cfg TaskConfig) *Task {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}

	return &Task{
		index:    index,
		prompt:   prompt,
		name:     imagegen.NameFor(prompt),
		client:   client,
		reporter: reporter,
		cfg:      cfg,
		logger:   logger.Named("task").With(zap.Int("task", index), logging.PromptPreview(prompt)),
		state:    StateStart,
	}
}

// State returns the current state.
func (t *Task) State() State {
	return t.state
}

// Name returns the short name derived from the prompt.
func (t *Task) Name() string {
	return t.name
}

// Run generates and downloads the image. The returned Outcome's Err is the
// same error shown as the task's final progress message.
func (t *Task) Run(ctx context.Context) Outcome {
	start := time.Now()
	outcome := Outcome{Index: t.index, Prompt: t.prompt}

	t.moveTo(StateGenerating)
	t.progress("🤯 Generating: " + t.name)

	// a cancelled run fails the remaining tasks without touching the network
	if err := ctx.Err(); err != nil {
		return t.fail(outcome, StateFailedGenerate, &imagegen.TransportError{Op: "generate", Err: err}, start)
	}

	t.logger.Debug("generating")
	result, err := t.generate(ctx)
	if err != nil {
		return t.fail(outcome, StateFailedGenerate, err, start)
	}
	if result.RevisedPrompt != "" {
		t.logger.Debug("prompt revised by model", zap.String("revised_prompt", result.RevisedPrompt))
	}

	t.moveTo(StateDownloading)
	t.progress("💻 Downloading: " + t.name)

	path, err := imagegen.UniquePath(t.cfg.OutputDir, t.name)
	if err != nil {
		return t.fail(outcome, StateFailedDownload, &imagegen.FilesystemError{Op: "name", Path: t.cfg.OutputDir, Err: err}, start)
	}

	t.logger.Debug("downloading", zap.String("path", path))
	written, err := t.download(ctx, result.URL, path)
	outcome.Bytes = written
	if err != nil {
		return t.fail(outcome, StateFailedDownload, err, start)
	}

	t.moveTo(StateDone)
	outcome.Kind = OutcomeDone
	outcome.Path = path
	outcome.Duration = time.Since(start)

	t.logger.Info("image saved",
		zap.String("size", humanize.Bytes(uint64(written))),
		logging.TaskFields(logging.TaskMetrics{
			Status:   outcome.Kind.String(),
			Path:     path,
			Bytes:    written,
			Duration: outcome.Duration,
		}))
	if err := t.reporter.ReportSuccess("• " + path); err != nil {
		t.logger.Debug("progress report failed", zap.Error(err))
	}
	return outcome
}

func (t *Task) generate(ctx context.Context) (*imagegen.GenerationResult, error) {
	callCtx, cancel := t.callContext(ctx)
	defer cancel()
	return t.client.Generate(callCtx, t.prompt)
}

// download streams url into a new file at path. The file is synced and
// closed before success is returned; on failure the partial file stays.
func (t *Task) download(ctx context.Context, url, path string) (int64, error) {
	callCtx, cancel := t.callContext(ctx)
	defer cancel()

	stream, err := t.client.Fetch(callCtx, url)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return 0, &imagegen.FilesystemError{Op: "create", Path: path, Err: err}
	}

	var written int64
	nextUpdate := t.cfg.ProgressEvery
	for stream.Next() {
		n, err := file.Write(stream.Chunk())
		written += int64(n)
		if err != nil {
			file.Close()
			return written, &imagegen.FilesystemError{Op: "write", Path: path, Err: err}
		}
		if read := stream.BytesRead(); t.cfg.ProgressEvery > 0 && read >= nextUpdate {
			t.progress(t.downloadMessage(read, stream.ContentLength()))
			nextUpdate = read + t.cfg.ProgressEvery
		}
	}
	if err := stream.Err(); err != nil {
		file.Close()
		return written, err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return written, &imagegen.FilesystemError{Op: "sync", Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return written, &imagegen.FilesystemError{Op: "close", Path: path, Err: err}
	}
	return written, nil
}

func (t *Task) downloadMessage(written, total int64) string {
	if total > 0 {
		return fmt.Sprintf("💻 Downloading: %s (%s of %s)", t.name,
			humanize.Bytes(uint64(written)), humanize.Bytes(uint64(total)))
	}
	return fmt.Sprintf("💻 Downloading: %s (%s)", t.name, humanize.Bytes(uint64(written)))
}

func (t *Task) fail(outcome Outcome, state State, err error, start time.Time) Outcome {
	t.moveTo(state)
	outcome.Kind = outcomeKindFor(state)
	outcome.Err = err
	outcome.Duration = time.Since(start)

	t.logger.Warn("task failed",
		zap.Error(err),
		logging.TaskFields(logging.TaskMetrics{
			Status:    outcome.Kind.String(),
			Bytes:     outcome.Bytes,
			Duration:  outcome.Duration,
			ErrorKind: imagegen.Kind(err),
		}))
	if rerr := t.reporter.ReportError(err); rerr != nil {
		t.logger.Debug("progress report failed", zap.Error(rerr))
	}
	return outcome
}

func (t *Task) moveTo(next State) {
	if !t.state.canMove(next) {
		// not reachable through Run; keep the first terminal state
		t.logger.Error("invalid state transition",
			zap.Stringer("from", t.state), zap.Stringer("to", next))
		return
	}
	t.state = next
}

func (t *Task) progress(message string) {
	if err := t.reporter.ReportProgress(message); err != nil {
		t.logger.Debug("progress report failed", zap.Error(err))
	}
}

func (t *Task) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, t.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
