package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"golang.org/x/term"

	"imagine/core"
	"imagine/imagegen"
	"imagine/logging"
	"imagine/progress"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `name:"config" env:"IMAGINE_CONFIG" help:"YAML config file"`
	EnvFile   string `name:"env-file" default:".env" help:"Environment file loaded when present"`
	HistoryDB string `name:"history" help:"SQLite file recording every outcome"`
	Debug     bool   `name:"debug" help:"Write debug logs to stderr"`
	LogFile   string `name:"log-file" help:"Write JSON logs to this file"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`

	ctx context.Context
}

// CLI is the command line of imagine.
type CLI struct {
	Globals

	Generate GenerateCmd `cmd:"" default:"withargs" help:"Generate one image per prompt (default command)"`
	History  HistoryCmd  `cmd:"" help:"List recorded generations"`
}

// App holds the process environment. Tests replace its fields.
type App struct {
	Stdout io.Writer
	Stderr io.Writer

	// Doer performs every HTTP request (nil = client built from the config)
	Doer imagegen.HTTPDoer

	// Renderer draws progress (nil = spinner board on a terminal, lines otherwise)
	Renderer progress.Renderer

	// Exit ends the process when a second interrupt arrives (nil = os.Exit)
	Exit func(code int)
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return core.ExitCodeName(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

///////////////////////////////////////////////////////////////////////////////
// MAIN

func main() {
	app := &App{Stdout: os.Stdout, Stderr: os.Stderr}
	os.Exit(app.Run(context.Background(), os.Args[1:]))
}

// Run parses args, runs the selected command and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name(filepath.Base(os.Args[0])),
		kong.Description("Generate images from text prompts, all prompts in parallel."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(a.Stdout, a.Stderr),
		kong.Bind(a),
	)
	if err != nil {
		fmt.Fprintf(a.Stderr, "imagine: %v\n", err)
		return core.ExitCodeError
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(a.Stderr, "imagine: %v\n", err)
		return core.ExitCodeError
	}

	cli.Globals.ctx = ctx
	if err := kctx.Run(&cli.Globals); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			switch code := core.GetErrorCode(exit.err); {
			case code != "":
				fmt.Fprintf(a.Stderr, "imagine: %v (%s)\n", exit.err, code)
			case exit.err != nil:
				fmt.Fprintf(a.Stderr, "imagine: %v\n", exit.err)
			}
			return exit.code
		}
		fmt.Fprintf(a.Stderr, "imagine: %v\n", err)
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

///////////////////////////////////////////////////////////////////////////////
// HELPERS

// loadConfig builds the configuration and applies the global flags on top.
func (g *Globals) loadConfig() (*core.Config, error) {
	cfg, err := core.LoadConfig(core.LoadOptions{
		ConfigFile: g.Config,
		EnvFile:    g.EnvFile,
	})
	if err != nil {
		return nil, err
	}

	override(&cfg.HistoryPath, g.HistoryDB)
	override(&cfg.LogFile, g.LogFile)
	override(&cfg.LogLevel, g.LogLevel)
	return cfg, nil
}

// newLogger writes JSON to the configured log file and, with --debug,
// console lines to stderr. Without either it discards everything.
func (g *Globals) newLogger(cfg *core.Config, stderr io.Writer) (*logging.Logger, error) {
	opts := logging.Options{
		Level:    logging.ParseLevel(cfg.LogLevel, logging.InfoLevel),
		FilePath: cfg.LogFile,
	}
	if g.Debug {
		opts.Level = logging.DebugLevel
		opts.Console = stderr
	}
	return logging.New(opts)
}

func (a *App) exit(code int) {
	if a.Exit != nil {
		a.Exit(code)
		return
	}
	os.Exit(code)
}

// newRenderer picks the spinner board for an interactive terminal and plain
// lines for everything else.
func (a *App) newRenderer(plain bool) progress.Renderer {
	if a.Renderer != nil {
		return a.Renderer
	}

	f, ok := a.Stdout.(*os.File)
	tty := ok && term.IsTerminal(int(f.Fd()))
	if tty && !plain {
		return progress.NewTeaRenderer(f)
	}
	return progress.NewLineRenderer(a.Stdout, !tty || os.Getenv("NO_COLOR") != "")
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func syncLogger(logger *logging.Logger) func(context.Context) error {
	return func(context.Context) error {
		// stderr and pipes reject fsync; nothing useful to report
		_ = logger.Sync()
		return nil
	}
}

func logConfig(logger *logging.Logger, cfg *core.Config, prompts int) {
	logger.Info("configuration loaded",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.String("size", cfg.Size),
		zap.String("output_dir", cfg.OutputDir),
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
		zap.Bool("strict", cfg.Strict),
		zap.Bool("allow_self_signed_certs", cfg.AllowSelfSignedCerts),
		zap.String("history", cfg.HistoryPath),
		zap.Int("prompts", prompts),
	)
}

// elapsed formats a duration for the history table.
func elapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
