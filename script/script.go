// Package script runs a command-line program with configuration, logging,
// telemetry, signal handling and exit codes set up the same way every time.
package script

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/amp-labs/viewfsm/config"
	"github.com/amp-labs/viewfsm/logger"
	"github.com/amp-labs/viewfsm/shutdown"
	"github.com/amp-labs/viewfsm/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// Option is a function that configures a Script.
type Option func(script *Script)

// Exit returns an error that will cause the script to exit with the given code.
// Use this to exit with a specific code without logging an error.
func Exit(code int) error {
	return &exitError{
		code: code,
	}
}

// ExitWithError returns an error that will cause the script to exit with code 1
// and log the provided error.
func ExitWithError(err error) error {
	return &exitError{
		err:  err,
		code: 1,
	}
}

// ExitWithErrorMessage returns an error that will cause the script to exit with
// code 1 and log a formatted error message.
func ExitWithErrorMessage(msg string, args ...any) error {
	return &exitError{
		err:  fmt.Errorf(msg, args...), //nolint:err113
		code: 1,
	}
}

type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string {
	msg := "exit " + strconv.FormatInt(int64(e.code), 10)

	if e.err != nil {
		return msg + ": " + e.err.Error()
	}

	return msg
}

func (e *exitError) Unwrap() error {
	return e.err
}

// LogLevel overrides LOG_LEVEL.
func LogLevel(lvl slog.Level) Option {
	return func(script *Script) {
		script.loggerOpts = append(script.loggerOpts, func(options *logger.Options) {
			options.MinLevel = lvl
		})
	}
}

// LogOutput overrides LOG_OUTPUT.
func LogOutput(writer io.Writer) Option {
	return func(script *Script) {
		script.loggerOpts = append(script.loggerOpts, logger.WithOutput(writer))
	}
}

// EnableFlagParse controls whether flag.Parse() is called before running the
// script. Defaults to true.
func EnableFlagParse(enabled bool) Option {
	return func(script *Script) {
		script.flagParseEnable = enabled
	}
}

// ConfigLoader replaces config.Load.
func ConfigLoader(load func() (*config.Config, error)) Option {
	return func(script *Script) {
		if load != nil {
			script.loadConfig = load
		}
	}
}

// TelemetryOptions are passed to telemetry.Initialize.
func TelemetryOptions(opts ...telemetry.Option) Option {
	return func(script *Script) {
		script.telemetryOpts = append(script.telemetryOpts, opts...)
	}
}

// Env is everything a script callback gets besides its context.
type Env struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *telemetry.Provider

	// Shutdown runs registered hooks when the script is interrupted or
	// returns. Telemetry is flushed after all of them.
	Shutdown *shutdown.Handler
}

// Script represents a runnable program with configured logging and signal
// handling.
type Script struct {
	name            string
	flagParseEnable bool
	loggerOpts      []logger.Option
	telemetryOpts   []telemetry.Option
	loadConfig      func() (*config.Config, error)
}

// New creates a new Script with the given name and options.
func New(scriptName string, opts ...Option) *Script {
	script := &Script{
		name:            scriptName,
		flagParseEnable: true,
		loadConfig:      config.Load,
	}

	for _, opt := range opts {
		opt(script)
	}

	return script
}

// Run executes f and exits the process with its exit code. The context passed
// to f is canceled on SIGINT or SIGTERM, after the shutdown hooks have run.
func (s *Script) Run(f func(ctx context.Context, env *Env) error) {
	os.Exit(s.run(f))
}

func (s *Script) run(callback func(ctx context.Context, env *Env) error) int {
	if s.flagParseEnable {
		flag.Parse()
	}

	if callback == nil {
		slog.Error("callback is nil")

		return 1
	}

	cfg, err := s.loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)

		return 1
	}

	handler := shutdown.New()
	ctx := handler.Setup(context.Background())

	provider, err := telemetry.Initialize(ctx, telemetry.ConfigFrom(cfg), s.telemetryOpts...)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		_ = handler.Shutdown()

		return 1
	}

	opts := append([]logger.Option{logger.WithOTel(s.name, provider.LoggerProvider())}, s.loggerOpts...)

	if _, err = logger.ConfigureLogging(s.name, cfg, opts...); err != nil {
		slog.Error("failed to configure logging", "error", err)
		_ = handler.Shutdown()

		return 1
	}

	log := logger.Get(ctx)

	err = callback(ctx, &Env{
		Config:    cfg,
		Logger:    log,
		Telemetry: provider,
		Shutdown:  handler,
	})

	interrupted := ctx.Err() != nil

	if shutdownErr := handler.Shutdown(); shutdownErr != nil {
		log.Error("shutdown hooks failed", "error", shutdownErr)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()

	if telemetryErr := provider.Shutdown(flushCtx); telemetryErr != nil {
		log.Error("failed to shut down telemetry", "error", telemetryErr)
	}

	return exitCode(log, err, interrupted)
}

func exitCode(log *slog.Logger, err error, interrupted bool) int {
	if err == nil {
		return 0
	}

	var exitErr *exitError

	if errors.As(err, &exitErr) {
		if exitErr.code != 0 {
			log.Error("error running script", "error", err)
		}

		return exitErr.code
	}

	if interrupted && errors.Is(err, context.Canceled) {
		return 0
	}

	log.Error("error running script", "error", err)

	return 1
}
