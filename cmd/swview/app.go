package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/viewfsm/config"
	"github.com/amp-labs/viewfsm/script"
	"github.com/amp-labs/viewfsm/statemachine"
	"github.com/amp-labs/viewfsm/statemachine/validator"
	"github.com/amp-labs/viewfsm/statemachine/visualizer"
	"github.com/amp-labs/viewfsm/swapi"
	"github.com/amp-labs/viewfsm/transport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsReadHeaderTimeout = 5 * time.Second

// ErrInvalidTable is returned when the transition table fails validation.
var ErrInvalidTable = errors.New("invalid transition table")

// loadTable returns the table from TABLE_PATH, or the built-in one.
func loadTable(cfg *config.Config) (*statemachine.Table, error) {
	if cfg.TablePath == "" {
		return statemachine.DefaultTable(), nil
	}

	table, err := statemachine.LoadTable(cfg.TablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}

	return table, nil
}

func printGraph(w io.Writer, table *statemachine.Table) error {
	diagram, err := visualizer.GenerateMermaid(table)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, diagram)

	return err
}

// validateTable prints the validation report and exits 1 if the table is
// invalid. Files are validated as written so that duplicates are reported.
func validateTable(w io.Writer, cfg *config.Config, table *statemachine.Table, strict bool) error {
	var result validator.ValidationResult

	if cfg.TablePath != "" {
		var err error

		result, err = validator.ValidateFileWithOptions(cfg.TablePath, strict)
		if err != nil {
			return script.ExitWithError(err)
		}
	} else if strict {
		result = validator.ValidateWithRulesStrict(table.Config(), validator.DefaultRules())
	} else {
		result = validator.ValidateTable(table)
	}

	if _, err := fmt.Fprintln(w, result.String()); err != nil {
		return err
	}

	if !result.Valid {
		return script.Exit(1)
	}

	return nil
}

// checkTable logs warnings and fails on errors before the machine is built.
func checkTable(logger *slog.Logger, table *statemachine.Table) error {
	result := validator.ValidateTable(table)

	for _, warning := range result.Warnings {
		logger.Warn("Transition table warning", "code", warning.Code, "message", warning.Message)
	}

	if result.HasErrors() {
		for _, e := range result.Errors {
			logger.Error("Transition table error", "code", e.Code, "message", e.Message)
		}

		return fmt.Errorf("%w: %d error(s)", ErrInvalidTable, len(result.Errors))
	}

	return nil
}

// newMachine builds the SWAPI client, the effect pool and the machine. The
// pool is drained on shutdown.
func newMachine(ctx context.Context, env *script.Env, table *statemachine.Table) (*statemachine.Machine, error) {
	cfg := env.Config

	topts := transport.DefaultOptions()
	topts.DNSCache = cfg.SWAPI.DNSCache
	topts.Logger = env.Logger.With("component", "swapi_transport")

	client, err := swapi.NewClient(cfg.SWAPI.BaseURL,
		swapi.WithHTTPClient(&http.Client{
			Transport: transport.New(ctx, topts),
			Timeout:   cfg.SWAPI.Timeout,
		}),
		swapi.WithMaxPages(cfg.SWAPI.MaxPages),
		swapi.WithLogger(env.Logger),
	)
	if err != nil {
		return nil, err
	}

	pool := pond.NewPool(cfg.EffectWorkers, pond.WithContext(ctx))

	env.Shutdown.BeforeShutdown("effects", func(context.Context) error {
		pool.StopAndWait()

		return nil
	})

	registry := swapi.Registry(statemachine.Async(pool, statemachine.EffectFetchPersons, swapi.FetchPersons(client)))

	return statemachine.NewMachine(table, registry,
		statemachine.WithLogger(statemachine.NewSlogLogger(env.Logger)),
	), nil
}

// serveMetrics exposes Prometheus metrics on METRICS_ADDR until shutdown.
func serveMetrics(ctx context.Context, env *script.Env) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              env.Config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	env.Shutdown.BeforeShutdown("metrics", server.Shutdown)

	go func() {
		env.Logger.Info("Serving metrics", "addr", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Logger.Error("Metrics server failed", "error", err)
		}
	}()
}
