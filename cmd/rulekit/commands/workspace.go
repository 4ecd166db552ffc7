package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rulekit/rulekit/pkg/config"
	"github.com/rulekit/rulekit/pkg/data"
	"github.com/rulekit/rulekit/pkg/stores"
	"github.com/rulekit/rulekit/pkg/telemetry"
)

const defaultConfigName = config.DefaultFileName

// workspace is an opened rulekit workspace: its configuration, telemetry
// and store.
type workspace struct {
	cfg    *config.AppConfig
	tel    *telemetry.Telemetry
	store  *stores.SQLiteStore
	logger zerolog.Logger
}

func (o *globalOptions) configFile() string {
	if o.configPath != "" {
		return o.configPath
	}
	return defaultConfigName
}

// openWorkspace loads the configuration and opens the migrated store.
func openWorkspace(ctx context.Context, opts *globalOptions) (*workspace, error) {
	cfg, err := config.LoadAppConfig(opts.configFile())
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	if err := tel.StartMetricsServer(); err != nil {
		log.Warn().Err(err).Msg("Metrics server failed to start")
	}
	logger := tel.Logger.Zerolog()

	store, err := stores.NewSQLiteStore(stores.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Actor:        cfg.Database.Actor,
	}, stores.WithLogger(logger), stores.WithMetrics(tel.Metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &workspace{cfg: cfg, tel: tel, store: store, logger: logger}, nil
}

func (w *workspace) close(ctx context.Context) {
	if err := w.store.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to close store")
	}
	if err := w.tel.Shutdown(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}

// operation starts an instrumented command operation. The returned context
// carries the workspace telemetry.
func (w *workspace) operation(ctx context.Context, name string, attrs ...attribute.KeyValue) *telemetry.InstrumentedContext {
	return telemetry.StartOperation(w.tel.WithContext(ctx), name, attrs...)
}

// containerOptions wires a root container to the workspace.
func (w *workspace) containerOptions() []data.Option {
	coordinator := data.NewCoordinator(w.store,
		data.WithCoordinatorLogger(w.logger),
		data.WithCoordinatorMetrics(w.tel.Metrics),
		data.WithCoordinatorTracer(w.tel.Tracer.Named("github.com/rulekit/rulekit/pkg/data")),
	)
	return []data.Option{
		data.WithCoordinator(coordinator),
		data.WithIdentityPolicy(w.cfg.Identity),
		data.WithLogger(w.logger),
		data.WithMetrics(w.tel.Metrics),
	}
}

// printTree writes the tagged tree of c, one property per line.
func printTree(out io.Writer, c *data.Container, depth int) {
	indent := strings.Repeat("  ", depth)
	if repr, ok := c.StringRepresentation(); ok && c.Len() == 0 {
		fmt.Fprintf(out, "%s(string representation) %q\n", indent, repr)
		return
	}
	for k, n := range c.All() {
		if child, ok := n.Container(); ok {
			fmt.Fprintf(out, "%s%s (%s)\n", indent, k, n.Tag())
			printTree(out, child, depth+1)
			continue
		}
		fmt.Fprintf(out, "%s%s (%s): %s\n", indent, k, n.Tag(), n.String())
	}
}
