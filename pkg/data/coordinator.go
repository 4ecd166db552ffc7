package data

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rulekit/rulekit/pkg/telemetry"
)

// Transaction is one unit of work spanning several resource writes.
type Transaction interface {
	// Context returns the context resources must use to join the transaction.
	Context() context.Context
	Commit() error
	Rollback() error
}

// Transactor opens transactions.
type Transactor interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Coordinator saves or deletes every resource a container aggregates as a
// single atomic unit.
type Coordinator struct {
	transactor Transactor
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the coordinator's logger.
func WithCoordinatorLogger(logger zerolog.Logger) CoordinatorOption {
	return func(p *Coordinator) {
		p.logger = logger.With().Str("component", "persistence").Logger()
	}
}

// WithCoordinatorMetrics records commit and rollback metrics.
func WithCoordinatorMetrics(m *telemetry.Metrics) CoordinatorOption {
	return func(p *Coordinator) {
		p.metrics = m
	}
}

// WithCoordinatorTracer sets the tracer used for persistence spans.
func WithCoordinatorTracer(t trace.Tracer) CoordinatorOption {
	return func(p *Coordinator) {
		p.tracer = t
	}
}

// NewCoordinator returns a coordinator committing through tx.
func NewCoordinator(tx Transactor, opts ...CoordinatorOption) *Coordinator {
	p := &Coordinator{
		transactor: tx,
		logger:     zerolog.Nop(),
		tracer:     otel.Tracer("github.com/rulekit/rulekit/pkg/data"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CollectResources returns the resources c aggregates, in the order they are
// first reached by a depth-first walk over the properties.
//
// A property wrapping a resource, or a nested container bound to one,
// contributes that resource. Any other leaf contributes the nearest resource
// found by walking up its chain of owning containers, if there is one.
func (p *Coordinator) CollectResources(c *Container) []Resource {
	var out []Resource
	add := func(r Resource) {
		for _, seen := range out {
			if sameRef(seen, r) {
				return
			}
		}
		out = append(out, r)
	}

	var walk func(*Container)
	walk = func(c *Container) {
		for _, n := range c.entries {
			if r, ok := n.Resource(); ok {
				add(r)
				continue
			}
			if child, ok := n.Container(); ok && child.Len() > 0 {
				walk(child)
				continue
			}
			if r, ok := ancestorResource(n); ok {
				add(r)
			}
		}
	}
	walk(c)
	return out
}

// ancestorResource returns the resource bound to the nearest container
// owning n, directly or through its parents.
func ancestorResource(n *Node) (Resource, bool) {
	for c := n.owner; c != nil; c = c.Parent() {
		if c.source != nil {
			return c.source, true
		}
	}
	return nil, false
}

// Save calls Save on every collected resource inside one transaction.
func (p *Coordinator) Save(ctx context.Context, c *Container) error {
	return p.persist(ctx, c, "save", Resource.Save)
}

// Delete calls Delete on every collected resource inside one transaction.
func (p *Coordinator) Delete(ctx context.Context, c *Container) error {
	return p.persist(ctx, c, "delete", Resource.Delete)
}

// persist runs op over the collected resources. The first failure rolls the
// transaction back and is returned exactly as the resource reported it.
func (p *Coordinator) persist(ctx context.Context, c *Container, op string, fn func(Resource, context.Context) error) error {
	resources := p.CollectResources(c)
	if len(resources) == 0 {
		return nil
	}

	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "data."+op, trace.WithAttributes(
		telemetry.AttrOperation.String(op),
		telemetry.AttrResources.Int(len(resources)),
	))
	defer span.End()

	log := p.logger.With().Str("operation", op).Int("resources", len(resources)).Logger()
	log.Debug().Msg("Persisting container resources")

	tx, err := p.transactor.Begin(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		p.metrics.RecordPersist(op, "error", len(resources), time.Since(start))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			p.rollback(tx, op, log)
			panic(r)
		}
	}()

	txCtx := tx.Context()
	for _, r := range resources {
		if err := fn(r, txCtx); err != nil {
			log.Error().Err(err).Str("resource", r.Identity().String()).Msg("Resource failed, rolling back")
			p.rollback(tx, op, log)
			telemetry.RecordError(span, err)
			p.metrics.RecordPersist(op, "rolled_back", len(resources), time.Since(start))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		telemetry.RecordError(span, err)
		p.metrics.RecordPersist(op, "error", len(resources), time.Since(start))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	telemetry.RecordSuccess(span)
	p.metrics.RecordPersist(op, "committed", len(resources), time.Since(start))
	log.Debug().Dur("duration", time.Since(start)).Msg("Container resources persisted")
	return nil
}

func (p *Coordinator) rollback(tx Transaction, op string, log zerolog.Logger) {
	p.metrics.RecordRollback(op)
	if err := tx.Rollback(); err != nil {
		log.Error().Err(err).Msg("Rollback failed")
	}
}
