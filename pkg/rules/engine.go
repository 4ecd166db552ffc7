package rules

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rulekit/rulekit/pkg/data"
	"github.com/rulekit/rulekit/pkg/stores"
	"github.com/rulekit/rulekit/pkg/telemetry"
)

// RunRecorder stores one record per rule execution.
type RunRecorder interface {
	CreateRun(ctx context.Context, run *stores.Run) error
	UpdateRunStatus(ctx context.Context, id string, status stores.RunStatus, errMsg *string) error
}

// Engine executes rules against containers.
type Engine struct {
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
	recorder   RunRecorder
	conditions *conditions
	guards     *guards
	scripts    *scriptRunner
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "rules").Logger()
	}
}

// WithMetrics records rule executions and action failures.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer used for rule spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithRunRecorder records every execution, e.g. in the SQLite store.
func WithRunRecorder(r RunRecorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithScriptTimeout bounds each script action. Zero disables the limit.
func WithScriptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.scripts.timeout = d
	}
}

// NewEngine creates a new rule engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:     zerolog.Nop(),
		tracer:     otel.Tracer("github.com/rulekit/rulekit/pkg/rules"),
		conditions: newConditions(),
		guards:     newGuards(),
		scripts:    &scriptRunner{timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scripts.logger = e.logger
	return e
}

// ExecuteAll runs every rule of rf in order against state and stops at the
// first failing rule.
func (e *Engine) ExecuteAll(ctx context.Context, rf *RuleFile, state *data.Container) ([]*Outcome, error) {
	outcomes := make([]*Outcome, 0, len(rf.Rules))
	for i := range rf.Rules {
		out, err := e.execute(ctx, rf.Path, &rf.Rules[i], state)
		if out != nil {
			outcomes = append(outcomes, out)
		}
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// Execute runs one rule against state. A rule whose condition does not hold
// is skipped. Errors are *RuleError values; the outcome reports the actions
// that ran before the failure.
func (e *Engine) Execute(ctx context.Context, rule *Rule, state *data.Container) (*Outcome, error) {
	return e.execute(ctx, "", rule, state)
}

func (e *Engine) execute(ctx context.Context, file string, rule *Rule, state *data.Container) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString(), Rule: rule.Name}
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "rules.execute", trace.WithAttributes(
		telemetry.AttrRunID.String(out.RunID),
		telemetry.AttrRule.String(rule.Name),
	))
	defer span.End()

	lc := e.logger.With().Str("run_id", out.RunID).Str("rule", rule.Name)
	if id := telemetry.TraceID(ctx); id != "" {
		lc = lc.Str("trace_id", id)
	}
	log := lc.Logger()
	e.recordStart(ctx, log, file, out)

	err := e.run(ctx, log, rule, state, out)
	out.Duration = time.Since(start)

	status := stores.RunStatusCompleted
	switch {
	case err != nil:
		status = stores.RunStatusFailed
		telemetry.RecordError(span, err)
		log.Error().Err(err).Int("actions_run", out.ActionsRun).Msg("Rule failed")
	case out.Skipped:
		status = stores.RunStatusSkipped
		telemetry.RecordSuccess(span)
		log.Debug().Msg("Rule condition not met, skipped")
	default:
		telemetry.RecordSuccess(span)
		log.Info().Int("actions_run", out.ActionsRun).Dur("duration", out.Duration).Msg("Rule executed")
	}
	e.metrics.RecordRuleExecution(rule.Name, string(status), out.Duration)
	e.recordEnd(ctx, log, out, status, err)
	return out, err
}

func (e *Engine) run(ctx context.Context, log zerolog.Logger, rule *Rule, state *data.Container, out *Outcome) error {
	input := plainValue(state.ToArray())
	ok, err := e.conditions.eval(ctx, rule.Condition, input)
	if ok && err == nil {
		ok, err = e.guards.eval(rule.When, input)
	}
	if err != nil {
		return &RuleError{Rule: rule.Name, Phase: PhaseCondition, Err: err}
	}
	if !ok {
		out.Skipped = true
		return nil
	}

	for i := range rule.Actions {
		a := &rule.Actions[i]
		log.Debug().Int("index", i).Str("action", string(a.Type)).Msg("Running action")
		if err := e.apply(ctx, rule, a, state); err != nil {
			phase := PhaseAction
			if a.Type == ActionDataSave || a.Type == ActionDataDelete {
				phase = PhasePersist
			}
			e.metrics.RecordActionError(string(a.Type))
			return &RuleError{Rule: rule.Name, Phase: phase, Action: a.Type, Index: i, Err: err}
		}
		out.ActionsRun++
	}
	return nil
}

// apply runs a single action.
func (e *Engine) apply(ctx context.Context, rule *Rule, a *Action, state *data.Container) error {
	path := substituteString(state, a.Path)

	switch a.Type {
	case ActionDataSet:
		return state.SetPath(path, substitute(state, a.Value))

	case ActionListAdd:
		list, err := listAt(state, path, true)
		if err != nil {
			return err
		}
		value := substitute(state, a.Value)
		if a.Position == PositionStart {
			_, err = list.Unshift(value)
		} else {
			_, err = list.Push(value)
		}
		if err != nil {
			return err
		}
		return list.Sync()

	case ActionListRemove:
		list, err := listAt(state, path, false)
		if err != nil || list == nil {
			return err
		}
		if _, removed := list.RemoveByValue(substitute(state, a.Value)); !removed {
			return nil
		}
		return list.Sync()

	case ActionDataParse:
		return state.SetPath(path, data.FromUserInput(substituteString(state, a.Text)))

	case ActionDataPatch:
		return applyPatch(state, path, substitute(state, a.Value))

	case ActionScript:
		output, err := e.scripts.run(ctx, rule.Name, a.Source, map[string]any{
			"data": plainValue(state.ToArray()),
		})
		if err != nil {
			return err
		}
		for _, name := range slices.Sorted(maps.Keys(output)) {
			if err := state.Set(data.ParseKey(name), output[name]); err != nil {
				return fmt.Errorf("failed to store script global %s: %w", name, err)
			}
		}
		return nil

	case ActionDataSave, ActionDataDelete:
		target := state
		if path != "" {
			c, ok := state.ContainerAt(path)
			if !ok {
				return fmt.Errorf("no container at %q", path)
			}
			target = c
		}
		if a.Type == ActionDataSave {
			return target.SaveData(ctx)
		}
		return target.DeleteData(ctx)
	}
	return fmt.Errorf("unknown action %q", a.Type)
}

// listAt returns the container at path. With create, a missing path gets a
// new empty container; otherwise it yields nil.
func listAt(state *data.Container, path string, create bool) (*data.Container, error) {
	if c, ok := state.ContainerAt(path); ok {
		return c, nil
	}
	if _, exists := state.GetPath(path); exists {
		return nil, fmt.Errorf("property %q is not a list", path)
	}
	if !create {
		return nil, nil
	}
	if err := state.SetPath(path, data.New()); err != nil {
		return nil, err
	}
	c, ok := state.ContainerAt(path)
	if !ok {
		return nil, fmt.Errorf("failed to create list %q", path)
	}
	return c, nil
}

func (e *Engine) recordStart(ctx context.Context, log zerolog.Logger, file string, out *Outcome) {
	if e.recorder == nil {
		return
	}
	run := &stores.Run{
		ID:        out.RunID,
		RuleFile:  file,
		Rule:      out.Rule,
		Status:    stores.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := e.recorder.CreateRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("Failed to record run")
	}
}

func (e *Engine) recordEnd(ctx context.Context, log zerolog.Logger, out *Outcome, status stores.RunStatus, runErr error) {
	if e.recorder == nil {
		return
	}
	var msg *string
	if runErr != nil {
		s := runErr.Error()
		msg = &s
	}
	if err := e.recorder.UpdateRunStatus(ctx, out.RunID, status, msg); err != nil {
		log.Warn().Err(err).Msg("Failed to update run status")
	}
}
