package rules

import (
	"errors"
	"fmt"
	"time"
)

// ActionType names an action.
type ActionType string

const (
	ActionDataSet    ActionType = "data_set"
	ActionListAdd    ActionType = "list_add"
	ActionListRemove ActionType = "list_remove"
	ActionDataParse  ActionType = "data_parse"
	ActionDataPatch  ActionType = "data_patch"
	ActionScript     ActionType = "script"
	ActionDataSave   ActionType = "data_save"
	ActionDataDelete ActionType = "data_delete"
)

// List positions for list_add.
const (
	PositionStart = "start"
	PositionEnd   = "end"
)

// RuleFile is a parsed rule file.
type RuleFile struct {
	Path  string `yaml:"-"`
	Rules []Rule `yaml:"rules" validate:"required,min=1,unique=Name,dive"`
}

// Rule is a condition and the actions run when it holds.
type Rule struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`

	// Condition is a Rego rule body over input.
	Condition string `yaml:"condition"`

	// When is an expr-lang boolean expression over input. A rule runs only
	// when both When and Condition hold.
	When string `yaml:"when"`

	Actions []Action `yaml:"actions" validate:"required,min=1,dive"`
}

// Action is one step of a rule.
type Action struct {
	Type ActionType `yaml:"action" validate:"required,oneof=data_set list_add list_remove data_parse data_patch script data_save data_delete"`

	// Path addresses the target property, e.g. "node.tags".
	Path string `yaml:"path"`

	// Value is stored by data_set, list_add and list_remove. For data_patch
	// it is the list of JSON Patch operations.
	Value any `yaml:"value"`

	// Text is parsed by data_parse.
	Text string `yaml:"text"`

	// Position is start or end for list_add; end by default.
	Position string `yaml:"position" validate:"omitempty,oneof=start end"`

	// Source is the Starlark program of a script action.
	Source string `yaml:"source"`
}

// check enforces the arguments each action type needs.
func (a *Action) check() error {
	switch a.Type {
	case ActionDataSet:
		if a.Path == "" {
			return fmt.Errorf("%s requires a path", a.Type)
		}
	case ActionListAdd, ActionListRemove:
		if a.Path == "" || a.Value == nil {
			return fmt.Errorf("%s requires a path and a value", a.Type)
		}
	case ActionDataParse:
		if a.Path == "" || a.Text == "" {
			return fmt.Errorf("%s requires a path and a text", a.Type)
		}
	case ActionDataPatch:
		if _, ok := a.Value.([]any); !ok || a.Path == "" {
			return fmt.Errorf("%s requires a path and a list of operations", a.Type)
		}
	case ActionScript:
		if a.Source == "" {
			return fmt.Errorf("%s requires a source", a.Type)
		}
	}
	return nil
}

// Outcome describes one rule execution.
type Outcome struct {
	RunID      string
	Rule       string
	Skipped    bool
	ActionsRun int
	Duration   time.Duration
}

// Phase is the stage of a rule execution an error happened in.
type Phase string

const (
	PhaseCondition Phase = "condition"
	PhaseAction    Phase = "action"
	PhasePersist   Phase = "persist"
)

// RuleError reports a failed rule execution.
type RuleError struct {
	Rule  string
	Phase Phase

	// Action and Index identify the failing action; unset for conditions.
	Action ActionType
	Index  int

	Err error
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	if e.Phase == PhaseCondition {
		return fmt.Sprintf("rule %s: condition: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("rule %s: %s %d (%s): %v", e.Rule, e.Phase, e.Index, e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuleError) Unwrap() error {
	return e.Err
}

// IsPhase reports whether err is a RuleError raised in phase.
func IsPhase(err error, phase Phase) bool {
	var re *RuleError
	return errors.As(err, &re) && re.Phase == phase
}
