package stores

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrReadOnlyProperty is returned when a bound container tries to change an
// entity's metadata.
var ErrReadOnlyProperty = errors.New("property is read-only")

// RunStatus represents the status of a rule run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one execution of a rule.
type Run struct {
	ID          string     `json:"id"`
	RuleFile    string     `json:"rule_file"`
	Rule        string     `json:"rule"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Metadata    string     `json:"metadata"` // JSON blob
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AuditEntry represents an audit trail entry
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`              // e.g. "entity.saved", "config.deleted"
	Actor     string    `json:"actor"`               // user or system identifier
	TargetID  *string   `json:"target_id,omitempty"` // entity uuid or config name
	Details   *string   `json:"details,omitempty"`   // JSON blob
	Timestamp time.Time `json:"timestamp"`
}

// EntityRevision is one saved state of an entity.
type EntityRevision struct {
	EntityUUID string    `json:"entity_uuid"`
	Revision   int64     `json:"revision"`
	Language   string    `json:"langcode"`
	Fields     string    `json:"fields"` // JSON blob
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Entity operations
	NewEntity(entityType, language string) *Entity
	LoadEntity(ctx context.Context, uuid string) (*Entity, error)
	ListEntities(ctx context.Context, entityType string, limit, offset int) ([]*Entity, error)
	ListEntityRevisions(ctx context.Context, uuid string) ([]*EntityRevision, error)

	// Config operations
	NewConfigObject(name string) *ConfigObject
	LoadConfigObject(ctx context.Context, name string) (*ConfigObject, error)

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, err *string) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Audit operations
	CreateAuditEntry(ctx context.Context, entry *AuditEntry) error
	ListAuditEntries(ctx context.Context, action *string, actor *string, limit, offset int) ([]*AuditEntry, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
