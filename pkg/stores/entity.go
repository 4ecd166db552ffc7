package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rulekit/rulekit/pkg/data"
)

// Entity metadata exposed as read-only properties.
const (
	PropUUID     = "uuid"
	PropID       = "id"
	PropType     = "type"
	PropLanguage = "langcode"
	PropRevision = "revision"
)

var metadataProps = []string{PropUUID, PropID, PropType, PropLanguage, PropRevision}

// Entity is a revisionable content record stored in SQLite. It is a
// data.Resource: containers aggregate entities and save them through the
// store's transactions.
type Entity struct {
	store *SQLiteStore

	UUID     string
	ID       int64
	Type     string
	Language string
	Revision int64

	fields []data.Property

	CreatedAt time.Time
	UpdatedAt time.Time
}

// field is the stored form of one entity field.
type field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// NewEntity returns an unsaved entity with a fresh UUID.
func (s *SQLiteStore) NewEntity(entityType, language string) *Entity {
	return &Entity{
		store:    s,
		UUID:     uuid.NewString(),
		Type:     entityType,
		Language: language,
	}
}

// Identity implements data.Resource.
func (e *Entity) Identity() data.Identity {
	id := ""
	if e.ID > 0 {
		id = strconv.FormatInt(e.ID, 10)
	}
	return data.Identity{
		Kind:         "entity:" + e.Type,
		UUID:         e.UUID,
		ID:           id,
		Revision:     strconv.FormatInt(e.Revision, 10),
		Revisionable: true,
		Language:     e.Language,
	}
}

// Properties implements data.Structured: the metadata followed by the
// fields in order.
func (e *Entity) Properties() []data.Property {
	props := []data.Property{
		{Name: PropUUID, Value: e.UUID},
	}
	if e.ID > 0 {
		props = append(props, data.Property{Name: PropID, Value: e.ID})
	}
	props = append(props, data.Property{Name: PropType, Value: e.Type})
	if e.Language != "" {
		props = append(props, data.Property{Name: PropLanguage, Value: e.Language})
	}
	if e.Revision > 0 {
		props = append(props, data.Property{Name: PropRevision, Value: e.Revision})
	}
	return append(props, slices.Clone(e.fields)...)
}

// Field returns the value of a field.
func (e *Entity) Field(name string) (any, bool) {
	for _, f := range e.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Fields returns the fields in order.
func (e *Entity) Fields() []data.Property {
	return slices.Clone(e.fields)
}

// SetField sets a field, appending it when new. A nil value removes it.
func (e *Entity) SetField(name string, value any) {
	if r, ok := value.(data.Resource); ok {
		value = r.Identity()
	}
	for i, f := range e.fields {
		if f.Name != name {
			continue
		}
		if value == nil {
			e.fields = slices.Delete(e.fields, i, i+1)
		} else {
			e.fields[i].Value = value
		}
		return
	}
	if value != nil {
		e.fields = append(e.fields, data.Property{Name: name, Value: value})
	}
}

// SetProperty implements data.Writable. Metadata cannot be changed.
func (e *Entity) SetProperty(name string, value any) error {
	if slices.Contains(metadataProps, name) {
		return fmt.Errorf("entity %s: %q: %w", e.UUID, name, ErrReadOnlyProperty)
	}
	e.SetField(name, value)
	return nil
}

func (e *Entity) encodeFields() (string, error) {
	stored := make([]field, len(e.fields))
	for i, f := range e.fields {
		stored[i] = field{Name: f.Name, Value: f.Value}
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields of entity %s: %w", e.UUID, err)
	}
	return string(b), nil
}

func (e *Entity) decodeFields(raw string) error {
	props, err := decodeProperties(raw)
	if err != nil {
		return fmt.Errorf("failed to decode fields of entity %s: %w", e.UUID, err)
	}
	e.fields = props
	return nil
}

// decodeProperties reads the JSON form of an ordered property list.
func decodeProperties(raw string) ([]data.Property, error) {
	var stored []field
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	props := make([]data.Property, len(stored))
	for i, f := range stored {
		props[i] = data.Property{Name: f.Name, Value: f.Value}
	}
	return props, nil
}

// Save writes the entity as a new revision, inside the transaction carried
// by ctx when there is one. It implements data.Resource.
func (e *Entity) Save(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("entity %s is not attached to a store", e.UUID)
	}
	fields, err := e.encodeFields()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var id, revision int64
	err = e.store.withTx(ctx, func(q querier) error {
		// The stored row, not e.ID, decides between insert and update.
		err := q.QueryRowContext(ctx, `
			INSERT INTO entities (uuid, type, langcode, revision, fields, created_at, updated_at)
			VALUES (?, ?, ?, 1, ?, ?, ?)
			ON CONFLICT(uuid) DO UPDATE SET
				revision = entities.revision + 1,
				langcode = excluded.langcode,
				fields = excluded.fields,
				updated_at = excluded.updated_at
			RETURNING id, revision
		`, e.UUID, e.Type, e.Language, fields, now, now).Scan(&id, &revision)
		if err != nil {
			return fmt.Errorf("failed to save entity %s: %w", e.UUID, err)
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO entity_revisions (entity_uuid, revision, langcode, fields, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, e.UUID, revision, e.Language, fields, now)
		if err != nil {
			return fmt.Errorf("failed to insert revision %d of entity %s: %w", revision, e.UUID, err)
		}

		return e.store.audit(ctx, q, "entity.saved", e.UUID)
	})
	if err != nil {
		return err
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.ID, e.Revision, e.UpdatedAt = id, revision, now
	e.store.metrics.RecordEntityWrite(e.Type, "save")
	e.store.logger.Debug().
		Str("entity_type", e.Type).
		Str("entity_uuid", e.UUID).
		Int64("revision", revision).
		Msg("Entity saved")
	return nil
}

// Delete removes the entity and its revisions. It implements data.Resource.
func (e *Entity) Delete(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("entity %s is not attached to a store", e.UUID)
	}
	err := e.store.withTx(ctx, func(q querier) error {
		result, err := q.ExecContext(ctx, `DELETE FROM entities WHERE uuid = ?`, e.UUID)
		if err != nil {
			return fmt.Errorf("failed to delete entity %s: %w", e.UUID, err)
		}
		if err := affectedOne(result, "entity", e.UUID); err != nil {
			return err
		}
		return e.store.audit(ctx, q, "entity.deleted", e.UUID)
	})
	if err != nil {
		return err
	}
	e.store.metrics.RecordEntityWrite(e.Type, "delete")
	return nil
}

const entityColumns = `id, uuid, type, langcode, revision, fields, created_at, updated_at`

func (s *SQLiteStore) scanEntity(row rowScanner) (*Entity, error) {
	e := &Entity{store: s}
	var fields string
	err := row.Scan(&e.ID, &e.UUID, &e.Type, &e.Language, &e.Revision, &fields, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := e.decodeFields(fields); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadEntity loads the current revision of an entity by UUID.
func (s *SQLiteStore) LoadEntity(ctx context.Context, id string) (*Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE uuid = ?`

	e, err := s.scanEntity(s.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entity: %w", err)
	}
	return e, nil
}

// ListEntities lists entities of a type, all types when entityType is
// empty, in creation order.
func (s *SQLiteStore) ListEntities(ctx context.Context, entityType string, limit, offset int) ([]*Entity, error) {
	return collect(ctx, s.conn(ctx), "entities", s.scanEntity, `
		SELECT `+entityColumns+`
		FROM entities
		WHERE (? = '' OR type = ?)
		ORDER BY id ASC
		LIMIT ? OFFSET ?`,
		entityType, entityType, limit, offset,
	)
}

// ListEntityRevisions lists the saved revisions of an entity, oldest first.
func (s *SQLiteStore) ListEntityRevisions(ctx context.Context, id string) ([]*EntityRevision, error) {
	return collect(ctx, s.conn(ctx), "revisions", scanRevision, `
		SELECT entity_uuid, revision, langcode, fields, created_at
		FROM entity_revisions
		WHERE entity_uuid = ?
		ORDER BY revision ASC`,
		id,
	)
}

// DecodeFields returns the fields saved with the revision.
func (r *EntityRevision) DecodeFields() ([]data.Property, error) {
	props, err := decodeProperties(r.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode revision %d of entity %s: %w", r.Revision, r.EntityUUID, err)
	}
	return props, nil
}

func scanRevision(row rowScanner) (*EntityRevision, error) {
	rev := &EntityRevision{}
	if err := row.Scan(&rev.EntityUUID, &rev.Revision, &rev.Language, &rev.Fields, &rev.CreatedAt); err != nil {
		return nil, err
	}
	return rev, nil
}
