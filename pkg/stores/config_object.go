package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rulekit/rulekit/pkg/data"
)

// ConfigObject is a named, mutable configuration record. Unlike entities it
// keeps no revisions: saving replaces the stored values.
type ConfigObject struct {
	store *SQLiteStore

	Name   string
	values []data.Property

	// saved is true once the object exists in the database.
	saved bool
}

// NewConfigObject returns an empty, unsaved config object.
func (s *SQLiteStore) NewConfigObject(name string) *ConfigObject {
	return &ConfigObject{store: s, Name: name}
}

// Identity implements data.Resource. The name is the identifier.
func (c *ConfigObject) Identity() data.Identity {
	return data.Identity{Kind: "config", ID: c.Name}
}

// Properties implements data.Structured.
func (c *ConfigObject) Properties() []data.Property {
	return slices.Clone(c.values)
}

// Get returns a value.
func (c *ConfigObject) Get(name string) (any, bool) {
	for _, p := range c.values {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// SetProperty implements data.Writable. A nil value removes the key.
func (c *ConfigObject) SetProperty(name string, value any) error {
	if r, ok := value.(data.Resource); ok {
		value = r.Identity()
	}
	i := slices.IndexFunc(c.values, func(p data.Property) bool { return p.Name == name })
	switch {
	case i >= 0 && value == nil:
		c.values = slices.Delete(c.values, i, i+1)
	case i >= 0:
		c.values[i].Value = value
	case value != nil:
		c.values = append(c.values, data.Property{Name: name, Value: value})
	}
	return nil
}

// IsNew reports whether the object has never been saved.
func (c *ConfigObject) IsNew() bool {
	return !c.saved
}

// Save stores the object, replacing previous values. It implements
// data.Resource.
func (c *ConfigObject) Save(ctx context.Context) error {
	stored := make([]field, len(c.values))
	for i, p := range c.values {
		stored[i] = field{Name: p.Name, Value: p.Value}
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode config %s: %w", c.Name, err)
	}

	now := time.Now().UTC()
	err = c.store.withTx(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO config_objects (name, data, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
		`, c.Name, string(raw), now, now)
		if err != nil {
			return fmt.Errorf("failed to save config %s: %w", c.Name, err)
		}
		return c.store.audit(ctx, q, "config.saved", c.Name)
	})
	if err != nil {
		return err
	}
	c.saved = true
	return nil
}

// Delete removes the object. It implements data.Resource.
func (c *ConfigObject) Delete(ctx context.Context) error {
	err := c.store.withTx(ctx, func(q querier) error {
		result, err := q.ExecContext(ctx, `DELETE FROM config_objects WHERE name = ?`, c.Name)
		if err != nil {
			return fmt.Errorf("failed to delete config %s: %w", c.Name, err)
		}
		if err := affectedOne(result, "config", c.Name); err != nil {
			return err
		}
		return c.store.audit(ctx, q, "config.deleted", c.Name)
	})
	if err != nil {
		return err
	}
	c.saved = false
	return nil
}

// LoadConfigObject loads a config object by name.
func (s *SQLiteStore) LoadConfigObject(ctx context.Context, name string) (*ConfigObject, error) {
	var raw string
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT data FROM config_objects WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	values, err := decodeProperties(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", name, err)
	}
	return &ConfigObject{store: s, Name: name, values: values, saved: true}, nil
}
