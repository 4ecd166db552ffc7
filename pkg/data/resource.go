package data

import "context"

// Identity identifies an externally-owned resource.
type Identity struct {
	// Kind is the resource type, e.g. "entity:article" or "config".
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// UUID is the stable unique identifier, if the backend assigns one.
	UUID string `json:"uuid,omitempty" yaml:"uuid,omitempty"`

	// ID is the backend's own (possibly mutable) identifier.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Revision is the current revision, meaningful only when Revisionable is set.
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`

	// Revisionable reports whether the resource type keeps revisions.
	Revisionable bool `json:"revisionable,omitempty" yaml:"revisionable,omitempty"`

	// Language is the language code of the translation the reference points at.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// String returns a compact form for logs.
func (i Identity) String() string {
	id := i.UUID
	if id == "" {
		id = i.ID
	}
	s := i.Kind + ":" + id
	if i.Revisionable && i.Revision != "" {
		s += "@" + i.Revision
	}
	if i.Language != "" {
		s += "/" + i.Language
	}
	return s
}

// Resource is an externally-owned object that a Container aggregates but
// never owns. Save and Delete run inside whatever transaction ctx carries.
type Resource interface {
	Identity() Identity
	Save(ctx context.Context) error
	Delete(ctx context.Context) error
}

// Property is one named value of a Structured object.
type Property struct {
	Name  string
	Value any
}

// Structured is implemented by objects that can be converted into an
// ordered key/value structure, such as entities and configuration records.
type Structured interface {
	Properties() []Property
}

// Writable is implemented by resources whose properties can be changed
// through a container bound to them with FromResource.
type Writable interface {
	SetProperty(name string, value any) error
}
