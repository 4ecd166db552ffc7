package data

import (
	"reflect"
)

// IdentityPolicy decides when two resource references denote the same
// resource.
//
// Identifiers are compared first: with PreferUUID, the UUIDs are compared
// whenever both sides carry one and the backend IDs otherwise; without it
// the IDs win when both sides carry one. If no identifier is present on both
// sides the references never match. Kinds must agree when both are set.
type IdentityPolicy struct {
	PreferUUID      bool `yaml:"prefer_uuid" json:"prefer_uuid"`
	CompareRevision bool `yaml:"compare_revision" json:"compare_revision"`
	CompareLanguage bool `yaml:"compare_language" json:"compare_language"`
}

// DefaultIdentityPolicy compares the UUID when available, the revision of
// revisionable resources, and the language.
func DefaultIdentityPolicy() IdentityPolicy {
	return IdentityPolicy{
		PreferUUID:      true,
		CompareRevision: true,
		CompareLanguage: true,
	}
}

// Same reports whether a and b identify the same resource.
func (p IdentityPolicy) Same(a, b Identity) bool {
	if a.Kind != "" && b.Kind != "" && a.Kind != b.Kind {
		return false
	}
	if !p.sameID(a, b) {
		return false
	}
	if p.CompareRevision && (a.Revisionable || b.Revisionable) && a.Revision != b.Revision {
		return false
	}
	if p.CompareLanguage && a.Language != b.Language {
		return false
	}
	return true
}

func (p IdentityPolicy) sameID(a, b Identity) bool {
	bothUUID := a.UUID != "" && b.UUID != ""
	bothID := a.ID != "" && b.ID != ""
	switch {
	case p.PreferUUID && bothUUID:
		return a.UUID == b.UUID
	case bothID:
		return a.ID == b.ID
	case bothUUID:
		return a.UUID == b.UUID
	}
	return false
}

// matcher implements the RemoveByValue search.
type matcher struct {
	value    any
	policy   IdentityPolicy
	resource Resource
	wrapped  *Node
}

func newMatcher(value any, policy IdentityPolicy) *matcher {
	m := &matcher{value: value, policy: policy}
	switch v := value.(type) {
	case *Node:
		m.wrapped = v
	case *Container:
		m.wrapped = &Node{tag: TagContainer, value: v}
	default:
		if n, err := Wrap(Name(""), value); err == nil {
			m.wrapped = n
		}
	}
	if m.wrapped != nil {
		m.resource, _ = m.wrapped.Resource()
	}
	return m
}

// matches reports whether n is the value, holds an equal value, or holds a
// resource with the same identity. Comparison panics count as no match.
func (m *matcher) matches(n *Node) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if sameRef(n, m.value) || sameRef(n.value, m.value) || sameRef(n.original, m.value) {
		return true
	}
	if m.wrapped == nil {
		return false
	}
	if r, isResource := n.Resource(); isResource && m.resource != nil {
		return sameRef(r, m.resource) || m.policy.Same(r.Identity(), m.resource.Identity())
	}
	if n.tag == TagResource || m.wrapped.tag == TagResource {
		return false
	}
	return reflect.DeepEqual(n.Unwrap(), m.wrapped.Unwrap())
}

// sameRef reports whether a and b are the same reference, or equal values
// of the same comparable type.
func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	if ta.Kind() == reflect.Pointer {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return a == b
}
