package data

import "strconv"

// Key addresses one property of a Container. It is either a list slot
// (Index) or a map slot (Name); the two never collide, so Index(0) and
// Name("0") are different keys. Plain map output cannot tell them apart,
// see ToArray.
type Key struct {
	name  string
	index int
	named bool
}

// Reserved marker keys understood by Container.Set.
var (
	// AppendKey always stores the value at a new trailing index.
	AppendKey = Name("+")

	// RemoveKey removes the given value, or the last property when the value is nil.
	RemoveKey = Name("-")
)

// Index returns the key of a list slot.
func Index(i int) Key {
	return Key{index: i}
}

// Name returns the key of a map slot.
func Name(name string) Key {
	return Key{name: name, named: true}
}

// ParseKey converts textual input into a Key. Canonical non-negative
// integers ("0", "12") become list slots; anything else, including "01"
// and "-1", becomes a map slot.
func ParseKey(s string) Key {
	if isCanonicalIndex(s) {
		if i, err := strconv.Atoi(s); err == nil {
			return Index(i)
		}
	}
	return Name(s)
}

func isCanonicalIndex(s string) bool {
	if s == "" || len(s) > 18 {
		return false
	}
	if s == "0" {
		return true
	}
	if s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsIndex reports whether k addresses a list slot.
func (k Key) IsIndex() bool {
	return !k.named
}

// Index returns the slot number of a list key, or -1 for a map key.
func (k Key) Index() int {
	if k.named {
		return -1
	}
	return k.index
}

// Name returns the name of a map key, or "" for a list key.
func (k Key) Name() string {
	return k.name
}

// String returns the textual form used in paths and rendered output.
func (k Key) String() string {
	if k.named {
		return k.name
	}
	return strconv.Itoa(k.index)
}
