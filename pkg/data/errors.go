package data

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedValueType is matched by every *UnsupportedValueTypeError.
	ErrUnsupportedValueType = errors.New("unsupported value type")

	// ErrNoCoordinator is returned by SaveData and DeleteData when no
	// Coordinator was injected into the container tree.
	ErrNoCoordinator = errors.New("no persistence coordinator configured")

	// ErrCyclicContainer is returned when a container would become its own descendant.
	ErrCyclicContainer = errors.New("container cannot contain itself")
)

// UnsupportedValueTypeError reports a raw value that matches none of the
// shapes Wrap knows how to store.
type UnsupportedValueTypeError struct {
	// Key is the property the value was destined for.
	Key Key

	// TypeName is the reported type of the offending value.
	TypeName string
}

// Error implements the error interface.
func (e *UnsupportedValueTypeError) Error() string {
	return fmt.Sprintf("%s for property %q: %s", ErrUnsupportedValueType, e.Key.String(), e.TypeName)
}

// Is implements error equality checking for errors.Is.
func (e *UnsupportedValueTypeError) Is(target error) bool {
	if target == ErrUnsupportedValueType {
		return true
	}
	t, ok := target.(*UnsupportedValueTypeError)
	if !ok {
		return false
	}
	return e.TypeName == t.TypeName
}
