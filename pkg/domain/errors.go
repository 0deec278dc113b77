package domain

import (
	"errors"
	"fmt"
)

// Engine errors.
var (
	// ErrReadOnly is matched by ReadOnlyViolationError.
	ErrReadOnly = errors.New("write outside of an update")

	// ErrDanglingKey is matched by DanglingKeyError.
	ErrDanglingKey = errors.New("dangling node key")

	// ErrStructuralInvariant is matched by StructuralInvariantError.
	ErrStructuralInvariant = errors.New("structural invariant violated")
)

// Registry errors.
var (
	// ErrUnknownType is matched by UnknownTypeError.
	ErrUnknownType = errors.New("unknown node type")

	// ErrDuplicateType is matched by DuplicateTypeError.
	ErrDuplicateType = errors.New("node type already registered")

	// ErrRegistrationClosed is returned when node types are registered after
	// plugin setup has finished.
	ErrRegistrationClosed = errors.New("node type registration is closed")
)

// Codec and storage errors.
var (
	// ErrMalformedDocument is matched by MalformedDocumentError.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrDocumentNotFound is returned when a document ID cannot be found in the store.
	ErrDocumentNotFound = errors.New("document not found")
)

// ReadOnlyViolationError reports a write attempted outside of a running update.
type ReadOnlyViolationError struct {
	Key NodeKey
	Op  string
}

func (e *ReadOnlyViolationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: read-only violation", e.Op)
	}
	return fmt.Sprintf("%s %s: read-only violation", e.Op, e.Key)
}

func (e *ReadOnlyViolationError) Is(target error) bool { return target == ErrReadOnly }

// DanglingKeyError reports a key that does not resolve in the snapshot being read.
type DanglingKeyError struct {
	Key NodeKey
}

func (e *DanglingKeyError) Error() string {
	return fmt.Sprintf("node %q does not exist", string(e.Key))
}

func (e *DanglingKeyError) Is(target error) bool { return target == ErrDanglingKey }

// UnknownTypeError reports a type tag with no registered binding.
type UnknownTypeError struct {
	Tag string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown node type %q", e.Tag)
}

func (e *UnknownTypeError) Is(target error) bool { return target == ErrUnknownType }

// DuplicateTypeError reports a tag already bound to a different constructor.
type DuplicateTypeError struct {
	Tag string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("node type %q is already registered with a different constructor", e.Tag)
}

func (e *DuplicateTypeError) Is(target error) bool { return target == ErrDuplicateType }

// StructuralInvariantError reports a tree that would break the single-parent,
// single-root or acyclicity rules.
type StructuralInvariantError struct {
	Key    NodeKey
	Reason string
}

func (e *StructuralInvariantError) Error() string {
	if e.Key == "" {
		return "structural invariant violated: " + e.Reason
	}
	return fmt.Sprintf("structural invariant violated at %s: %s", e.Key, e.Reason)
}

func (e *StructuralInvariantError) Is(target error) bool { return target == ErrStructuralInvariant }

// MalformedDocumentError reports a serialized document that cannot be decoded.
// Path locates the offending record, e.g. "root.children[1]".
type MalformedDocumentError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	msg := "malformed document"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

func (e *MalformedDocumentError) Is(target error) bool { return target == ErrMalformedDocument }
