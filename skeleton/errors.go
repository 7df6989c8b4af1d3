package skeleton

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated    = errors.New("unexpected end of data")
	ErrInvalidUTF8  = errors.New("invalid utf-8 string")
	ErrUnknownTag   = errors.New("unknown tag")
	ErrInvalidValue = errors.New("invalid value")
)

// DecodeError reports malformed input at a byte offset (binary) or line (text formats).
// Offset is -1 when the position is unknown.
type DecodeError struct {
	Offset int
	Field  string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ReferenceError reports an index or name that does not resolve.
type ReferenceError struct {
	Kind  string // bone slot skin string event ...
	Name  string
	Index int
}

func (e *ReferenceError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unresolved %s reference %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s index %d out of range", e.Kind, e.Index)
}

// StructuralError reports a bone hierarchy that is not a tree rooted at bone 0.
type StructuralError struct {
	Bone   string
	Index  int
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("bone %q (%d): %s", e.Bone, e.Index, e.Reason)
}
