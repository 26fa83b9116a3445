package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrFrameSize      = errors.New("protocol: invalid frame size")
	ErrBadMarker      = errors.New("protocol: invalid start or end marker")
	ErrUnknownModule  = errors.New("protocol: unknown module id")
	ErrUnknownVariant = errors.New("protocol: unknown command variant")
	ErrShortPayload   = errors.New("protocol: payload too short")
	ErrLinkFrame      = errors.New("protocol: invalid link frame")
)

// StructuralError reports a frame rejected before any payload decode.
// The frame should be discarded.
type StructuralError struct {
	Err    error
	Detail string
}

func (e *StructuralError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *StructuralError) Unwrap() error { return e.Err }

// DecodeError reports a payload no variant of Module matches.
type DecodeError struct {
	Module       Module
	Discriminant byte
	Err          error
}

func (e *DecodeError) Error() string {
	if errors.Is(e.Err, ErrShortPayload) {
		return fmt.Sprintf("%v for %s", e.Err, e.Module)
	}
	return fmt.Sprintf("%v for %s: 0x%02x", e.Err, e.Module, e.Discriminant)
}

func (e *DecodeError) Unwrap() error { return e.Err }
