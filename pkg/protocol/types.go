package protocol

import (
	"errors"
	"time"
)

// Packet is one received frame flowing through the receive pipeline.
// Exactly one of Command and Err is set.
type Packet struct {
	Timestamp time.Time
	Frame     Frame
	Command   Command
	Err       error
}

// Accepted reports whether the frame decoded into a command.
func (p Packet) Accepted() bool {
	return p.Err == nil && p.Command != nil
}

// HasFrame reports whether Frame holds received bytes. It is false when
// the link frame failed to unstuff or had the wrong length, in which case
// Frame is the zero value.
func (p Packet) HasFrame() bool {
	return !errors.Is(p.Err, ErrLinkFrame) && !errors.Is(p.Err, ErrFrameSize)
}
