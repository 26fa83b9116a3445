package protocol

import (
	"encoding/hex"
	"fmt"
)

//	[ start | module id | payload (12) | checksum | end ]
//	   0        1          2..13          14        15
const (
	FrameSize   = 16
	PayloadSize = 12

	StartByte uint8 = 0x0A
	EndByte   uint8 = 0x0F

	moduleOffset  = 1
	PayloadOffset = 2
	// ChecksumOffset is reserved. Nothing computes or checks it yet.
	ChecksumOffset = FrameSize - 2
)

// Frame is one fixed-size command buffer.
type Frame [FrameSize]byte

// NewTemplate returns a frame with only the start and end markers set.
func NewTemplate() Frame {
	var f Frame
	f[0] = StartByte
	f[FrameSize-1] = EndByte
	return f
}

// ParseFrame copies b into a Frame. b must be exactly FrameSize bytes.
func ParseFrame(b []byte) (Frame, error) {
	var f Frame
	if len(b) != FrameSize {
		return f, &StructuralError{
			Err:    ErrFrameSize,
			Detail: fmt.Sprintf("got %d bytes, want %d", len(b), FrameSize),
		}
	}
	copy(f[:], b)
	return f, nil
}

func (f Frame) ModuleID() uint8 {
	return f[moduleOffset]
}

// Payload returns a copy of bytes 2..13.
func (f Frame) Payload() []byte {
	return append([]byte(nil), f[PayloadOffset:ChecksumOffset]...)
}

// Checksum returns the raw reserved byte.
func (f Frame) Checksum() byte {
	return f[ChecksumOffset]
}

func (f Frame) Bytes() []byte {
	return append([]byte(nil), f[:]...)
}

func (f Frame) String() string {
	return hex.EncodeToString(f[:])
}

func (f *Frame) setModule(id uint8) {
	f[moduleOffset] = id
}

func (f *Frame) payload() []byte {
	return f[PayloadOffset:ChecksumOffset]
}
