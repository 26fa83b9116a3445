package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

const propulsionPayloadSize = 8

// DirectionVector is a thrust direction. It is neither normalized nor
// bounds-checked.
type DirectionVector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// PropulsionCommand sets the thruster output (SetThrust).
//
//	  x: f32   y: f32   unused
//	[ [][][][] [][][][] [][][][] ]
type PropulsionCommand struct {
	Thrust DirectionVector
}

// SetThrust builds a propulsion command.
func SetThrust(x, y float32) PropulsionCommand {
	return PropulsionCommand{Thrust: DirectionVector{X: x, Y: y}}
}

func (PropulsionCommand) Module() Module { return ModulePropulsion }

func (c PropulsionCommand) Encode() Frame {
	f := NewTemplate()
	f.setModule(PropulsionID)
	p := f.payload()
	binary.LittleEndian.PutUint32(p[0:4], math.Float32bits(c.Thrust.X))
	binary.LittleEndian.PutUint32(p[4:8], math.Float32bits(c.Thrust.Y))
	return f
}

func (c PropulsionCommand) String() string {
	return fmt.Sprintf("thrust %g %g", c.Thrust.X, c.Thrust.Y)
}

// Valid is always true; any thrust bit pattern decodes.
func (PropulsionCommand) Valid() bool { return true }

func (PropulsionCommand) isCommand() {}

// DecodePropulsion decodes a propulsion payload. Any bit pattern is
// accepted, NaN and infinities included.
func DecodePropulsion(payload []byte) (PropulsionCommand, error) {
	if len(payload) < propulsionPayloadSize {
		return PropulsionCommand{}, &DecodeError{Module: ModulePropulsion, Err: ErrShortPayload}
	}
	return SetThrust(
		math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4])),
		math.Float32frombits(binary.LittleEndian.Uint32(payload[4:8])),
	), nil
}
