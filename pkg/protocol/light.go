package protocol

import "fmt"

// LightCommand switches the lights.
//
// Codes are Off=0, On=1, Blink=2. On is 1 on purpose; firmware decodes
// the same table. Values past Blink encode but fail Decode.
type LightCommand uint8

const (
	LightOff   LightCommand = 0
	LightOn    LightCommand = 1
	LightBlink LightCommand = 2
)

func (LightCommand) Module() Module { return ModuleLight }

func (c LightCommand) Encode() Frame {
	return encodeState(ModuleLight, uint8(c))
}

func (c LightCommand) String() string {
	switch c {
	case LightOff:
		return "light off"
	case LightOn:
		return "light on"
	case LightBlink:
		return "light blink"
	default:
		return fmt.Sprintf("light(%d)", uint8(c))
	}
}

func (c LightCommand) Valid() bool { return c <= maxState }

func (LightCommand) isCommand() {}

// DecodeLight decodes a light payload.
func DecodeLight(payload []byte) (LightCommand, error) {
	state, err := decodeState(ModuleLight, payload)
	if err != nil {
		return 0, err
	}
	return LightCommand(state), nil
}

// ParseLight accepts on, off or blink.
func ParseLight(name string) (LightCommand, error) {
	switch name {
	case "on":
		return LightOn, nil
	case "off":
		return LightOff, nil
	case "blink":
		return LightBlink, nil
	default:
		return 0, fmt.Errorf("unknown light command %q", name)
	}
}
