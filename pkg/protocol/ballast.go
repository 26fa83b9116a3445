package protocol

import "fmt"

// BallastCommand selects the ballast pump mode. Only the declared
// constants are valid; other values encode but fail Decode.
//
//	state   unused
//	[ [] [][][][][][][][][][][] ]
type BallastCommand uint8

const (
	BallastIdle      BallastCommand = 0
	BallastIntake    BallastCommand = 1
	BallastDischarge BallastCommand = 2
)

func (BallastCommand) Module() Module { return ModuleBallast }

func (c BallastCommand) Encode() Frame {
	return encodeState(ModuleBallast, uint8(c))
}

func (c BallastCommand) String() string {
	switch c {
	case BallastIdle:
		return "ballast idle"
	case BallastIntake:
		return "ballast intake"
	case BallastDischarge:
		return "ballast discharge"
	default:
		return fmt.Sprintf("ballast(%d)", uint8(c))
	}
}

func (c BallastCommand) Valid() bool { return c <= maxState }

func (BallastCommand) isCommand() {}

// DecodeBallast decodes a ballast payload.
func DecodeBallast(payload []byte) (BallastCommand, error) {
	state, err := decodeState(ModuleBallast, payload)
	if err != nil {
		return 0, err
	}
	return BallastCommand(state), nil
}

// ParseBallast accepts idle, intake or discharge.
func ParseBallast(name string) (BallastCommand, error) {
	switch name {
	case "idle", "stop":
		return BallastIdle, nil
	case "intake":
		return BallastIntake, nil
	case "discharge":
		return BallastDischarge, nil
	default:
		return 0, fmt.Errorf("unknown ballast command %q", name)
	}
}
