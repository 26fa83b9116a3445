package protocol

// Command is a typed command for one module. The set of implementations is
// closed: BallastCommand, LightCommand and PropulsionCommand.
type Command interface {
	Module() Module
	// Encode builds the complete frame. The checksum byte is left zero.
	Encode() Frame
	String() string
	// Valid reports whether the command is one the firmware decodes.
	// Encode does not check it.
	Valid() bool

	isCommand()
}

// Decode validates f and decodes its payload with the codec selected by
// the module id byte.
func Decode(f Frame) (Command, error) {
	if err := CheckFrame(f); err != nil {
		return nil, err
	}

	m, _ := LookupModule(f.ModuleID())
	payload := f[PayloadOffset:ChecksumOffset]

	var (
		cmd Command
		err error
	)
	switch m {
	case ModuleBallast:
		cmd, err = DecodeBallast(payload)
	case ModuleLight:
		cmd, err = DecodeLight(payload)
	case ModulePropulsion:
		cmd, err = DecodePropulsion(payload)
	default:
		err = &StructuralError{Err: ErrUnknownModule}
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// DecodeBytes parses and decodes a raw 16-byte buffer.
func DecodeBytes(b []byte) (Command, error) {
	f, err := ParseFrame(b)
	if err != nil {
		return nil, err
	}
	return Decode(f)
}

// CheckCommand returns a DecodeError for commands whose frame Decode
// would reject.
func CheckCommand(cmd Command) error {
	if cmd.Valid() {
		return nil
	}
	return &DecodeError{Module: cmd.Module(), Discriminant: cmd.Encode().Payload()[0], Err: ErrUnknownVariant}
}

// maxState is the highest discriminant of the single-byte state codecs.
const maxState = 2

func encodeState(m Module, state uint8) Frame {
	f := NewTemplate()
	f.setModule(m.ID())
	f.payload()[0] = state
	return f
}

// decodeState reads the discriminant byte shared by the single-byte
// state codecs.
func decodeState(m Module, payload []byte) (uint8, error) {
	if len(payload) < 1 {
		return 0, &DecodeError{Module: m, Err: ErrShortPayload}
	}
	state := payload[0]
	if state > maxState {
		return 0, &DecodeError{Module: m, Discriminant: state, Err: ErrUnknownVariant}
	}
	return state, nil
}
