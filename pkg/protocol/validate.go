package protocol

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CheckFrame runs the structural checks every received frame must pass
// before payload decoding. It stops at the first failure.
//
// The checksum byte is not checked: no checksum algorithm exists for this
// protocol yet, so any value at ChecksumOffset is accepted.
func CheckFrame(f Frame) error {
	start, end := f[0], f[FrameSize-1]
	if start != StartByte || end != EndByte {
		return &StructuralError{
			Err: ErrBadMarker,
			Detail: fmt.Sprintf("start 0x%02x (want 0x%02x), end 0x%02x (want 0x%02x)",
				start, StartByte, end, EndByte),
		}
	}

	id := f.ModuleID()
	if _, ok := LookupModule(id); !ok {
		return &StructuralError{
			Err:    ErrUnknownModule,
			Detail: fmt.Sprintf("0x%02x, valid ids %v", id, ModuleIDs()),
		}
	}

	return nil
}

// Validate reports whether f is structurally sound. Failures are logged as
// warnings; the log output does not affect the result.
func Validate(f Frame) bool {
	err := CheckFrame(f)
	if err == nil {
		return true
	}

	ev := log.Warn().Err(err).Str("frame", f.String())
	switch {
	case errors.Is(err, ErrBadMarker):
		ev = ev.Uint8("start", f[0]).Uint8("end", f[FrameSize-1]).
			Uint8("want_start", StartByte).Uint8("want_end", EndByte)
	case errors.Is(err, ErrUnknownModule):
		ev = ev.Uint8("module_id", f.ModuleID()).Uints8("valid_ids", ModuleIDs())
	}
	ev.Msg("rejected command frame")
	return false
}
