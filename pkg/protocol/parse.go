package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCommand reads the textual form used by the CLI and console, for
// example "ballast intake", "light blink" or "thrust 1.0 -2.0".
func ParseCommand(fields []string) (Command, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	m, err := ParseModule(strings.ToLower(fields[0]))
	if err != nil {
		return nil, err
	}
	args := fields[1:]

	switch m {
	case ModuleBallast, ModuleLight:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes exactly one state", m)
		}
		state := strings.ToLower(args[0])
		if m == ModuleBallast {
			cmd, err := ParseBallast(state)
			if err != nil {
				return nil, err
			}
			return cmd, nil
		}
		cmd, err := ParseLight(state)
		if err != nil {
			return nil, err
		}
		return cmd, nil
	default:
		if len(args) != 2 {
			return nil, fmt.Errorf("thrust takes x and y")
		}
		x, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid thrust x: %w", err)
		}
		y, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid thrust y: %w", err)
		}
		return SetThrust(float32(x), float32(y)), nil
	}
}
