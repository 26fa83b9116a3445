package protocol

import (
	"fmt"
	"sort"
)

// Module is a logical hardware module addressed by a frame.
type Module uint8

const (
	ModuleBallast Module = iota + 1
	ModuleLight
	ModulePropulsion
)

// Wire module identifiers, frame byte 1.
const (
	BallastID    uint8 = 0x00
	PropulsionID uint8 = 0x01
	LightID      uint8 = 0x02
)

// moduleIDs is built once at init and never written afterwards, so
// concurrent readers need no locking.
var (
	moduleIDs = map[uint8]Module{
		BallastID:    ModuleBallast,
		LightID:      ModuleLight,
		PropulsionID: ModulePropulsion,
	}
	sortedModuleIDs = func() []uint8 {
		ids := make([]uint8, 0, len(moduleIDs))
		for id := range moduleIDs {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return ids
	}()
)

// LookupModule maps a wire module id to its module.
func LookupModule(id uint8) (Module, bool) {
	m, ok := moduleIDs[id]
	return m, ok
}

// ModuleIDs returns the valid wire ids in ascending order.
func ModuleIDs() []uint8 {
	return append([]uint8(nil), sortedModuleIDs...)
}

// ID returns the wire id of m. It panics for a Module value outside the
// declared constants.
func (m Module) ID() uint8 {
	switch m {
	case ModuleBallast:
		return BallastID
	case ModuleLight:
		return LightID
	case ModulePropulsion:
		return PropulsionID
	default:
		panic(fmt.Sprintf("protocol: unknown module %d", uint8(m)))
	}
}

func (m Module) String() string {
	switch m {
	case ModuleBallast:
		return "ballast"
	case ModuleLight:
		return "light"
	case ModulePropulsion:
		return "propulsion"
	default:
		return fmt.Sprintf("module(%d)", uint8(m))
	}
}

// ParseModule accepts the lower-case names produced by Module.String.
func ParseModule(name string) (Module, error) {
	switch name {
	case "ballast":
		return ModuleBallast, nil
	case "light":
		return ModuleLight, nil
	case "propulsion", "thrust":
		return ModulePropulsion, nil
	default:
		return 0, fmt.Errorf("unknown module %q", name)
	}
}
