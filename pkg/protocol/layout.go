package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FieldDef describes one field of a module payload.
type FieldDef struct {
	Name   string `json:"name"`
	CType  string `json:"c_type"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
}

// PayloadLayout is the byte layout of one module's payload region.
type PayloadLayout struct {
	Module   Module
	ID       uint8
	ByteSize int
	Fields   []FieldDef
}

var layouts = map[Module]PayloadLayout{
	ModuleBallast: {
		Module:   ModuleBallast,
		ID:       BallastID,
		ByteSize: PayloadSize,
		Fields:   []FieldDef{{Name: "state", CType: "uint8_t", Offset: 0, Size: 1}},
	},
	ModuleLight: {
		Module:   ModuleLight,
		ID:       LightID,
		ByteSize: PayloadSize,
		Fields:   []FieldDef{{Name: "state", CType: "uint8_t", Offset: 0, Size: 1}},
	},
	ModulePropulsion: {
		Module:   ModulePropulsion,
		ID:       PropulsionID,
		ByteSize: PayloadSize,
		Fields: []FieldDef{
			{Name: "x", CType: "float", Offset: 0, Size: 4},
			{Name: "y", CType: "float", Offset: 4, Size: 4},
		},
	},
}

// Layout returns the payload layout of m.
func Layout(m Module) (PayloadLayout, bool) {
	l, ok := layouts[m]
	if !ok {
		return PayloadLayout{}, false
	}
	l.Fields = append([]FieldDef(nil), l.Fields...)
	return l, true
}

// Layouts returns every layout ordered by wire id.
func Layouts() []PayloadLayout {
	out := make([]PayloadLayout, 0, len(layouts))
	for _, id := range ModuleIDs() {
		m, _ := LookupModule(id)
		l, _ := Layout(m)
		out = append(out, l)
	}
	return out
}

// DecodeFields decodes payload into named values using the layout of m.
// It does no variant checking; use the module codecs for that.
func DecodeFields(m Module, payload []byte) (map[string]any, error) {
	l, ok := layouts[m]
	if !ok {
		return nil, fmt.Errorf("no payload layout for %s", m)
	}

	out := make(map[string]any, len(l.Fields))
	for _, field := range l.Fields {
		end := field.Offset + field.Size
		if end > len(payload) {
			return nil, fmt.Errorf("field %s out of range for %s", field.Name, m)
		}
		value, err := decodeFieldValue(field.CType, payload[field.Offset:end])
		if err != nil {
			return nil, fmt.Errorf("decode field %s for %s: %w", field.Name, m, err)
		}
		out[field.Name] = value
	}
	return out, nil
}

func decodeFieldValue(ctype string, data []byte) (any, error) {
	switch ctype {
	case "float":
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
	case "uint8_t":
		return data[0], nil
	default:
		return nil, fmt.Errorf("unsupported c type %q", ctype)
	}
}
