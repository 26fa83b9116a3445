package protocol_test

import (
	"reflect"
	"testing"

	"rovlink/pkg/protocol"
)

func TestDecodeFieldsPropulsion(t *testing.T) {
	f := protocol.SetThrust(1.5, -0.25).Encode()
	fields, err := protocol.DecodeFields(protocol.ModulePropulsion, f.Payload())
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if got := fields["x"]; !reflect.DeepEqual(got, float32(1.5)) {
		t.Fatalf("unexpected x: %#v", got)
	}
	if got := fields["y"]; !reflect.DeepEqual(got, float32(-0.25)) {
		t.Fatalf("unexpected y: %#v", got)
	}
}

func TestDecodeFieldsState(t *testing.T) {
	f := protocol.LightOn.Encode()
	fields, err := protocol.DecodeFields(protocol.ModuleLight, f.Payload())
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if got := fields["state"]; !reflect.DeepEqual(got, uint8(1)) {
		t.Fatalf("unexpected state: %#v", got)
	}
}

func TestDecodeFieldsShortPayload(t *testing.T) {
	if _, err := protocol.DecodeFields(protocol.ModulePropulsion, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestLayoutsFitPayload(t *testing.T) {
	layouts := protocol.Layouts()
	if len(layouts) != 3 {
		t.Fatalf("expected 3 layouts, got %d", len(layouts))
	}
	for i, l := range layouts {
		if l.ID != uint8(i) {
			t.Fatalf("layouts not ordered by id: %+v", l)
		}
		for _, field := range l.Fields {
			if field.Offset+field.Size > protocol.PayloadSize {
				t.Fatalf("%s field %s exceeds payload", l.Module, field.Name)
			}
		}
	}
}
