package protocol_test

import (
	"reflect"
	"sync"
	"testing"

	"rovlink/pkg/protocol"
)

func TestLookupModule(t *testing.T) {
	cases := map[uint8]protocol.Module{
		0x00: protocol.ModuleBallast,
		0x01: protocol.ModulePropulsion,
		0x02: protocol.ModuleLight,
	}
	for id, want := range cases {
		got, ok := protocol.LookupModule(id)
		if !ok || got != want {
			t.Fatalf("id 0x%02x: got %s,%v want %s", id, got, ok, want)
		}
		if got.ID() != id {
			t.Fatalf("%s: reverse id 0x%02x want 0x%02x", got, got.ID(), id)
		}
	}
	if _, ok := protocol.LookupModule(0x03); ok {
		t.Fatalf("expected 0x03 to be unknown")
	}
}

func TestModuleIDsSorted(t *testing.T) {
	ids := protocol.ModuleIDs()
	if !reflect.DeepEqual(ids, []uint8{0, 1, 2}) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	ids[0] = 0x7F
	if protocol.ModuleIDs()[0] != 0 {
		t.Fatalf("ModuleIDs must return a copy")
	}
}

func TestConcurrentCodecUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				cmd := protocol.SetThrust(float32(i), float32(j))
				got, err := protocol.Decode(cmd.Encode())
				if err != nil || got != cmd {
					t.Errorf("goroutine %d: got %v err %v", i, got, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   []string
		want protocol.Command
	}{
		{[]string{"ballast", "intake"}, protocol.BallastIntake},
		{[]string{"Ballast", "IDLE"}, protocol.BallastIdle},
		{[]string{"light", "blink"}, protocol.LightBlink},
		{[]string{"light", "off"}, protocol.LightOff},
		{[]string{"thrust", "1.0", "-2"}, protocol.SetThrust(1, -2)},
		{[]string{"propulsion", "0", "0.5"}, protocol.SetThrust(0, 0.5)},
	}
	for _, tc := range cases {
		got, err := protocol.ParseCommand(tc.in)
		if err != nil {
			t.Fatalf("%v: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%v: got %s want %s", tc.in, got, tc.want)
		}
	}

	for _, bad := range [][]string{nil, {"rudder", "left"}, {"light"}, {"ballast", "fill"}, {"thrust", "x", "1"}} {
		if cmd, err := protocol.ParseCommand(bad); err == nil || cmd != nil {
			t.Fatalf("%v: expected error, got %v", bad, cmd)
		}
	}
}
