package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		if !ok || got != want {
			t.Fatalf("%q: got %v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}

func TestInitInstallsGlobal(t *testing.T) {
	old := log.Logger
	defer func() { log.Logger = old }()
	t.Setenv(EnvLogLevel, "")

	var buf bytes.Buffer
	Init("rovlink-test", Config{Level: "warn", NoColor: true, Out: &buf})

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "rovlink-test") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestEnvOverridesLevel(t *testing.T) {
	old := log.Logger
	defer func() { log.Logger = old }()
	t.Setenv(EnvLogLevel, "debug")

	var buf bytes.Buffer
	logger := Init("rovlink-test", Config{Level: "error", NoColor: true, Out: &buf})
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("unexpected level: %v", logger.GetLevel())
	}
}
