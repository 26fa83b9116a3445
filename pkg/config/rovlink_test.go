package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rovlink/pkg/config"
)

func TestLoadOrDefaultMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg, exists, err := config.LoadOrDefault(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false")
	}
	if cfg.Link.Addr == "" || cfg.Foxglove.WSAddr == "" || cfg.Mock.Hz <= 0 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	if _, err := config.Load(filepath.Join(dir, "missing.toml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadOrDefaultFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rovlink.toml")
	mustWriteFile(t, cfgPath, "[link]\naddr = '10.0.0.7:4000'\n")

	cfg, exists, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !exists {
		t.Fatalf("expected exists=true")
	}
	if cfg.Link.Addr != "10.0.0.7:4000" {
		t.Fatalf("addr not preserved: %q", cfg.Link.Addr)
	}
	if cfg.Link.Reconnect == "" || cfg.Link.Buf <= 0 || cfg.Log.Level == "" {
		t.Fatalf("expected defaults to be filled: %+v", cfg.Link)
	}
	d, err := cfg.Link.ReconnectInterval()
	if err != nil || d != time.Second {
		t.Fatalf("unexpected reconnect interval: %v %v", d, err)
	}
}

func TestLoadResolvesJSONLRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "conf", "rovlink.toml")
	mustMkdirAll(t, filepath.Dir(cfgPath))
	mustWriteFile(t, cfgPath, "[log]\njsonl = 'out/commands.jsonl'\n")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := filepath.Join(dir, "conf", "out", "commands.jsonl")
	if cfg.Log.JSONL != want {
		t.Fatalf("unexpected jsonl path: got %q want %q", cfg.Log.JSONL, want)
	}
}

func TestLoadRejectsInvalidReconnect(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rovlink.toml")
	mustWriteFile(t, cfgPath, "[link]\nreconnect = 'soon'\n")

	if _, _, err := config.LoadOrDefault(cfgPath); err == nil {
		t.Fatalf("expected invalid reconnect error")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rovlink.yaml")
	mustWriteFile(t, cfgPath, `
link:
  serial_port: /dev/ttyUSB0
  baud: 57600
foxglove:
  enabled: true
`)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Link.SerialPort != "/dev/ttyUSB0" || cfg.Link.Baud != 57600 {
		t.Fatalf("unexpected link config: %+v", cfg.Link)
	}
	if !cfg.Foxglove.Enabled || cfg.Foxglove.Topic == "" {
		t.Fatalf("unexpected foxglove config: %+v", cfg.Foxglove)
	}
}

func TestLoadYAMLStrict(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rovlink.yml")
	mustWriteFile(t, cfgPath, "link:\n  adress: typo\n")

	if _, _, err := config.LoadOrDefault(cfgPath); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestLoadTOMLStrict(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rovlink.toml")
	mustWriteFile(t, cfgPath, "[link]\nadress = 'typo'\n")

	if _, _, err := config.LoadOrDefault(cfgPath); err == nil {
		t.Fatalf("expected unknown field error")
	}

	mustWriteFile(t, cfgPath, "[sonar]\nrange = 30\n")
	if _, _, err := config.LoadOrDefault(cfgPath); err == nil {
		t.Fatalf("expected unknown table error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"rovlink.toml", "rovlink.yaml"} {
		cfgPath := filepath.Join(dir, "nested", name)

		cfg := config.Default()
		cfg.Link.Addr = "192.168.1.20:5000"
		cfg.Mock.Hz = 5
		if err := cfg.Save(cfgPath); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}

		loaded, err := config.Load(cfgPath)
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if loaded.Link.Addr != cfg.Link.Addr || loaded.Mock.Hz != 5 {
			t.Fatalf("%s: unexpected config after round trip: %+v", name, loaded)
		}
		if loaded.ConfigPath() != cfgPath {
			t.Fatalf("%s: unexpected config path %q", name, loaded.ConfigPath())
		}
	}
}

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
}

func mustWriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}
