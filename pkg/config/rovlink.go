package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"
)

const DefaultConfigPath = "rovlink.toml"

type RovlinkConfig struct {
	Link       LinkConfig     `toml:"link" yaml:"link"`
	Log        LogConfig      `toml:"log" yaml:"log"`
	Foxglove   FoxgloveConfig `toml:"foxglove" yaml:"foxglove"`
	Mock       MockConfig     `toml:"mock" yaml:"mock"`
	configPath string         `toml:"-" yaml:"-"`
}

// LinkConfig selects the byte stream carrying command frames. A non-empty
// SerialPort takes precedence over Addr.
type LinkConfig struct {
	Addr         string `toml:"addr" yaml:"addr"`
	SerialPort   string `toml:"serial_port,omitempty" yaml:"serial_port,omitempty"`
	Baud         int    `toml:"baud" yaml:"baud"`
	Reconnect    string `toml:"reconnect" yaml:"reconnect"`
	ReconnectMax string `toml:"reconnect_max" yaml:"reconnect_max"`
	Buf          int    `toml:"buf" yaml:"buf"`
	ReaderBuf    int    `toml:"reader_buf" yaml:"reader_buf"`
	DropRejected bool   `toml:"drop_rejected" yaml:"drop_rejected"`
}

type LogConfig struct {
	Level   string `toml:"level" yaml:"level"`
	NoColor bool   `toml:"no_color" yaml:"no_color"`
	JSONL   string `toml:"jsonl,omitempty" yaml:"jsonl,omitempty"`
}

type FoxgloveConfig struct {
	Enabled     bool   `toml:"enabled" yaml:"enabled"`
	WSAddr      string `toml:"ws_addr" yaml:"ws_addr"`
	Topic       string `toml:"topic" yaml:"topic"`
	ThrustTopic string `toml:"thrust_topic" yaml:"thrust_topic"`
	LogTopic    string `toml:"log_topic" yaml:"log_topic"`
	FrameID     string `toml:"frame_id" yaml:"frame_id"`
}

type MockConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
	Hz   int    `toml:"hz" yaml:"hz"`
}

func Default() RovlinkConfig {
	return RovlinkConfig{
		Link: LinkConfig{
			Addr:         "127.0.0.1:19021",
			Baud:         115200,
			Reconnect:    "1s",
			ReconnectMax: "30s",
			Buf:          256,
			ReaderBuf:    4 * 1024,
		},
		Log: LogConfig{
			Level: "info",
		},
		Foxglove: FoxgloveConfig{
			WSAddr:      "127.0.0.1:8765",
			Topic:       "rovlink/command",
			ThrustTopic: "/rovlink/thrust",
			LogTopic:    "/rovlink/log",
			FrameID:     "rov",
		},
		Mock: MockConfig{
			Addr: "127.0.0.1:19021",
			Hz:   20,
		},
	}
}

func Load(path string) (RovlinkConfig, error) {
	cfg, exists, err := LoadOrDefault(path)
	if err != nil {
		return RovlinkConfig{}, err
	}
	if !exists {
		return RovlinkConfig{}, os.ErrNotExist
	}
	return cfg, nil
}

// LoadOrDefault reads path if it exists and fills unset values with
// defaults. The boolean reports whether the file existed.
func LoadOrDefault(path string) (RovlinkConfig, bool, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath
	}
	cfg := Default()
	cfg.configPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize()
			return cfg, false, nil
		}
		return RovlinkConfig{}, false, fmt.Errorf("read config: %w", err)
	}

	if err := unmarshal(path, data, &cfg); err != nil {
		return RovlinkConfig{}, true, fmt.Errorf("parse config: %w", err)
	}
	cfg.configPath = path
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return RovlinkConfig{}, true, err
	}
	return cfg, true, nil
}

func (cfg *RovlinkConfig) Save(path string) error {
	cfg.configPath = path
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := marshal(path, cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (cfg *RovlinkConfig) ConfigPath() string {
	return cfg.configPath
}

func (cfg *RovlinkConfig) Validate() error {
	if _, err := cfg.Link.ReconnectInterval(); err != nil {
		return err
	}
	if _, err := cfg.Link.ReconnectMaxInterval(); err != nil {
		return err
	}
	if cfg.Link.SerialPort != "" && cfg.Link.Baud <= 0 {
		return fmt.Errorf("link.baud must be positive: %d", cfg.Link.Baud)
	}
	if cfg.Mock.Hz <= 0 {
		return fmt.Errorf("mock.hz must be positive: %d", cfg.Mock.Hz)
	}
	return nil
}

func (l LinkConfig) ReconnectInterval() (time.Duration, error) {
	d, err := time.ParseDuration(l.Reconnect)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid link.reconnect %q", l.Reconnect)
	}
	return d, nil
}

func (l LinkConfig) ReconnectMaxInterval() (time.Duration, error) {
	d, err := time.ParseDuration(l.ReconnectMax)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid link.reconnect_max %q", l.ReconnectMax)
	}
	return d, nil
}

func (cfg *RovlinkConfig) normalize() {
	def := Default()

	if cfg.Link.Addr == "" {
		cfg.Link.Addr = def.Link.Addr
	}
	cfg.Link.SerialPort = strings.TrimSpace(cfg.Link.SerialPort)
	if cfg.Link.Baud == 0 {
		cfg.Link.Baud = def.Link.Baud
	}
	if cfg.Link.Reconnect == "" {
		cfg.Link.Reconnect = def.Link.Reconnect
	}
	if cfg.Link.ReconnectMax == "" {
		cfg.Link.ReconnectMax = def.Link.ReconnectMax
	}
	if cfg.Link.Buf <= 0 {
		cfg.Link.Buf = def.Link.Buf
	}
	if cfg.Link.ReaderBuf <= 0 {
		cfg.Link.ReaderBuf = def.Link.ReaderBuf
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.JSONL != "" && !filepath.IsAbs(cfg.Log.JSONL) {
		baseDir := filepath.Dir(cfg.configPath)
		jsonl := filepath.Join(baseDir, cfg.Log.JSONL)
		if abs, err := filepath.Abs(jsonl); err == nil {
			jsonl = abs
		}
		cfg.Log.JSONL = filepath.Clean(jsonl)
	}

	if cfg.Foxglove.WSAddr == "" {
		cfg.Foxglove.WSAddr = def.Foxglove.WSAddr
	}
	if cfg.Foxglove.Topic == "" {
		cfg.Foxglove.Topic = def.Foxglove.Topic
	}
	if cfg.Foxglove.ThrustTopic == "" {
		cfg.Foxglove.ThrustTopic = def.Foxglove.ThrustTopic
	}
	if cfg.Foxglove.LogTopic == "" {
		cfg.Foxglove.LogTopic = def.Foxglove.LogTopic
	}
	if cfg.Foxglove.FrameID == "" {
		cfg.Foxglove.FrameID = def.Foxglove.FrameID
	}

	if cfg.Mock.Addr == "" {
		cfg.Mock.Addr = def.Mock.Addr
	}
	if cfg.Mock.Hz == 0 {
		cfg.Mock.Hz = def.Mock.Hz
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func unmarshal(path string, data []byte, cfg *RovlinkConfig) error {
	if isYAML(path) {
		return yaml.UnmarshalStrict(data, cfg)
	}
	return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
}

func marshal(path string, cfg *RovlinkConfig) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	return toml.Marshal(cfg)
}
