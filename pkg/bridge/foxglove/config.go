package foxglove

const DefaultSchema = `{
  "type": "object",
  "properties": {
    "module": { "type": "string" },
    "module_id": { "type": "string" },
    "ts": { "type": "string" },
    "frame_hex": { "type": "string" },
    "command": { "type": "string" },
    "fields": { "type": "object", "additionalProperties": true }
  },
  "required": ["ts"]
}`

const DefaultMarkerSchema = `{
  "type": "object",
  "properties": {
    "header": { "type": "object" },
    "ns": { "type": "string" },
    "id": { "type": "integer" },
    "type": { "type": "integer" },
    "action": { "type": "integer" },
    "pose": { "type": "object" },
    "scale": { "type": "object" },
    "color": { "type": "object" }
  }
}`

const DefaultLogSchema = `{
  "type": "object",
  "properties": {
    "timestamp": { "type": "object" },
    "level": { "type": "integer" },
    "message": { "type": "string" },
    "name": { "type": "string" },
    "file": { "type": "string" },
    "line": { "type": "integer" }
  }
}`

type Config struct {
	WSAddr        string
	Name          string
	Topic         string
	ChannelID     uint64
	ThrustTopic   string
	ThrustChannel uint64
	LogTopic      string
	LogChannel    uint64
	FrameID       string
	SendBuf       int
}

func DefaultConfig() Config {
	return Config{
		WSAddr:        "127.0.0.1:8765",
		Name:          "rovlink",
		Topic:         "rovlink/command",
		ChannelID:     1,
		ThrustTopic:   "/rovlink/thrust",
		ThrustChannel: 2,
		LogTopic:      "/rovlink/log",
		LogChannel:    3,
		FrameID:       "rov",
		SendBuf:       256,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.WSAddr == "" {
		cfg.WSAddr = def.WSAddr
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.ThrustTopic == "" {
		cfg.ThrustTopic = def.ThrustTopic
	}
	if cfg.LogTopic == "" {
		cfg.LogTopic = def.LogTopic
	}
	if cfg.FrameID == "" {
		cfg.FrameID = def.FrameID
	}
	if cfg.SendBuf <= 0 {
		cfg.SendBuf = def.SendBuf
	}
	if cfg.ChannelID == 0 {
		cfg.ChannelID = def.ChannelID
	}
	if cfg.ThrustChannel == 0 || cfg.ThrustChannel == cfg.ChannelID {
		cfg.ThrustChannel = cfg.ChannelID + 1
	}
	if cfg.LogChannel == 0 || cfg.LogChannel == cfg.ChannelID || cfg.LogChannel == cfg.ThrustChannel {
		cfg.LogChannel = max(cfg.ChannelID, cfg.ThrustChannel) + 1
	}
	return cfg
}
