package main

// simConfig is the simulator YAML file.
type simConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Key      string        `mapstructure:"key"`
	Header   string        `mapstructure:"header"`
	Interval string        `mapstructure:"interval"`
	Events   []eventConfig `mapstructure:"events"`
}

// eventConfig is one delivery. Body, when set, is sent byte for byte.
// Otherwise Event and Data are encoded; viper lowercases Data keys.
type eventConfig struct {
	Event string         `mapstructure:"event"`
	Data  map[string]any `mapstructure:"data"`
	Body  string         `mapstructure:"body"`
}

const (
	headerSignature = "signature"
	headerBearer    = "bearer"
)
