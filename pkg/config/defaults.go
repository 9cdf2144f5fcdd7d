package config

const (
	defaultAPITarget = "http://localhost:8000"
	defaultModel     = "qwen-plus"
	defaultProduct   = "agent"

	defaultServeListen = ":8000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APITarget: defaultAPITarget,
			Model:     defaultModel,
			Product:   defaultProduct,
			DeepThink: false,
		},
		Serve: ServeConfig{
			Listen: defaultServeListen,
		},
	}
}
