package core

// TargetConfig describes a database target in the configuration file.
// It is the user-facing shape; AdapterConfig is the connection-time shape
// built from it.
type TargetConfig struct {
	Type     string            `koanf:"type" yaml:"type"`
	Database string            `koanf:"database" yaml:"database"`
	Host     string            `koanf:"host" yaml:"host"`
	Port     int               `koanf:"port" yaml:"port"`
	User     string            `koanf:"user" yaml:"user"`
	Password string            `koanf:"password" yaml:"password"`
	Schema   string            `koanf:"schema" yaml:"schema"`
	Options  map[string]string `koanf:"options" yaml:"options"`
	Params   map[string]any    `koanf:"params" yaml:"params"`
}

// AdapterConfig converts the target to the connection-time shape.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}
