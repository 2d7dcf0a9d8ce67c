package config

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Port        int    `yaml:"port"`
	BearerToken string `yaml:"bearerToken"`
	CORS        CORS   `yaml:"cors"`
}

// CORS holds Cross-Origin Resource Sharing settings
type CORS struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	AllowedMethods []string `yaml:"allowedMethods"`
	AllowedHeaders []string `yaml:"allowedHeaders"`
	MaxAge         int      `yaml:"maxAge"`
}

// DefaultServerConfig returns the settings used when the config file has no server block
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port: 8088,
		CORS: CORS{
			Enabled:        false,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         3600,
		},
	}
}
