// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
}

// DatabaseConfig holds MongoDB connection settings. An empty URI means
// the engine runs purely in memory (dev and test mode).
type DatabaseConfig struct {
	URI  string
	Name string
}

// AdminConfig holds the moderation capability settings. Client ids in
// Allowed resolve with the admin role; KeyHash is a bcrypt hash of the
// admin key exchanged for a moderation token.
type AdminConfig struct {
	Allowed []string
	KeyHash string
	JWTKey  string
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Admin          *AdminConfig
	AllowedOrigins []string
	Debug          bool
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Silent failure if no .env exists, which is fine
	_ = godotenv.Load()

	serverConfig := DefaultConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			serverConfig.Port = port
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}

	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}

	dbConfig := &DatabaseConfig{
		URI:  os.Getenv("MONGO_URL"),
		Name: getEnvOrDefault("DB_NAME", "marker_map"),
	}

	adminConfig := &AdminConfig{
		KeyHash: os.Getenv("ADMIN_KEY_HASH"),
		JWTKey:  getEnvOrDefault("JWT_SECRET", "marker-map-dev-secret"),
	}
	if admins := os.Getenv("ALLOWED_ADMINS"); admins != "" {
		for _, id := range strings.Split(admins, ",") {
			if id = strings.TrimSpace(id); id != "" {
				adminConfig.Allowed = append(adminConfig.Allowed, id)
			}
		}
	}

	config := &Config{
		Server:         serverConfig,
		Database:       dbConfig,
		Admin:          adminConfig,
		AllowedOrigins: []string{"*"}, // Default to allow all origins
		Debug:          false,
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
	}

	return config, nil
}

// IsAdmin reports whether the client id is on the admin allow-list.
func (a *AdminConfig) IsAdmin(clientID string) bool {
	for _, id := range a.Allowed {
		if id == clientID {
			return true
		}
	}
	return false
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
