package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	Host string
	Port int

	// Storage configuration
	StorageType string // "memory", "json", "mysql", "dual"
	StoragePath string // Path for the JSON store file

	// Upload configuration
	UploadDir   string
	MaxUploadMB int

	// Session configuration
	SessionTTLMinutes int

	// Database configuration (for MySQL storage)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Security
	EnableTLS bool
	CertFile  string
	KeyFile   string
}

// Load loads configuration from testplan.cfg file
// Falls back to environment variables if config file is not found
func Load() (*Config, error) {
	configFile := "testplan.cfg"

	if _, err := os.Stat(configFile); err == nil {
		return LoadFromFile(configFile)
	}

	config := &Config{
		Host:              getEnv("HOST", "127.0.0.1"),
		Port:              getEnvAsInt("PORT", 8090),
		StorageType:       getEnv("STORAGE_TYPE", "json"),
		StoragePath:       getEnv("STORAGE_PATH", "./data/storage.json"),
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadMB:       getEnvAsInt("MAX_UPLOAD_MB", 10),
		SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 720),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvAsInt("DB_PORT", 3306),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "testplan"),
		EnableTLS:         getEnvAsBool("ENABLE_TLS", false),
		CertFile:          getEnv("TLS_CERT_FILE", ""),
		KeyFile:           getEnv("TLS_KEY_FILE", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadFromFile loads configuration from an INI file
func LoadFromFile(filename string) (*Config, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	cfg, err := ini.Load(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", absPath, err)
	}

	serverSection := cfg.Section("server")
	config := &Config{
		Host: serverSection.Key("hostname").MustString("127.0.0.1"),
		Port: serverSection.Key("port").MustInt(8090),
	}

	storageSection := cfg.Section("storage")
	config.StorageType = storageSection.Key("type").MustString("json")
	config.StoragePath = storageSection.Key("path").MustString("./data/storage.json")

	uploadsSection := cfg.Section("uploads")
	config.UploadDir = uploadsSection.Key("dir").MustString("./uploads")
	config.MaxUploadMB = uploadsSection.Key("max_mb").MustInt(10)

	sessionSection := cfg.Section("session")
	config.SessionTTLMinutes = sessionSection.Key("ttl_minutes").MustInt(720)

	dbSection := cfg.Section("database")
	config.DBHost = dbSection.Key("host").MustString("localhost")
	config.DBPort = dbSection.Key("port").MustInt(3306)
	config.DBUser = dbSection.Key("user").String()
	config.DBPassword = dbSection.Key("password").String()
	config.DBName = dbSection.Key("name").MustString("testplan")

	securitySection := cfg.Section("security")
	config.EnableTLS = securitySection.Key("enable_tls").MustBool(false)
	config.CertFile = securitySection.Key("cert_file").String()
	config.KeyFile = securitySection.Key("key_file").String()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.StorageType {
	case "memory", "json", "mysql", "dual":
	default:
		return fmt.Errorf("invalid storage type: %s", c.StorageType)
	}

	if c.MaxUploadMB < 1 {
		return fmt.Errorf("invalid max upload size: %d MB", c.MaxUploadMB)
	}

	if c.SessionTTLMinutes < 1 {
		return fmt.Errorf("invalid session TTL: %d minutes", c.SessionTTLMinutes)
	}

	if c.EnableTLS {
		if c.CertFile == "" {
			return fmt.Errorf("TLS enabled but TLS_CERT_FILE not set")
		}
		if c.KeyFile == "" {
			return fmt.Errorf("TLS enabled but TLS_KEY_FILE not set")
		}
	}

	return nil
}

// Address returns the server address in host:port format
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the MySQL Data Source Name connection string.
// clientFoundRows makes UPDATE report matched rows, which the storage
// layer relies on to distinguish "no such record" from "no change".
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&clientFoundRows=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
