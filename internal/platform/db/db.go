package db

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const (
	driverName = "mysql"

	defaultTokenTTLHours = 24
	piiKeyLen            = 32
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// SecurityConfig holds the process-wide secrets. Loaded once at startup,
// validated here, never logged.
type SecurityConfig struct {
	PIIKeyHex     string `yaml:"pii_key_hex"`
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Timezone    string         `yaml:"timezone"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
	Security    SecurityConfig `yaml:"security"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Security.TokenTTLHours <= 0 {
		cfg.Security.TokenTTLHours = defaultTokenTTLHours
	}
	// Bad key material is a startup error, never a runtime one.
	if _, err := cfg.Security.PIIKey(); err != nil {
		return nil, err
	}
	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("security.jwt_secret is required")
	}
	return &cfg, nil
}

// PIIKey decodes the field-encryption key. Must be exactly 32 bytes (AES-256).
func (s SecurityConfig) PIIKey() ([]byte, error) {
	key, err := hex.DecodeString(s.PIIKeyHex)
	if err != nil {
		return nil, fmt.Errorf("security.pii_key_hex is not valid hex: %w", err)
	}
	if len(key) != piiKeyLen {
		return nil, fmt.Errorf("security.pii_key_hex must decode to %d bytes, got %d", piiKeyLen, len(key))
	}
	return key, nil
}

func (s SecurityConfig) TokenTTL() time.Duration {
	return time.Duration(s.TokenTTLHours) * time.Hour
}

// Location resolves the reference timezone used for day bucketing.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	// Keep the pool total below MySQL's max_connections.
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
