package db

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"biblio-backend/internal/library/rules"
)

const DefaultConfigPath = "config/config.yaml"

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

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Server      ServerConfig   `yaml:"server"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
	Auth        AuthConfig     `yaml:"auth"`
	Rules       rules.Rules    `yaml:"rules"`
}

// TLSEnabled: 証明書が両方指定されているときだけ HTTPS で起動する
func (c *Config) TLSEnabled() bool {
	return c.Certificate.Cert != "" && c.Certificate.Key != ""
}

// LoadConfig は YAML を読み、.env と環境変数で秘密情報を上書きする。
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(buf)
	if err != nil {
		return nil, err
	}

	// .env は任意。無ければそのまま
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ParseConfig(buf []byte) (*Config, error) {
	// rules は既定値の上に YAML を重ねる
	cfg := Config{Rules: rules.Default()}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 12 * time.Hour
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BIBLIO_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("BIBLIO_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("BIBLIO_DB_HOST"); v != "" {
		c.DB.Host = v
	}
	if v := os.Getenv("BIBLIO_DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BIBLIO_DB_PORT: %w", err)
		}
		c.DB.Port = p
	}
	if v := os.Getenv("BIBLIO_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Mode != "dev" && c.Mode != "release" {
		return fmt.Errorf("mode must be dev or release, got %q", c.Mode)
	}
	if c.DB.Host == "" || c.DB.DBName == "" {
		return fmt.Errorf("database.host and database.dbname are required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	return c.Rules.Validate()
}
