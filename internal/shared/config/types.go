package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	BaseURL string `mapstructure:"base_url"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsRelease reports whether the server runs in release (production) mode.
// Several verification toggles fail closed in this mode.
func (s *ServerConfig) IsRelease() bool {
	return s.Mode == "release" || s.Mode == "production"
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	if d.Driver == "sqlite" {
		return d.Database
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ProviderConfig configures the payment provider read client.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	AccessToken    string        `mapstructure:"access_token" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// WebhookConfig configures inbound notification handling.
type WebhookConfig struct {
	// Secret is the shared secret for the x-signature HMAC.
	Secret string `mapstructure:"secret"`
	// VerifySignature may be disabled for local testing; release mode
	// overrides it to true.
	VerifySignature bool          `mapstructure:"verify_signature"`
	HandlerTimeout  time.Duration `mapstructure:"handler_timeout"`
}

// SyncConfig configures the reconciliation fallback scheduler.
type SyncConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAge      time.Duration `mapstructure:"max_age"`
	BatchLimit  int           `mapstructure:"batch_limit"`
	ItemTimeout time.Duration `mapstructure:"item_timeout"`
}
