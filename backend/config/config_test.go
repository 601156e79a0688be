package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: \"0123456789abcdef\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望 port=8080，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("期望 driver=postgres，实际=%s", cfg.Database.Driver)
	}
	if cfg.Booking.TxTimeout != 5*time.Second {
		t.Errorf("期望 tx_timeout=5s，实际=%s", cfg.Booking.TxTimeout)
	}
	if cfg.Booking.PublicRateWindow != 10*time.Minute {
		t.Errorf("期望 public_rate_window=10m，实际=%s", cfg.Booking.PublicRateWindow)
	}
	if !cfg.Notify.Enabled {
		t.Error("通知默认应开启")
	}
	if cfg.Mail.Enabled() || cfg.Telegram.Enabled() {
		t.Error("未配置时 mail/telegram 不应启用")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: \"0123456789abcdef\"\n")
	t.Setenv("TECHVISIT_SERVER_PORT", "9090")
	t.Setenv("TECHVISIT_DB_DRIVER", "sqlite")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望环境变量覆盖 port=9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("期望 driver=sqlite，实际=%s", cfg.Database.Driver)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "postgres"},
			Auth:     AuthConfig{JWTSecret: "0123456789abcdef"},
			Booking:  BookingConfig{TxTimeout: time.Second, PublicRateLimit: 5, PublicRateWindow: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"空密钥", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"短密钥", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"非法端口", func(c *Config) { c.Server.Port = 70000 }, true},
		{"未知驱动", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"事务超时为0", func(c *Config) { c.Booking.TxTimeout = 0 }, true},
		{"限流为0", func(c *Config) { c.Booking.PublicRateLimit = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("期望 wantErr=%v，实际 err=%v", tt.wantErr, err)
			}
		})
	}
}
