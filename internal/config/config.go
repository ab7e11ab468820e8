package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/onurbyrmv0/chat-relay/pkg/config"
	"github.com/onurbyrmv0/chat-relay/pkg/database"
	"github.com/onurbyrmv0/chat-relay/pkg/log"
	"github.com/onurbyrmv0/chat-relay/pkg/storage"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Database  database.Config
	History   HistoryConfig
	Admin     AdminConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Backup    BackupConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type HistoryConfig struct {
	Window        int           `mapstructure:"window"`
	FallbackDepth int           `mapstructure:"fallback_depth"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

type AdminConfig struct {
	Secret   string
	Nickname string
	Password string
}

type AuthConfig struct {
	AccessDuration  time.Duration `mapstructure:"access_duration"`
	RefreshDuration time.Duration `mapstructure:"refresh_duration"`
	Issuer          string
}

type StorageConfig struct {
	Driver string
	Local  storage.LocalConfig
	S3     storage.S3Config
}

type BackupConfig struct {
	Enabled  bool
	Schedule string
	Dir      string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("websocket.ping_interval", "45s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "chat-app")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("history.window", 50)
	v.SetDefault("history.fallback_depth", 100)
	v.SetDefault("history.retry_interval", "5s")
	v.SetDefault("admin.secret", "admin123")
	v.SetDefault("admin.nickname", "sakal")
	v.SetDefault("admin.password", "sakal")
	v.SetDefault("auth.access_duration", "24h")
	v.SetDefault("auth.refresh_duration", "168h")
	v.SetDefault("auth.issuer", "chat-relay")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./uploads")
	v.SetDefault("storage.local.url_prefix", "/uploads")
	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.schedule", "0 * * * *")
	v.SetDefault("backup.dir", "./backups")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "chat-relay")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASS")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("admin.secret", "ADMIN_SECRET")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 45*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.History.RetryInterval = parseDuration(v, "history.retry_interval", 5*time.Second)
	cfg.Auth.AccessDuration = parseDuration(v, "auth.access_duration", 24*time.Hour)
	cfg.Auth.RefreshDuration = parseDuration(v, "auth.refresh_duration", 168*time.Hour)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
