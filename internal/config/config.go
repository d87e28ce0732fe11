package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Env       string          `mapstructure:"env"` // 环境: development, production
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Store     StoreConfig     `mapstructure:"store"`
	Week      WeekConfig      `mapstructure:"week"`
	Review    ReviewConfig    `mapstructure:"review"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Events    EventsConfig    `mapstructure:"events"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Client    ClientConfig    `mapstructure:"client"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite, postgres
	Path            string `mapstructure:"path"`   // sqlite 文件路径
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 秒
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 秒
}

// StoreConfig 任务存储配置
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // memory, database
}

// WeekConfig 提交周期配置,支持热更新
type WeekConfig struct {
	MaxWeeksAhead    int           `mapstructure:"max_weeks_ahead"`
	SubmissionCutoff time.Duration `mapstructure:"submission_cutoff"` // 周一零点之后仍允许提交的时长
	Timezone         string        `mapstructure:"timezone"`
}

// ReviewConfig 审批配置
type ReviewConfig struct {
	RequireRejectComment bool `mapstructure:"require_reject_comment"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	Issuer      string        `mapstructure:"issuer"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	RememberTTL time.Duration `mapstructure:"remember_ttl"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// EventsConfig 实时事件配置
type EventsConfig struct {
	Retention time.Duration `mapstructure:"retention"`
}

// SeedConfig 初始数据配置
type SeedConfig struct {
	File string `mapstructure:"file"`
}

// ClientConfig 命令行客户端配置
type ClientConfig struct {
	ServerURL      string `mapstructure:"server_url"`
	KeyringService string `mapstructure:"keyring_service"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error
	Format string `mapstructure:"format"` // 日志格式: json, text
	Output string `mapstructure:"output"` // 输出位置: stdout, stderr
}

// Load 加载配置,支持配置文件和环境变量
func Load(configPath string) (*Config, error) {
	v := newViper()

	// 如果提供了配置文件路径,从文件加载
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		// 尝试从默认位置加载
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.taskflow")
		// 忽略配置文件不存在的错误,使用默认值
		_ = v.ReadInConfig()
	}

	return unmarshal(v)
}

// newViper 创建带默认值和环境变量绑定的 viper 实例
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	switch c.Store.Backend {
	case "memory", "database":
	default:
		return fmt.Errorf("unsupported store backend: %q", c.Store.Backend)
	}
	if c.Week.MaxWeeksAhead < 0 {
		return errors.New("week.max_weeks_ahead must not be negative")
	}
	if c.Week.SubmissionCutoff < 0 {
		return errors.New("week.submission_cutoff must not be negative")
	}
	if _, err := c.Week.Location(); err != nil {
		return err
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.RememberTTL <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	if IsProduction(c) && c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("auth.jwt_secret must be set in production")
	}
	return nil
}

// Location 返回周计算使用的时区
func (w WeekConfig) Location() (*time.Location, error) {
	if w.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid week.timezone %q: %w", w.Timezone, err)
	}
	return loc, nil
}

// IsProduction 判断是否为生产环境
func IsProduction(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.Env == "production"
}

// Default 返回默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

const defaultJWTSecret = "taskflow-dev-secret"

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 环境变量
	env := v.GetString("env")
	if env == "" {
		env = os.Getenv("APP_ENV")
		if env == "" {
			env = "development"
		}
	}
	v.SetDefault("env", env)

	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "taskflow.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "taskflow")
	v.SetDefault("database.sslmode", "disable")

	// 数据库连接池配置（根据环境设置默认值）
	if env == "production" {
		v.SetDefault("database.max_idle_conns", 20)
		v.SetDefault("database.max_open_conns", 200)
		v.SetDefault("database.conn_max_lifetime", 3600) // 1 小时
		v.SetDefault("database.conn_max_idle_time", 300) // 5 分钟
	} else {
		v.SetDefault("database.max_idle_conns", 10)
		v.SetDefault("database.max_open_conns", 100)
		v.SetDefault("database.conn_max_lifetime", 3600) // 1 小时
		v.SetDefault("database.conn_max_idle_time", 600) // 10 分钟
	}

	// 任务存储: 内存存储与会话生命周期一致
	v.SetDefault("store.backend", "memory")

	// 提交周期
	v.SetDefault("week.max_weeks_ahead", 8)
	v.SetDefault("week.submission_cutoff", "0s")
	v.SetDefault("week.timezone", "UTC")

	v.SetDefault("review.require_reject_comment", true)

	// 认证
	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.issuer", "taskflow")
	v.SetDefault("auth.token_ttl", "168h")    // 7 天
	v.SetDefault("auth.remember_ttl", "720h") // 30 天
	v.SetDefault("auth.bcrypt_cost", 10)

	// CORS 默认配置
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Request-ID", "Accept-Language"})
	v.SetDefault("cors.max_age", 86400)

	// 限流
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)

	// 链路追踪
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "taskflow")
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("events.retention", "168h")
	v.SetDefault("seed.file", "")

	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.keyring_service", "taskflow")

	// 日志配置（根据环境设置默认值）
	if env == "production" {
		v.SetDefault("log.level", "warn")
		v.SetDefault("log.format", "json")
	} else {
		v.SetDefault("log.level", "debug")
		v.SetDefault("log.format", "text")
	}
	v.SetDefault("log.output", "stdout")
}
