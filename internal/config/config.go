package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultServerURL        = "ws://localhost:8000/ws"
	defaultHandshakeTimeout = 10 // 秒
	defaultRequestTimeout   = 10 // 秒
	defaultSendBuffer       = 256
	defaultNoticeBuffer     = 16
	defaultRedisAddr        = "localhost:6379"
	defaultRedisHistory     = 50
	defaultRedisTTL         = 120 // 分钟
	defaultLogLevel         = "info"
)

// Config 客户端配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Redis  RedisConfig  `yaml:"redis"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig 游戏服务器连接配置
type ServerConfig struct {
	URL              string `yaml:"url"`
	HandshakeTimeout int    `yaml:"handshake_timeout"` // 握手超时（秒）
}

// ClientConfig 会话核心配置
type ClientConfig struct {
	RequestTimeout int `yaml:"request_timeout"` // 创建/加入房间超时（秒）
	SendBuffer     int `yaml:"send_buffer"`     // 发送队列长度
	NoticeBuffer   int `yaml:"notice_buffer"`   // 通知队列长度
}

// RedisConfig 快照归档配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	History  int    `yaml:"history"` // 每个房间保留的快照数
	TTL      int    `yaml:"ttl"`     // 归档过期时间（分钟）
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

// HandshakeTimeoutDuration 返回握手超时时长
func (c *ServerConfig) HandshakeTimeoutDuration() time.Duration {
	return time.Duration(c.HandshakeTimeout) * time.Second
}

// RequestTimeoutDuration 返回关联请求超时时长
func (c *ClientConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// TTLDuration 返回归档过期时长
func (c *RedisConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Minute
}

// Load 加载配置文件，再应用环境变量覆盖
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// Default 返回默认配置（同样应用环境变量覆盖）
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.URL == "" {
		c.Server.URL = defaultServerURL
	}
	if c.Server.HandshakeTimeout == 0 {
		c.Server.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.Client.RequestTimeout == 0 {
		c.Client.RequestTimeout = defaultRequestTimeout
	}
	if c.Client.SendBuffer == 0 {
		c.Client.SendBuffer = defaultSendBuffer
	}
	if c.Client.NoticeBuffer == 0 {
		c.Client.NoticeBuffer = defaultNoticeBuffer
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	if c.Redis.History == 0 {
		c.Redis.History = defaultRedisHistory
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = defaultRedisTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}

// applyEnv 环境变量优先于配置文件
func (c *Config) applyEnv() {
	c.Server.URL = getEnv("FORSALE_SERVER_URL", c.Server.URL)
	c.Server.HandshakeTimeout = getEnvAsInt("FORSALE_HANDSHAKE_TIMEOUT", c.Server.HandshakeTimeout)
	c.Client.RequestTimeout = getEnvAsInt("FORSALE_REQUEST_TIMEOUT", c.Client.RequestTimeout)
	c.Redis.Enabled = getEnvAsBool("FORSALE_REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("FORSALE_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("FORSALE_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("FORSALE_REDIS_DB", c.Redis.DB)
	c.Log.Level = getEnv("FORSALE_LOG_LEVEL", c.Log.Level)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
