package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port     string         `mapstructure:"port"`
	MongoSQL DatabaseConfig `mapstructure:"mongo"`
	Postgres DatabaseConfig `mapstructure:"pg"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Chat     ChatSetting    `mapstructure:"chat"`
}

// ChatSetting tunes the realtime session behaviour.
type ChatSetting struct {
	DeliveryDelayMs int `mapstructure:"delivery_delay_ms"`
	PingIntervalSec int `mapstructure:"ping_interval_sec"`
	PresenceTTLSec  int `mapstructure:"presence_ttl_sec"`
	SendBuffer      int `mapstructure:"send_buffer"`
	MaxUploadMB     int `mapstructure:"max_upload_mb"`
	HistoryPageSize int `mapstructure:"history_page_size"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int    `mapstructure:"redis_db"`
	Addr    string `mapstructure:"addr"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition attachment bucket setting
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicURL     string `mapstructure:"public_url"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// RetryDelay retry_interval in seconds as a duration
func (d DatabaseConfig) RetryDelay() time.Duration {
	return time.Duration(d.RetryInterval) * time.Second
}

// RetryDelay retry_interval in seconds as a duration
func (m MinIOConfig) RetryDelay() time.Duration {
	return time.Duration(m.RetryInterval) * time.Second
}

// KafkaConfig definition chat event stream setting. Empty brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// WithDefaults fills zero values with the service defaults.
func (s ChatSetting) WithDefaults() ChatSetting {
	if s.DeliveryDelayMs <= 0 {
		s.DeliveryDelayMs = 1000
	}
	if s.PingIntervalSec <= 0 {
		s.PingIntervalSec = 600
	}
	if s.PresenceTTLSec <= 0 {
		s.PresenceTTLSec = 24 * 60 * 60
	}
	if s.SendBuffer <= 0 {
		s.SendBuffer = 64
	}
	if s.MaxUploadMB <= 0 {
		s.MaxUploadMB = 10
	}
	if s.HistoryPageSize <= 0 {
		s.HistoryPageSize = 50
	}
	return s
}
