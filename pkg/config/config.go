package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port      string          `mapstructure:"port"`
	JWTSecret string          `mapstructure:"jwt_secret"`
	Storage   string          `mapstructure:"storage"` // memory | mongo
	Messaging MessagingConfig `mapstructure:"messaging"`
	Usage     UsageConfig     `mapstructure:"usage"`

	MongoSQL       DatabaseConfig `mapstructure:"mongo"`
	PostgreSQL     DatabaseConfig `mapstructure:"pg"`
	Redis          RedisConfig    `mapstructure:"redis"`
	Kafka          KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ       RabbitConfig   `mapstructure:"rabbitmq"`
	AccountService ServiceConfig  `mapstructure:"account"`
}

// Account definition account_service YAML structure
type Account struct {
	Port       string         `mapstructure:"port"`
	IP         string         `mapstructure:"ip"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
}

// MessagingConfig definition ephemeral message and quota policy
type MessagingConfig struct {
	EphemeralTTL  time.Duration `mapstructure:"ephemeral_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	QuotaLimit    int64         `mapstructure:"quota_limit"`
	QuotaPeriod   string        `mapstructure:"quota_period"` // calendar_month
	// EchoDelay > 0 makes the service deliver a canned counterpart reply, used by demo builds
	EchoDelay time.Duration `mapstructure:"echo_delay"`
}

// UsageConfig definition usage counter storage
type UsageConfig struct {
	Driver string `mapstructure:"driver"` // memory | sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

// ServiceConfig definition service port & name
type ServiceConfig struct {
	Port     string        `mapstructure:"service_port"`
	Name     string        `mapstructure:"service_name"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr    string `mapstructure:"addr"` // empty means sentinel settings from .env
	RedisDB int    `mapstructure:"redis_db"`
}

// KafkaConfig definition kafka consumer setting
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// RabbitConfig definition rabbitmq setting
type RabbitConfig struct {
	URL           string `mapstructure:"url"`
	Queue         string `mapstructure:"queue"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
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

// WithDefaults fill zero messaging values with the product defaults
func (m MessagingConfig) WithDefaults() MessagingConfig {
	if m.EphemeralTTL <= 0 {
		m.EphemeralTTL = 24 * time.Hour
	}
	if m.SweepInterval <= 0 {
		m.SweepInterval = time.Second
	}
	if m.QuotaLimit <= 0 {
		m.QuotaLimit = 100
	}
	if m.QuotaPeriod == "" {
		m.QuotaPeriod = "calendar_month"
	}
	return m
}
