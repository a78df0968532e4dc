package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port"`
	MetricsPort    int    `mapstructure:"metrics_port"`
	RequestTimeout int    `mapstructure:"request_timeout_seconds"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	TopicCreated string   `mapstructure:"topic_message_created"`
	GroupID      string   `mapstructure:"group_id"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type S3Config struct {
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	PublicRead bool   `mapstructure:"public_read"`
	URLTTLMins int    `mapstructure:"url_ttl_minutes"`
}

type AliasConfig struct {
	Path string `mapstructure:"path"`
}

type RateLimitConfig struct {
	Limit         int `mapstructure:"limit"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	NATS      NATSConfig      `mapstructure:"nats"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	S3        S3Config        `mapstructure:"s3"`
	Alias     AliasConfig     `mapstructure:"alias"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Derived
	RequestTimeout  time.Duration
	RateLimitWindow time.Duration
	S3URLTTL        time.Duration
}

// Load reads the config file at path with APP_-prefixed env overrides.
// A .env file next to the binary is honored for local development.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.MetricsPort == 0 {
		cfg.App.MetricsPort = 9100
	}
	if cfg.App.RequestTimeout == 0 {
		cfg.App.RequestTimeout = 15
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "calmsync"
	}
	if cfg.Mongo.Collection == "" {
		cfg.Mongo.Collection = "messages"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "calmsync"
	}
	if cfg.Kafka.TopicCreated == "" {
		cfg.Kafka.TopicCreated = "message.created"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "calmsync-notifier"
	}
	if cfg.RateLimit.Limit == 0 {
		cfg.RateLimit.Limit = 60
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.S3.URLTTLMins == 0 {
		cfg.S3.URLTTLMins = 15
	}
	if cfg.Alias.Path == "" {
		cfg.Alias.Path = "aliases.db"
	}

	cfg.RequestTimeout = time.Duration(cfg.App.RequestTimeout) * time.Second
	cfg.RateLimitWindow = time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	cfg.S3URLTTL = time.Duration(cfg.S3.URLTTLMins) * time.Minute
	return &cfg, nil
}
