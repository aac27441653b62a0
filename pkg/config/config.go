package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FOODAPP_DATABASE_HOST.
const EnvPrefix = "FOODAPP"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	GRPC         GRPCConfig         `mapstructure:"grpc"`
	Etcd         EtcdConfig         `mapstructure:"etcd"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Database     DatabaseConfig     `mapstructure:"database"`
	MongoDB      MongoDBConfig      `mapstructure:"mongodb"`
	Log          LogConfig          `mapstructure:"log"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Mail         MailConfig         `mapstructure:"mail"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
}

type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type EtcdConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	OrderTTL time.Duration `mapstructure:"order_ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	Enabled                 bool   `mapstructure:"enabled"`
	URI                     string `mapstructure:"uri"`
	Database                string `mapstructure:"database"`
	Collection              string `mapstructure:"collection"`
	NotificationsCollection string `mapstructure:"notifications_collection"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type PaymentConfig struct {
	StripeSecretKey string        `mapstructure:"stripe_secret_key"`
	Currency        string        `mapstructure:"currency"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CallbackSecret  string        `mapstructure:"callback_secret"`
	LinkBase        string        `mapstructure:"link_base"`
}

type CatalogConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type MailConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type NotificationConfig struct {
	Channels     []string      `mapstructure:"channels"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
	FrontendURL  string        `mapstructure:"frontend_url"`
}

// Load reads configPath, applies .env files and FOODAPP_* environment
// overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "order-service")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("grpc.port", 50052)
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.order_ttl", 5*time.Minute)
	v.SetDefault("redis.lock_ttl", 10*time.Second)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("mongodb.collection", "audit_logs")
	v.SetDefault("mongodb.notifications_collection", "notifications")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.timeout", 10*time.Second)
	v.SetDefault("catalog.timeout", 2*time.Second)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.timeout", 10*time.Second)
	v.SetDefault("kafka.topic", "order-notifications")
	v.SetDefault("notification.channels", []string{"log"})
	v.SetDefault("notification.max_attempts", 5)
	v.SetDefault("notification.initial_delay", time.Second)
	v.SetDefault("notification.max_delay", time.Minute)
	v.SetDefault("notification.send_timeout", 15*time.Second)
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.HTTP.Port <= 0 {
		errs = append(errs, errors.New("http.port must be positive"))
	}
	if c.Payment.Timeout <= 0 {
		errs = append(errs, errors.New("payment.timeout must be positive"))
	}
	if c.Catalog.Timeout <= 0 {
		errs = append(errs, errors.New("catalog.timeout must be positive"))
	}
	if c.Notification.MaxAttempts < 1 {
		errs = append(errs, errors.New("notification.max_attempts must be at least 1"))
	}
	for _, ch := range c.Notification.Channels {
		switch ch {
		case "log":
		case "email":
			if c.Mail.Host == "" || c.Mail.From == "" {
				errs = append(errs, errors.New("email channel requires mail.host and mail.from"))
			}
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				errs = append(errs, errors.New("kafka channel requires kafka.brokers"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown notification channel %q", ch))
		}
	}
	return errors.Join(errs...)
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}
