package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"go.yaml.in/yaml/v4"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Carrier  CarrierConfig  `yaml:"carrier"`
	API      APIConfig      `yaml:"api"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD, overwrite"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	TrackingUpdatedTopicName string `yaml:"tracking_updated_topic_name"`
}

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

func (k KafkaConfig) Topic() string {
	if k.TrackingUpdatedTopicName == "" {
		return "tracking.updated"
	}
	return k.TrackingUpdatedTopicName
}

type RedisConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Prefix string `yaml:"prefix"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CarrierConfig описывает доступ к FedEx. Секреты можно переопределить через env.
type CarrierConfig struct {
	Key      string `yaml:"key" env:"FEDEX_KEY, overwrite"`
	Password string `yaml:"password" env:"FEDEX_PASSWORD, overwrite"`
	Account  string `yaml:"account" env:"FEDEX_ACCOUNT, overwrite"`
	Meter    string `yaml:"meter" env:"FEDEX_METER, overwrite"`
	TestMode bool   `yaml:"test_mode" env:"FEDEX_TEST_MODE, overwrite"`

	TestURL        string `yaml:"test_url"`
	LiveURL        string `yaml:"live_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	// Без ключей воркер и API работают через локальный эмулятор.
	UseEmulator bool `yaml:"use_emulator" env:"FEDEX_USE_EMULATOR, overwrite"`
}

func (c CarrierConfig) Credentials() carrier.Credentials {
	return carrier.Credentials{Key: c.Key, Password: c.Password, Account: c.Account, Meter: c.Meter}
}

// Configured reports whether all four credentials are present.
func (c CarrierConfig) Configured() bool {
	return c.Key != "" && c.Password != "" && c.Account != "" && c.Meter != ""
}

func (c CarrierConfig) Timeout() time.Duration {
	return Seconds(c.TimeoutSeconds, 10*time.Second)
}

type APIConfig struct {
	GRPCAddr           string `yaml:"grpc_addr"`
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	CurrentStatusTTLSeconds  int `yaml:"current_status_ttl_seconds"`
	RatesTTLSeconds          int `yaml:"rates_ttl_seconds"`
	TrackingLookupTTLSeconds int `yaml:"tracking_lookup_ttl_seconds"`
}

type WorkerConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	PollIntervalSeconds int   `yaml:"poll_interval_seconds"`
	BatchSize           int   `yaml:"batch_size"`
	Concurrency         int   `yaml:"concurrency"`
	LeaseSeconds        int   `yaml:"lease_seconds"`
	RateLimitPerMinute  int64 `yaml:"rate_limit_per_minute"`
	// carrier code -> requests per minute
	CarrierRateLimits map[string]int64 `yaml:"carrier_rate_limits"`

	// Расписание проверок (опционально). По умолчанию:
	// в пути 30..120 минут, у курьера 15 минут, требует внимания 90 минут,
	// backoff 5/15/30/60 минут.
	NextCheckInTransitMinSeconds   int   `yaml:"next_check_in_transit_min_seconds"`
	NextCheckInTransitMaxSeconds   int   `yaml:"next_check_in_transit_max_seconds"`
	NextCheckNearDeliverySeconds   int   `yaml:"next_check_near_delivery_seconds"`
	NextCheckNeedsAttentionSeconds int   `yaml:"next_check_needs_attention_seconds"`
	BackoffSeconds                 []int `yaml:"backoff_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if err := envconfig.Process(context.Background(), &config); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	return &config, nil
}

// Seconds converts a config value in seconds, falling back to def when unset.
func Seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
