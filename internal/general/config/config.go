package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Services struct {
		OrderPollerPort         int
		NotificationGatewayPort int
	}
	JWT struct {
		SecretKey string `yaml:"secret_key"`
		DevTokens bool   // YAML key: "dev_tokens"; mounts POST /tokens on the gateway
	}
	Backend struct {
		Timeout  time.Duration // YAML key: "timeout_seconds"
		Language string
		Currency string
	}
	Poller struct {
		Namespace       string
		Prefetch        int
		RecurringEvery  time.Duration   // YAML key: "recurring_minutes"
		BurstDelays     []time.Duration // YAML key: "burst_seconds", comma separated
		RetryInitial    time.Duration   // YAML key: "retry_initial_seconds"
		RetryMax        time.Duration   // YAML key: "retry_max_seconds"
		RetryMaxAttempt int             // YAML key: "max_attempts"
	}
}

// DefaultBurstDelays are the extra polls requested right after the host starts.
var DefaultBurstDelays = []time.Duration{
	15 * time.Second,
	30 * time.Second,
	45 * time.Second,
	1 * time.Minute,
	2 * time.Minute,
	3 * time.Minute,
	5 * time.Minute,
	7 * time.Minute,
	10 * time.Minute,
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Services
	if cfg.Services.OrderPollerPort == 0 {
		cfg.Services.OrderPollerPort = 3010
	}
	if cfg.Services.NotificationGatewayPort == 0 {
		cfg.Services.NotificationGatewayPort = 3011
	}

	// Backend
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 10 * time.Second
	}
	if cfg.Backend.Language == "" {
		cfg.Backend.Language = "en"
	}
	if cfg.Backend.Currency == "" {
		cfg.Backend.Currency = "USD"
	}

	// Poller
	if cfg.Poller.Prefetch == 0 {
		cfg.Poller.Prefetch = 4
	}
	if cfg.Poller.RecurringEvery == 0 {
		cfg.Poller.RecurringEvery = 15 * time.Minute
	}
	if cfg.Poller.BurstDelays == nil {
		cfg.Poller.BurstDelays = append([]time.Duration(nil), DefaultBurstDelays...)
	}
	if cfg.Poller.RetryInitial == 0 {
		cfg.Poller.RetryInitial = 30 * time.Second
	}
	if cfg.Poller.RetryMax == 0 {
		cfg.Poller.RetryMax = 5 * time.Hour
	}
	if cfg.Poller.RetryMaxAttempt == 0 {
		cfg.Poller.RetryMaxAttempt = 10
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	checkPort := func(name string, port int) {
		if port <= 0 || port > 65535 {
			problems = append(problems, name+" must be in 1..65535")
		}
	}

	// DB
	checkPort("database.port", c.Database.Port)
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	// RabbitMQ
	checkPort("rabbitmq.port", c.RabbitMQ.Port)
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Services
	checkPort("services.order_poller", c.Services.OrderPollerPort)
	checkPort("services.notification_gateway", c.Services.NotificationGatewayPort)

	// Backend
	if c.Backend.Timeout < time.Second || c.Backend.Timeout > time.Minute {
		problems = append(problems, "backend.timeout_seconds must be in 1..60")
	}

	// Poller
	if c.Poller.Prefetch < 1 {
		problems = append(problems, "poller.prefetch must be >= 1")
	}
	if c.Poller.RecurringEvery < time.Minute {
		problems = append(problems, "poller.recurring_minutes must be >= 1")
	}
	for _, d := range c.Poller.BurstDelays {
		if d <= 0 {
			problems = append(problems, "poller.burst_seconds entries must be > 0")
			break
		}
	}
	if c.Poller.RetryInitial <= 0 || c.Poller.RetryMax < c.Poller.RetryInitial {
		problems = append(problems, "poller.retry_max_seconds must be >= retry_initial_seconds > 0")
	}
	if c.Poller.RetryMaxAttempt < 1 {
		problems = append(problems, "poller.max_attempts must be >= 1")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
