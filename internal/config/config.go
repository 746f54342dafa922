// Package config loads process settings from the environment.
package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ServiceName    = "order-service"
	ServiceVersion = "0.1.0"
)

const (
	LogsPath      = "/otlp/v1/logs"
	TracesPath    = "/otlp/v1/traces"
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048
)

// Broker selects the outbox relay transport.
type Broker string

const (
	BrokerKafka     Broker = "kafka"
	BrokerWatermill Broker = "watermill"
	BrokerNone      Broker = "none"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	DatabaseDriver string
	DatabaseURL    string
	Isolation      sql.IsolationLevel
	MaxOpenConns   int

	Broker             Broker
	KafkaBrokers       []string
	KafkaClientID      string
	TopicPrefix        string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	OtelEndpoint   string
	OtelAuthHeader string
	LogLevel       string

	Currency               string
	LowStockThreshold      int
	HomeCountry            string
	ShippingBaseFee        decimal.Decimal
	ShippingPerKg          decimal.Decimal
	InternationalSurcharge decimal.Decimal
	TaxRateIndividual      decimal.Decimal
	TaxRateBusiness        decimal.Decimal
	ExpensiveThreshold     decimal.Decimal

	SeedData bool
}

// Load reads the environment. Unset keys fall back to defaults suitable for a local
// SQLite run without a broker.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		HTTPAddr:        r.str("HTTP_ADDR", ":8080"),
		ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DatabaseDriver: strings.ToLower(r.str("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:    r.str("DATABASE_URL", "orders.db"),
		Isolation:      r.isolation("DB_ISOLATION", sql.LevelReadCommitted),
		MaxOpenConns:   r.integer("DB_MAX_OPEN_CONNS", 10),

		Broker:             Broker(strings.ToLower(r.str("BROKER", string(BrokerNone)))),
		KafkaBrokers:       r.list("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaClientID:      r.str("KAFKA_CLIENT_ID", ServiceName),
		TopicPrefix:        r.str("TOPIC_PREFIX", ""),
		OutboxPollInterval: r.duration("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:    r.integer("OUTBOX_BATCH_SIZE", 100),

		OtelEndpoint:   r.str("OTEL_ENDPOINT", ""),
		OtelAuthHeader: r.str("OTEL_AUTH_HEADER", ""),
		LogLevel:       r.str("LOG_LEVEL", "info"),

		Currency:               strings.ToUpper(r.str("CURRENCY", "USD")),
		LowStockThreshold:      r.integer("LOW_STOCK_THRESHOLD", 10),
		HomeCountry:            strings.ToUpper(r.str("HOME_COUNTRY", "")),
		ShippingBaseFee:        r.decimal("SHIPPING_BASE_FEE", decimal.NewFromInt(5)),
		ShippingPerKg:          r.decimal("SHIPPING_PER_KG", decimal.NewFromInt(1)),
		InternationalSurcharge: r.decimal("INTERNATIONAL_SURCHARGE", decimal.Zero),
		TaxRateIndividual:      r.decimal("TAX_RATE_INDIVIDUAL", decimal.NewFromInt(9)),
		TaxRateBusiness:        r.decimal("TAX_RATE_BUSINESS", decimal.NewFromInt(10)),
		ExpensiveThreshold:     r.decimal("EXPENSIVE_PRODUCT_THRESHOLD", decimal.NewFromInt(1000)),

		SeedData: r.boolean("SEED_DATA", true),
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	switch c.Broker {
	case BrokerKafka, BrokerWatermill:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, fmt.Errorf("KAFKA_BROKERS is required when BROKER=%s", c.Broker))
		}
	case BrokerNone:
	default:
		errs = append(errs, fmt.Errorf("BROKER must be kafka, watermill or none, got %q", c.Broker))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive"))
	}
	if c.OutboxPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive"))
	}
	if c.MaxOpenConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_OPEN_CONNS must be positive"))
	}
	if c.LowStockThreshold < 0 {
		errs = append(errs, fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("CURRENCY must be a three letter code, got %q", c.Currency))
	}
	for name, rate := range map[string]decimal.Decimal{
		"SHIPPING_BASE_FEE":       c.ShippingBaseFee,
		"SHIPPING_PER_KG":         c.ShippingPerKg,
		"INTERNATIONAL_SURCHARGE": c.InternationalSurcharge,
		"TAX_RATE_INDIVIDUAL":     c.TaxRateIndividual,
		"TAX_RATE_BUSINESS":       c.TaxRateBusiness,
		"EXPENSIVE_PRODUCT_THRESHOLD": c.ExpensiveThreshold,
	} {
		if rate.IsNegative() {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// reader collects the first parse error so Load can report it after reading every key.
type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) str(key, fallback string) string {
	if val := strings.TrimSpace(r.getenv(key)); val != "" {
		return val
	}
	return fallback
}

func (r *reader) fail(key, val string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
}

func (r *reader) integer(key string, fallback int) int {
	val := r.str(key, "")
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return n
}

func (r *reader) boolean(key string, fallback bool) bool {
	val := r.str(key, "")
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return b
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	val := r.str(key, "")
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return d
}

func (r *reader) decimal(key string, fallback decimal.Decimal) decimal.Decimal {
	val := r.str(key, "")
	if val == "" {
		return fallback
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return d
}

func (r *reader) list(key string, fallback []string) []string {
	val := r.str(key, "")
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) isolation(key string, fallback sql.IsolationLevel) sql.IsolationLevel {
	val := r.str(key, "")
	if val == "" {
		return fallback
	}
	switch strings.ToLower(strings.ReplaceAll(val, "_", " ")) {
	case "default":
		return sql.LevelDefault
	case "read committed":
		return sql.LevelReadCommitted
	case "repeatable read":
		return sql.LevelRepeatableRead
	case "serializable":
		return sql.LevelSerializable
	default:
		r.fail(key, val, errors.New("expected read_committed, repeatable_read or serializable"))
		return fallback
	}
}
