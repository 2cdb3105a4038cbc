package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SignaturePolicyStrict     = "strict"
	SignaturePolicyPermissive = "permissive"

	productionEnv = "production"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Epayco            EpaycoConfig
	MercadoPago       MercadoPagoConfig
	Backend           BackendConfig
	Outbox            OutboxConfig
	RabbitMQ          RabbitMQConfig
}

type AppConfig struct {
	ServiceName  string
	Environment  string
	IsProduction bool
	APIKey       string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c MySQLConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type EpaycoConfig struct {
	PrivateKey      string
	SignaturePolicy string
}

type MercadoPagoConfig struct {
	AccessToken     string
	WebhookSecret   string
	APIBaseURL      string
	SignaturePolicy string
	HTTPTimeout     time.Duration
}

type BackendConfig struct {
	WebhookURL  string
	GraphQLURL  string
	APIToken    string
	HTTPTimeout time.Duration
}

type OutboxConfig struct {
	MaxAttempts      int32
	RetryInterval    time.Duration
	BatchSize        int32
	DispatchInterval time.Duration
}

type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RetryCount int
	RetryDelay time.Duration
}

func (c RabbitMQConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	environment := strings.ToLower(getEnv("APP_ENV", getEnv("NODE_ENV", "development")))
	isProduction := environment == productionEnv

	epaycoPolicy, err := signaturePolicy("EPAYCO_SIGNATURE_POLICY", SignaturePolicyPermissive)
	if err != nil {
		return nil, err
	}

	defaultMPPolicy := SignaturePolicyPermissive
	if isProduction {
		defaultMPPolicy = SignaturePolicyStrict
	}
	mercadoPagoPolicy, err := signaturePolicy("MERCADOPAGO_SIGNATURE_POLICY", defaultMPPolicy)
	if err != nil {
		return nil, err
	}

	graphQLURL := getEnv("NEXT_PUBLIC_GRAPHQL_URL", "")

	return &Config{
		App: AppConfig{
			ServiceName:  getEnv("APP_SERVICE_NAME", "reconciler-service"),
			Environment:  environment,
			IsProduction: isProduction,
			APIKey:       getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             getEnv("MYSQL_DSN", ""),
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", ""),
		},
		Epayco: EpaycoConfig{
			PrivateKey:      getEnv("EPAYCO_PRIVATE_KEY", ""),
			SignaturePolicy: epaycoPolicy,
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken:     getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
			WebhookSecret:   getEnv("MERCADOPAGO_WEBHOOK_SECRET", ""),
			APIBaseURL:      getEnv("MERCADOPAGO_API_BASE_URL", "https://api.mercadopago.com"),
			SignaturePolicy: mercadoPagoPolicy,
			HTTPTimeout:     getSecondsEnv("MERCADOPAGO_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Backend: BackendConfig{
			WebhookURL:  getEnv("BACKEND_WEBHOOK_URL", deriveBackendWebhookURL(graphQLURL)),
			GraphQLURL:  graphQLURL,
			APIToken:    getEnv("BACKEND_API_TOKEN", ""),
			HTTPTimeout: getSecondsEnv("BACKEND_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Outbox: OutboxConfig{
			MaxAttempts:      int32(getIntEnv("OUTBOX_MAX_ATTEMPTS", 10)),
			RetryInterval:    getMinutesEnv("OUTBOX_RETRY_INTERVAL_MINUTES", 5*time.Minute),
			BatchSize:        int32(getIntEnv("OUTBOX_BATCH_SIZE", 100)),
			DispatchInterval: getMinutesEnv("OUTBOX_DISPATCH_INTERVAL_MINUTES", time.Minute),
		},
		RabbitMQ: RabbitMQConfig{
			URL:        getEnv("RABBITMQ_URL", ""),
			Exchange:   getEnv("RABBITMQ_EXCHANGE", "payments.events"),
			RetryCount: getIntEnv("RABBITMQ_RETRY_COUNT", 3),
			RetryDelay: getSecondsEnv("RABBITMQ_RETRY_DELAY_SECONDS", 5*time.Second),
		},
	}, nil
}

// deriveBackendWebhookURL maps https://api.example.com/graphql to
// https://api.example.com/webhooks/epayco.
func deriveBackendWebhookURL(graphQLURL string) string {
	base := strings.TrimRight(strings.TrimSpace(graphQLURL), "/")
	if base == "" {
		return ""
	}
	base = strings.TrimSuffix(base, "/graphql")
	return base + "/webhooks/epayco"
}

func signaturePolicy(key, defaultValue string) (string, error) {
	value := strings.ToLower(getEnv(key, defaultValue))
	switch value {
	case SignaturePolicyStrict, SignaturePolicyPermissive:
		return value, nil
	default:
		return "", fmt.Errorf("%s must be %q or %q, got %q", key, SignaturePolicyStrict, SignaturePolicyPermissive, value)
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
