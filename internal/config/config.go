package config

import (
	"os"
	"strings"
)

type Config struct {
	HTTPAddr    string
	PostgresURL string
	RedisAddr   string

	KafkaBrokers []string

	GatewayBaseURL     string
	GatewayAccessToken string
	WebhookSecret      string

	BackendURL  string
	FrontendURL string

	EmailRelayURL string

	JWTSecret string

	PixKey       string
	MerchantName string
	MerchantCity string

	ServiceName    string
	ServiceVersion string
}

func Load() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		PostgresURL: getenv("POSTGRES_URL", ""),
		RedisAddr:   getenv("REDIS_ADDR", ""),

		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "")),

		GatewayBaseURL:     getenv("GATEWAY_BASE_URL", "https://api.mercadopago.com"),
		GatewayAccessToken: getenv("GATEWAY_ACCESS_TOKEN", ""),
		WebhookSecret:      getenv("GATEWAY_WEBHOOK_SECRET", ""),

		BackendURL:  getenv("BACKEND_URL", "http://localhost:8080"),
		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),

		EmailRelayURL: getenv("EMAIL_RELAY_URL", ""),

		JWTSecret: getenv("JWT_SECRET", ""),

		PixKey:       getenv("PIX_KEY", ""),
		MerchantName: getenv("MERCHANT_NAME", ""),
		MerchantCity: getenv("MERCHANT_CITY", ""),

		ServiceName:    getenv("SERVICE_NAME", "storefront-api"),
		ServiceVersion: getenv("SERVICE_VERSION", "0.1.0"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
