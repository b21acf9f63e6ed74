package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	awspkg "github.com/yashrajoria/chat-billing/pkg/aws"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
)

// Mode selects which Stripe account (secret key, price table) is active.
type Mode string

const (
	ModeLive Mode = "live"
	ModeTest Mode = "test"
)

// Document store backends.
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
	StoreMongo    = "mongo"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

const (
	stripeSecretName = "billing/STRIPE"
	dbSecretName     = "billing/DB_CREDENTIALS"
)

// Provider exposes the Stripe settings the verifier, reconciler and checkout
// flow read at call time.
type Provider interface {
	Mode() Mode
	WebhookSecrets() []string
	PriceTable(mode Mode) map[models.Plan]string
	PriceForPlan(plan models.Plan) string
	PlanForPrice(priceID string) (models.Plan, bool)
}

// StripeAccount is one Stripe account's credentials and prices.
type StripeAccount struct {
	SecretKey     string
	WebhookSecret string
	Prices        map[models.Plan]string
}

// Config holds all configuration for the billing service.
type Config struct {
	Port    string
	AppEnv  string
	Service string

	StripeMode       Mode
	Live             StripeAccount
	Test             StripeAccount
	WebhookTolerance time.Duration

	CheckoutSuccessURL string
	CheckoutCancelURL  string
	PortalReturnURL    string

	DocumentStore    string
	DDBTablePrefix   string
	MongoURL         string
	MongoDB          string
	RedisURL         string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	PlanSNSTopicARN      string
	WebhookArchiveBucket string
	JWTSecret            string
	RateLimitPerMinute   int
}

// LoadConfig reads configuration from .env and environment variables with
// optional Secrets Manager override.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		ctx := context.Background()
		if awsCfg, err := awspkg.LoadAWSConfig(ctx); err == nil {
			if err := cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(awsCfg)); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		Port:    getEnv("PORT", "8091"),
		AppEnv:  getEnv("APP_ENV", "development"),
		Service: "billing-service",

		StripeMode: Mode(strings.ToLower(getEnv("STRIPE_MODE", string(ModeTest)))),
		Live: StripeAccount{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Prices:        pricesFromEnv(""),
		},
		Test: StripeAccount{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY_TEST"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET_TEST"),
			Prices:        pricesFromEnv("_TEST"),
		},
		WebhookTolerance: time.Duration(getEnvInt("STRIPE_WEBHOOK_TOLERANCE", 0)) * time.Second,

		CheckoutSuccessURL: getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CheckoutCancelURL:  getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/billing/cancel"),
		PortalReturnURL:    getEnv("PORTAL_RETURN_URL", "http://localhost:3000/settings"),

		DocumentStore:    strings.ToLower(getEnv("DOCUMENT_STORE", StoreMemory)),
		DDBTablePrefix:   os.Getenv("DDB_TABLE_PREFIX"),
		MongoURL:         os.Getenv("MONGO_DB_URL"),
		MongoDB:          getEnv("MONGO_DB_NAME", "chat"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		PlanSNSTopicARN:      os.Getenv("PLAN_SNS_TOPIC_ARN"),
		WebhookArchiveBucket: os.Getenv("WEBHOOK_ARCHIVE_BUCKET"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}
}

func pricesFromEnv(suffix string) map[models.Plan]string {
	prices := map[models.Plan]string{}
	for plan, key := range map[models.Plan]string{
		models.PlanPro:        "STRIPE_PRICE_PRO",
		models.PlanTeam:       "STRIPE_PRICE_TEAM",
		models.PlanEnterprise: "STRIPE_PRICE_ENTERPRISE",
	} {
		if v := strings.TrimSpace(os.Getenv(key + suffix)); v != "" {
			prices[plan] = v
		}
	}
	return prices
}

// ApplySecrets overrides Stripe and database credentials with values from
// Secrets Manager. Missing secrets leave the environment values in place.
func (c *Config) ApplySecrets(ctx context.Context, sm awspkg.SecretGetter) error {
	if m, err := awspkg.GetSecretJSON(ctx, sm, stripeSecretName); err == nil {
		override(&c.Live.SecretKey, m["STRIPE_SECRET_KEY"])
		override(&c.Live.WebhookSecret, m["STRIPE_WEBHOOK_SECRET"])
		override(&c.Test.SecretKey, m["STRIPE_SECRET_KEY_TEST"])
		override(&c.Test.WebhookSecret, m["STRIPE_WEBHOOK_SECRET_TEST"])
	} else if errors.Is(err, awspkg.ErrMalformedSecret) {
		return err
	}

	if m, err := awspkg.GetSecretJSON(ctx, sm, dbSecretName); err == nil {
		override(&c.PostgresUser, m["POSTGRES_USER"])
		override(&c.PostgresPassword, m["POSTGRES_PASSWORD"])
		override(&c.PostgresDB, m["POSTGRES_DB"])
		override(&c.PostgresHost, m["POSTGRES_HOST"])
		override(&c.PostgresPort, m["POSTGRES_PORT"])
		override(&c.MongoURL, m["MONGO_DB_URL"])
		override(&c.RedisURL, m["REDIS_URL"])
	}
	return nil
}

func override(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// Validate checks that the selected backends have what they need. Missing
// webhook secrets are not fatal; the webhook answers webhook_secret_missing.
func (c *Config) Validate() error {
	if c.StripeMode != ModeLive && c.StripeMode != ModeTest {
		return fmt.Errorf("STRIPE_MODE must be %q or %q, got %q", ModeLive, ModeTest, c.StripeMode)
	}
	switch c.DocumentStore {
	case StoreMemory, StoreDynamoDB:
	case StoreMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_DB_URL is required for DOCUMENT_STORE=mongo")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for DOCUMENT_STORE=redis")
		}
	case StorePostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
			return fmt.Errorf("database config incomplete")
		}
	default:
		return fmt.Errorf("unknown DOCUMENT_STORE %q", c.DocumentStore)
	}
	return nil
}

func (c *Config) Mode() Mode { return c.StripeMode }

// WebhookSecrets returns every configured signing secret, live first.
// Deliveries from either account verify regardless of Mode.
func (c *Config) WebhookSecrets() []string {
	var out []string
	for _, s := range []string{c.Live.WebhookSecret, c.Test.WebhookSecret} {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) account(mode Mode) *StripeAccount {
	if mode == ModeLive {
		return &c.Live
	}
	return &c.Test
}

// PriceTable returns a copy of the plan → price id table for mode.
func (c *Config) PriceTable(mode Mode) map[models.Plan]string {
	out := make(map[models.Plan]string, 3)
	for k, v := range c.account(mode).Prices {
		out[k] = v
	}
	return out
}

// PriceForPlan returns the active mode's price id for plan, or "".
func (c *Config) PriceForPlan(plan models.Plan) string {
	return c.account(c.StripeMode).Prices[plan]
}

// PlanForPrice maps a price id back to its plan. The active mode's table is
// consulted first, then the other one.
func (c *Config) PlanForPrice(priceID string) (models.Plan, bool) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return "", false
	}
	other := ModeLive
	if c.StripeMode == ModeLive {
		other = ModeTest
	}
	for _, mode := range []Mode{c.StripeMode, other} {
		for plan, id := range c.account(mode).Prices {
			if id == priceID {
				return plan, true
			}
		}
	}
	return "", false
}

// StripeSecretKey returns the API key for the active mode.
func (c *Config) StripeSecretKey() string {
	return c.account(c.StripeMode).SecretKey
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
