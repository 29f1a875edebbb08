// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	GRPCHealthAddress       string `yaml:"grpc_health_address" env-default:":50051"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Stripe                  `yaml:"stripe"`
	Recaptcha               `yaml:"recaptcha"`
	Cleanup                 `yaml:"cleanup"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP      string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP      time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ContactRateLimit float64       `yaml:"contact_rate_limit" env-default:"1"`
	ContactRateBurst int           `yaml:"contact_rate_burst" env-default:"3"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ структура для подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"10"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
	ConsumerPrefetch   int           `yaml:"consumer_prefetch" env-default:"10"`
}

// SMTP структура для настройки отправки писем
type SMTP struct {
	SMTPHost     string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser     string `yaml:"user" env:"SMTP_USER"`
	SMTPPassword string `yaml:"password" env:"SMTP_PASSWORD"`
}

// Stripe структура для проверки вебхуков платёжного провайдера
type Stripe struct {
	StripeWebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	MaxWebhookBodyBytes int64  `yaml:"max_webhook_body_bytes" env-default:"65536"`
}

// Recaptcha структура для проверки токенов reCAPTCHA при регистрации
type Recaptcha struct {
	RecaptchaSecret  string        `yaml:"secret" env:"RECAPTCHA_SECRET"`
	RecaptchaURL     string        `yaml:"verify_url" env-default:"https://www.google.com/recaptcha/api/siteverify"`
	RecaptchaTimeout time.Duration `yaml:"timeout" env-default:"5s"`
	MinScore         float64       `yaml:"min_score" env-default:"0.5"`
}

// Cleanup структура для настройки ежедневной очистки неоплаченных регистраций
type Cleanup struct {
	RunAt      string        `yaml:"run_at" env-default:"03:00"`
	PendingTTL time.Duration `yaml:"pending_ttl" env-default:"48h"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из config/config.go
func MustLoad() *Config {
	// .env необязателен, переменные окружения могут быть заданы снаружи
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if _, err := cfg.CleanupClock(); err != nil {
		log.Fatalf("invalid cleanup.run_at: %s", err)
	}
	return &cfg
}

// CleanupClock разбирает cleanup.run_at в формате HH:MM (UTC).
func (c *Config) CleanupClock() (time.Duration, error) {
	t, err := time.Parse("15:04", c.RunAt)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", c.RunAt, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  MaxRetries: %d\n"+
			"  RetryDelay: %s\n"+
			"Cleanup:\n"+
			"  RunAt: %s\n"+
			"  PendingTTL: %s\n",
		c.Env,
		redact(c.StorageConnectionString),
		c.AddressRedis,
		c.User,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RabbitMQMaxRetries,
		c.RabbitMQRetryDelay,
		c.RunAt,
		c.PendingTTL,
	)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
