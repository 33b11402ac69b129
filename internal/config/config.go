// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Janitor   JanitorConfig   `yaml:"janitor"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов и одноразовых кодов.
// Access- и refresh-токены подписываются независимыми секретами.
type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret" env:"ACCESS_SECRET_KEY" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"REFRESH_SECRET_KEY" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"720h"`
	JWTAlgorithm    string        `yaml:"jwt_algorithm" env:"JWT_ALGORITHM" env-default:"HS256"`
	OneTimeCodeTTL  time.Duration `yaml:"one_time_code_ttl" env:"ONE_TIME_CODE_TTL" env-default:"300s"`
}

// Validate проверяет согласованность параметров выпуска токенов.
func (a AuthConfig) Validate() error {
	if a.AccessSecret == "" || a.RefreshSecret == "" {
		return errors.New("access and refresh secrets must be set")
	}

	if a.AccessSecret == a.RefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}

	if _, ok := jwt.GetSigningMethod(a.JWTAlgorithm).(*jwt.SigningMethodHMAC); !ok {
		return fmt.Errorf("unsupported jwt algorithm %q", a.JWTAlgorithm)
	}

	if a.AccessTokenTTL <= 0 || a.RefreshTokenTTL <= 0 || a.OneTimeCodeTTL <= 0 {
		return errors.New("token and code ttl must be positive")
	}

	return nil
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig — подключение к Redis (сессии и одноразовые коды).
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-required:"true"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"auth:"`
}

// KafkaConfig — доставка кодов подтверждения. Пустой Brokers отключает Kafka.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"auth.verification-codes"`
}

// RateLimitConfig — ограничение частоты попыток входа.
type RateLimitConfig struct {
	LoginLimit int           `yaml:"login_limit" env:"LOGIN_LIMIT" env-default:"10"`
	Window     time.Duration `yaml:"window" env:"LOGIN_WINDOW" env-default:"1m"`
}

// JanitorConfig — фоновая очистка неподтверждённых аккаунтов.
// PendingAccountTTL <= 0 отключает очистку.
type JanitorConfig struct {
	PendingAccountTTL time.Duration `yaml:"pending_account_ttl" env:"PENDING_ACCOUNT_TTL" env-default:"24h"`
	Period            time.Duration `yaml:"period" env:"JANITOR_PERIOD" env-default:"30m"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		return validated(&cfg)
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		return validated(&cfg)
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validated(&cfg)
}

func validated(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность секций конфигурации между собой.
func (c *Config) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}

	if c.RateLimit.LoginLimit <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("invalid rate_limit config: login_limit and window must be positive")
	}

	// janitor не должен удалять аккаунты, код которых ещё действует.
	if c.Janitor.PendingAccountTTL > 0 && c.Janitor.PendingAccountTTL < c.Auth.OneTimeCodeTTL {
		return errors.New("invalid janitor config: pending_account_ttl must not be shorter than one_time_code_ttl")
	}

	return nil
}
