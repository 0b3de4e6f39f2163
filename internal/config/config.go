// config реализует конфигурацию commentbox: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/MochaChoco/my-site/internal/models"
)

// Виды бэкенда комментариев.
const (
	BackendMemory = "memory"
	BackendHTTP   = "http"
	BackendMongo  = "mongo"
)

// Config: корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
//
// Необязательный ./.env подгружается в окружение до чтения.
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Backend  BackendConfig `yaml:"backend"`
	DB       DBConfig      `yaml:"db"`
	Limits   LimitsConfig  `yaml:"limits"`
	Rate     RateConfig    `yaml:"rate"`
	Auth     AuthConfig    `yaml:"auth"`
	Widget   WidgetConfig  `yaml:"widget"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// HTTPConfig: сетевые настройки HTTP-сервера (REST + хост виджетов + health/metrics).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// BackendConfig: источник данных комментариев.
type BackendConfig struct {
	// memory | http | mongo.
	Kind string `yaml:"kind" env:"BACKEND_KIND" env-default:"memory"`
	// Базовый URL REST API для kind=http.
	APIURL string `yaml:"api_url" env:"BACKEND_API_URL"`
	// Искусственная задержка in-memory бэкенда. Нулевое значение из YAML
	// заменяется дефолтом (так работает cleanenv).
	Delay time.Duration `yaml:"delay" env:"BACKEND_DELAY" env-default:"300ms"`
}

// DBConfig: настройки подключения к MongoDB (kind=mongo).
type DBConfig struct {
	URL  string `yaml:"url" env:"DATABASE_URL"`
	Name string `yaml:"name" env:"DB_NAME" env-default:"commentbox"`
}

// LimitsConfig: лимиты на выдачу и размер комментария.
type LimitsConfig struct {
	// Пагинация: page_size=0 -> берём Default; верхняя граница: Max.
	Default int `yaml:"default" env:"DEFAULT_LIMIT" env-default:"10"`
	Max     int `yaml:"max"     env:"MAX_LIMIT"     env-default:"100"`
	// Максимальная длина текста комментария в рунах.
	MaxContent int `yaml:"max_content" env:"MAX_CONTENT" env-default:"2000"`
}

// RateConfig: ограничение частоты запросов на один IP.
type RateConfig struct {
	RPM   int `yaml:"rpm"   env:"RATE_RPM"   env-default:"600"`
	Burst int `yaml:"burst" env:"RATE_BURST" env-default:"50"`
}

// AuthConfig: токены зрителя.
type AuthConfig struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	TTL    time.Duration `yaml:"ttl"    env:"JWT_TTL"    env-default:"24h"`
	Issuer string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"commentbox"`
}

// WidgetConfig: значения по умолчанию для монтируемых виджетов.
type WidgetConfig struct {
	PageSize  int    `yaml:"page_size"  env:"WIDGET_PAGE_SIZE"  env-default:"10"`
	Locale    string `yaml:"locale"     env:"WIDGET_LOCALE"     env-default:"ko"`
	Theme     string `yaml:"theme"      env:"WIDGET_THEME"      env-default:"light"`
	CSSPrefix string `yaml:"css_prefix" env:"WIDGET_CSS_PREFIX" env-default:"cb"`
	// Stickers: каталог стикеров; пустой каталог отключает кнопку стикеров.
	Stickers []models.StickerGroup `yaml:"stickers"`
}

// TimeoutConfig: таймауты.
type TimeoutConfig struct {
	// Общий дедлайн обработки HTTP-запроса.
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	// Дедлайн одного обращения виджета к бэкенду.
	Backend time.Duration `yaml:"backend" env:"BACKEND_TIMEOUT" env-default:"10s"`
	// Время на корректную остановку.
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad: обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// .env необязателен.
	_ = godotenv.Load()

	// чтение файла + overlay ENV.
	readFile := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return readFile(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate: базовая валидация значений.
func (c *Config) validate() error {
	switch c.Backend.Kind {
	case BackendMemory:
	case BackendHTTP:
		if c.Backend.APIURL == "" {
			return fmt.Errorf("backend.api_url is required for kind %q", BackendHTTP)
		}
	case BackendMongo:
		if c.DB.URL == "" {
			return fmt.Errorf("db.url is required for kind %q", BackendMongo)
		}
	default:
		return fmt.Errorf("backend.kind must be one of memory, http, mongo")
	}

	if c.Backend.Delay < 0 {
		return fmt.Errorf("backend.delay must be >= 0")
	}

	if c.Limits.Default <= 0 {
		return fmt.Errorf("limits.default must be > 0")
	}

	if c.Limits.Max <= 0 {
		return fmt.Errorf("limits.max must be > 0")
	}

	if c.Limits.Default > c.Limits.Max {
		return fmt.Errorf("limits.default must be <= limits.max")
	}

	if c.Limits.MaxContent <= 0 {
		return fmt.Errorf("limits.max_content must be > 0")
	}

	if c.Rate.RPM <= 0 || c.Rate.Burst <= 0 {
		return fmt.Errorf("rate.rpm and rate.burst must be > 0")
	}

	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}

	if c.Env == "prod" && len(c.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 bytes in prod")
	}

	if c.Auth.TTL < time.Minute {
		return fmt.Errorf("auth.ttl must be at least 1m")
	}

	if c.Widget.PageSize <= 0 {
		return fmt.Errorf("widget.page_size must be > 0")
	}

	if c.Widget.Theme != "light" && c.Widget.Theme != "dark" {
		return fmt.Errorf("widget.theme must be light or dark")
	}

	if c.Widget.Locale != "ko" && c.Widget.Locale != "en" {
		return fmt.Errorf("widget.locale must be ko or en")
	}

	if c.Timeouts.Service <= 0 || c.Timeouts.Backend <= 0 {
		return fmt.Errorf("timeouts.service and timeouts.backend must be > 0")
	}

	return nil
}
