package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config содержит все настройки приложения
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	GRPC       GRPCConfig       `mapstructure:"grpc"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Feed       FeedConfig       `mapstructure:"feed"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Resilience ResilienceConfig `mapstructure:"-"`
}

// AppConfig содержит общие настройки сервиса
type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// IsDevelopment сообщает, запущен ли сервис в режиме разработки
func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// DatabaseConfig задает хранилище. URL с префиксом postgres:// или sqlite://
// имеет приоритет над секцией postgres.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// PostgresConfig содержит настройки для PostgreSQL
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN собирает строку подключения к PostgreSQL
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig содержит настройки для Redis. Пустой Addr отключает кэш профилей.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GRPCConfig содержит настройки для gRPC сервера
type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

// HTTPConfig служебный HTTP сервер: /health и /metrics
type HTTPConfig struct {
	Port          int           `mapstructure:"port"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// FeedConfig задает ограничения размера выдачи
type FeedConfig struct {
	PublicLimit   int `mapstructure:"public_limit"`
	AdminLimit    int `mapstructure:"admin_limit"`
	AdminMaxLimit int `mapstructure:"admin_max_limit"`
}

// RateLimitConfig задает окно ограничения публикаций
type RateLimitConfig struct {
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LoadConfig загружает настройки из .env, файла config.yaml и переменных окружения
func LoadConfig() (*Config, error) {
	// .env необязателен: в production переменные задаются окружением
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Если файл конфигурации не найден, используем переменные окружения
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	loadFromEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Resilience = DefaultResilienceConfig()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.Feed.PublicLimit <= 0 {
		return fmt.Errorf("feed.public_limit must be positive, got %d", c.Feed.PublicLimit)
	}
	if c.Feed.AdminLimit <= 0 || c.Feed.AdminLimit > c.Feed.AdminMaxLimit {
		return fmt.Errorf("feed.admin_limit must be in [1, %d], got %d", c.Feed.AdminMaxLimit, c.Feed.AdminLimit)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got %s", c.RateLimit.Window)
	}
	if c.Database.URL != "" &&
		!strings.HasPrefix(c.Database.URL, "postgres://") &&
		!strings.HasPrefix(c.Database.URL, "postgresql://") &&
		!strings.HasPrefix(c.Database.URL, "sqlite://") {
		return fmt.Errorf("database.url must start with postgres:// or sqlite://")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	// PostgreSQL defaults
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.username", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "truth_meter")
	v.SetDefault("postgres.sslmode", "disable")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// gRPC defaults
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.check_interval", 10*time.Second)

	v.SetDefault("feed.public_limit", 100)
	v.SetDefault("feed.admin_limit", 200)
	v.SetDefault("feed.admin_max_limit", 1000)

	v.SetDefault("ratelimit.window", 15*time.Second)
	v.SetDefault("ratelimit.sweep_interval", 10*time.Minute)
}

func loadFromEnv(v *viper.Viper) {
	if env := os.Getenv("APP_ENV"); env != "" {
		v.Set("app.env", env)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		v.Set("app.log_level", level)
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.url", dbURL)
	}

	// PostgreSQL from env
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		v.Set("postgres.host", dbHost)
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			v.Set("postgres.port", port)
		}
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		v.Set("postgres.username", dbUser)
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		v.Set("postgres.password", dbPassword)
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		v.Set("postgres.dbname", dbName)
	}

	// Redis from env
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := "6379"
		if port := os.Getenv("REDIS_PORT"); port != "" {
			redisPort = port
		}
		v.Set("redis.addr", redisHost+":"+redisPort)
	}

	// gRPC from env
	if grpcPort := os.Getenv("GRPC_PORT"); grpcPort != "" {
		if port, err := strconv.Atoi(grpcPort); err == nil {
			v.Set("grpc.port", port)
		}
	}

	if httpPort := os.Getenv("HTTP_PORT"); httpPort != "" {
		if port, err := strconv.Atoi(httpPort); err == nil {
			v.Set("http.port", port)
		}
	}

	if window := os.Getenv("POST_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			v.Set("ratelimit.window", d)
		}
	}
}
