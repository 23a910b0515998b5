package config

import (
	"log"
	"time"

	"github.com/spf13/viper"

	"golang-task-automation-engine/pkg/postgres"
	"golang-task-automation-engine/pkg/redis"
)

type Config struct {
	Server    ServerConfig
	Scheduler SchedulerConfig
	Gemini    GeminiConfig
	SMTP      SMTPConfig
	Sandbox   SandboxConfig
	Scraper   ScraperConfig
	Workspace WorkspaceConfig
	Telegram  TelegramConfig
	Database  postgres.Config
	Redis     redis.Config
	Log       LogConfig
}

type LogConfig struct {
	Level string
}

type ServerConfig struct {
	Port string
	Env  string
}

// SchedulerConfig is the worker's tuning surface. Zero values are replaced by
// defaults in LoadConfig so tests can construct it directly.
type SchedulerConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	RetentionDays    int
	HistoryKeep      int
	ExecutionTimeout time.Duration
	DueWindow        time.Duration
}

type GeminiConfig struct {
	APIKey              string
	Model               string
	MaxRequestPerMinute int
	RequestTemperature  float64
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SandboxConfig struct {
	WorkDir     string
	OutputLimit int
}

type ScraperConfig struct {
	Timeout   time.Duration
	UserAgent string
}

type WorkspaceConfig struct {
	BaseURL string
	APIKey  string
}

type TelegramConfig struct {
	BotToken                  string
	MaxGlobalRequestPerSecond int
	MaxChatRequestPerMinute   int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("Failed to read config file .env config try read from environment variables")
	}

	viper.SetDefault("SCHEDULER_POLL_INTERVAL", "30s")
	viper.SetDefault("SCHEDULER_BATCH_SIZE", 10)
	viper.SetDefault("SCHEDULER_RETENTION_DAYS", 30)
	viper.SetDefault("SCHEDULER_HISTORY_KEEP", 100)
	viper.SetDefault("SCHEDULER_EXECUTION_TIMEOUT", "5m")
	viper.SetDefault("SCHEDULER_DUE_WINDOW", "1h")
	viper.SetDefault("SANDBOX_OUTPUT_LIMIT", 2000)
	viper.SetDefault("SCRAPER_TIMEOUT", "30s")
	viper.SetDefault("TELEGRAM_MAX_GLOBAL_REQUEST_PER_SECOND", 30)
	viper.SetDefault("TELEGRAM_MAX_CHAT_REQUEST_PER_MINUTE", 20)

	config := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
			Env:  viper.GetString("ENV"),
		},
		Scheduler: SchedulerConfig{
			PollInterval:     viper.GetDuration("SCHEDULER_POLL_INTERVAL"),
			BatchSize:        viper.GetInt("SCHEDULER_BATCH_SIZE"),
			RetentionDays:    viper.GetInt("SCHEDULER_RETENTION_DAYS"),
			HistoryKeep:      viper.GetInt("SCHEDULER_HISTORY_KEEP"),
			ExecutionTimeout: viper.GetDuration("SCHEDULER_EXECUTION_TIMEOUT"),
			DueWindow:        viper.GetDuration("SCHEDULER_DUE_WINDOW"),
		},
		Gemini: GeminiConfig{
			APIKey:              viper.GetString("GEMINI_API_KEY"),
			Model:               viper.GetString("GEMINI_MODEL"),
			MaxRequestPerMinute: viper.GetInt("GEMINI_MAX_REQUEST_PER_MINUTE"),
			RequestTemperature:  viper.GetFloat64("GEMINI_REQUEST_TEMPERATURE"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			Username: viper.GetString("SMTP_USERNAME"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
		},
		Sandbox: SandboxConfig{
			WorkDir:     viper.GetString("SANDBOX_WORK_DIR"),
			OutputLimit: viper.GetInt("SANDBOX_OUTPUT_LIMIT"),
		},
		Scraper: ScraperConfig{
			Timeout:   viper.GetDuration("SCRAPER_TIMEOUT"),
			UserAgent: viper.GetString("SCRAPER_USER_AGENT"),
		},
		Workspace: WorkspaceConfig{
			BaseURL: viper.GetString("WORKSPACE_BASE_URL"),
			APIKey:  viper.GetString("WORKSPACE_API_KEY"),
		},
		Telegram: TelegramConfig{
			BotToken:                  viper.GetString("TELEGRAM_BOT_TOKEN"),
			MaxGlobalRequestPerSecond: viper.GetInt("TELEGRAM_MAX_GLOBAL_REQUEST_PER_SECOND"),
			MaxChatRequestPerMinute:   viper.GetInt("TELEGRAM_MAX_CHAT_REQUEST_PER_MINUTE"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Database: postgres.Config{
			Host:            viper.GetString("DATABASE_HOST"),
			Port:            viper.GetInt("DATABASE_PORT"),
			User:            viper.GetString("DATABASE_USER"),
			Password:        viper.GetString("DATABASE_PASSWORD"),
			DBName:          viper.GetString("DATABASE_NAME"),
			SSLMode:         viper.GetString("DATABASE_SSL_MODE"),
			TimeZone:        viper.GetString("DATABASE_TIME_ZONE"),
			MaxIdleConns:    viper.GetInt("DATABASE_MAX_IDLE_CONNS"),
			MaxOpenConns:    viper.GetInt("DATABASE_MAX_OPEN_CONNS"),
			ConnMaxLifetime: viper.GetString("DATABASE_CONN_MAX_LIFETIME"),
			LogLevel:        viper.GetString("DATABASE_LOG_LEVEL"),
		},
		Redis: redis.Config{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
		},
	}

	return config, nil
}
