package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/DoubleChuang/ccxt-bot/pkg/logger"
	"go.uber.org/zap"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	App     AppConfig     `yaml:"app"`
	Binance BinanceConfig `yaml:"binance"`
	Trading TradingConfig `yaml:"trading"`
	Retry   RetryConfig   `yaml:"retry"`
	Notify  NotifyConfig  `yaml:"notify"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// AppConfig общие настройки процесса
type AppConfig struct {
	Name string `yaml:"name"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// TradingConfig содержит настройки торговли
type TradingConfig struct {
	Symbol          string   `yaml:"symbol"`           // напр. ETH/USDT
	Timeframe       string   `yaml:"timeframe"`        // напр. 4h
	Strategies      []string `yaml:"strategies"`       // kd50, impulse_macd
	PercentOfEquity int      `yaml:"percent_of_equity"`
	Sandbox         bool     `yaml:"sandbox"`
	Backtest        bool     `yaml:"backtest"`
}

// RetryConfig настройки повторов запроса свечей
type RetryConfig struct {
	MaxAttempts  int `yaml:"max_attempts"`
	MinBackoffMs int `yaml:"min_backoff_ms"`
	MaxBackoffMs int `yaml:"max_backoff_ms"`
}

// NotifyConfig настройки каналов уведомлений
type NotifyConfig struct {
	LineToken      string `yaml:"line_token"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// StorageConfig настройки журнала сигналов
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// MetricsConfig настройки экспорта метрик
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load загружает конфигурацию из файла и применяет
// переопределения секретов из окружения (.env поддерживается)
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	config.applyDefaults()
	config.applyEnv()

	logger.Info("Загружена конфигурация",
		zap.String("path", path),
		zap.String("symbol", config.Trading.Symbol),
		zap.String("timeframe", config.Trading.Timeframe),
		zap.Bool("sandbox", config.Trading.Sandbox),
		zap.Bool("backtest", config.Trading.Backtest))

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "ccxt_bot"
	}
	if c.Trading.PercentOfEquity == 0 {
		c.Trading.PercentOfEquity = 30
	}
	if len(c.Trading.Strategies) == 0 {
		c.Trading.Strategies = []string{"kd50"}
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 5
	}
	if c.Retry.MinBackoffMs == 0 {
		c.Retry.MinBackoffMs = 500
	}
	if c.Retry.MaxBackoffMs == 0 {
		c.Retry.MaxBackoffMs = 30000
	}
}

// applyEnv переопределяет секреты значениями из окружения.
// Ошибка отсутствия .env не фатальна: файл опционален.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET"); v != "" {
		c.Binance.APISecret = v
	}
	if v := os.Getenv("LINE_TOKEN"); v != "" {
		c.Notify.LineToken = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notify.TelegramChatID = id
		}
	}
	if v := os.Getenv("INFLUX_TOKEN"); v != "" {
		c.Storage.Token = v
	}
}
