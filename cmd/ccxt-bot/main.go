package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DoubleChuang/ccxt-bot/internal/bot"
	"github.com/DoubleChuang/ccxt-bot/internal/config"
	"github.com/DoubleChuang/ccxt-bot/internal/exchange"
	"github.com/DoubleChuang/ccxt-bot/internal/metrics"
	"github.com/DoubleChuang/ccxt-bot/internal/notify"
	"github.com/DoubleChuang/ccxt-bot/internal/scheduler"
	"github.com/DoubleChuang/ccxt-bot/internal/storage"
	"github.com/DoubleChuang/ccxt-bot/internal/strategy"
	"github.com/DoubleChuang/ccxt-bot/internal/trader"
	"github.com/DoubleChuang/ccxt-bot/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.GetLogger().Sync()

	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	// Проверяем наличие файла конфигурации
	logger.Info("Проверка наличия файла конфигурации", zap.String("path", *configPath))
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Fatal("Файл конфигурации не найден", zap.String("path", *configPath))
	}

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}

	// Создаем контекст с возможностью отмены через горутину
	ctx, cancel := context.WithCancel(context.Background())

	// Настраиваем обработку сигналов завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nЗавершение работы...")
		cancel()
		time.Sleep(2 * time.Second) // Даем время на завершение тика
		os.Exit(0)
	}()

	// Инициализируем журнал сигналов
	var journal storage.Journal = storage.NoopJournal{}
	if cfg.Storage.Enabled {
		influx, err := storage.NewInfluxJournal(cfg.Storage)
		if err != nil {
			logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
		}
		journal = influx
	}
	defer journal.Close()

	// Инициализируем клиент биржи
	gateway, err := exchange.NewBinanceGateway(cfg.Binance)
	if err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}

	// Исполнитель ордеров
	trd := trader.NewTrader(gateway, cfg.Trading.Symbol, cfg.Trading.Sandbox)

	// Каналы уведомлений
	var notifiers []notify.Notifier
	if cfg.Notify.LineToken != "" {
		notifiers = append(notifiers, notify.NewLineNotifier(cfg.Notify.LineToken))
	}
	if cfg.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			logger.Fatal("Ошибка инициализации Telegram", zap.Error(err))
		}
		notifiers = append(notifiers, tg)
	}

	// Собираем бота и регистрируем стратегии из конфигурации
	b := bot.New(cfg, gateway, trd, journal, notifiers)
	for _, name := range cfg.Trading.Strategies {
		stgy, err := strategy.New(name)
		if err != nil {
			logger.Fatal("Ошибка создания стратегии", zap.Error(err))
		}
		b.RegisterStrategy(stgy)
	}

	// Экспорт метрик
	if cfg.Metrics.Addr != "" {
		metrics.Serve(cfg.Metrics.Addr)
		logger.Info("Метрики доступны", zap.String("addr", cfg.Metrics.Addr))
	}

	// Немедленный прогон и расписание по таймфрейму
	sched := scheduler.New()
	if err := b.JoinSchedule(ctx, sched); err != nil {
		logger.Fatal("Ошибка регистрации расписания", zap.Error(err))
	}

	// Блокирующий цикл планировщика — последняя инструкция main
	sched.Run(ctx)
}
