// Package bot связывает компоненты: получение свечей, прогон
// стратегий, уведомления, журнал и исполнение ордеров по расписанию.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/DoubleChuang/ccxt-bot/internal/config"
	"github.com/DoubleChuang/ccxt-bot/internal/exchange"
	"github.com/DoubleChuang/ccxt-bot/internal/indicator"
	"github.com/DoubleChuang/ccxt-bot/internal/metrics"
	"github.com/DoubleChuang/ccxt-bot/internal/notify"
	"github.com/DoubleChuang/ccxt-bot/internal/scheduler"
	"github.com/DoubleChuang/ccxt-bot/internal/storage"
	"github.com/DoubleChuang/ccxt-bot/internal/strategy"
	"github.com/DoubleChuang/ccxt-bot/internal/trader"
	"github.com/DoubleChuang/ccxt-bot/pkg/logger"
	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

const (
	fetchLimit = 300 // запрашиваем с запасом на прогрев индикаторов
	barsTail   = 200 // стратегиям отдается хвост серии

	// minCandles нижняя граница серии: прогрев самого длинного
	// индикатора (SMMA/ZLEMA 34) плюс четыре бара паттерна и
	// следующий бар для стопа
	minCandles = 39
)

// Bot выполняет зарегистрированные стратегии по одному инструменту
// и превращает их сигналы в уведомления, записи журнала и ордера
type Bot struct {
	gateway    exchange.Gateway
	trader     *trader.Trader
	journal    storage.Journal
	notifiers  []notify.Notifier
	strategies []strategy.Strategy

	appName         string
	symbol          string
	timeframe       string
	percentOfEquity int
	backtest        bool
	retry           config.RetryConfig
}

// New создает бота поверх готовых коллабораторов
func New(cfg *config.Config, gateway exchange.Gateway, trd *trader.Trader,
	journal storage.Journal, notifiers []notify.Notifier) *Bot {
	return &Bot{
		gateway:         gateway,
		trader:          trd,
		journal:         journal,
		notifiers:       notifiers,
		appName:         cfg.App.Name,
		symbol:          cfg.Trading.Symbol,
		timeframe:       cfg.Trading.Timeframe,
		percentOfEquity: cfg.Trading.PercentOfEquity,
		backtest:        cfg.Trading.Backtest,
		retry:           cfg.Retry,
	}
}

// RegisterStrategy добавляет стратегию; стратегии выполняются
// в порядке регистрации
func (b *Bot) RegisterStrategy(s strategy.Strategy) []strategy.Strategy {
	b.strategies = append(b.strategies, s)
	return b.strategies
}

// FetchBars получает свечи и обогащает их индикаторами. Таймауты
// запроса повторяются ограниченно с экспоненциальной выдержкой,
// прочие ошибки прерывают цикл сразу.
func (b *Bot) FetchBars(ctx context.Context) ([]models.Bar, error) {
	bo := &backoff.Backoff{
		Min:    time.Duration(b.retry.MinBackoffMs) * time.Millisecond,
		Max:    time.Duration(b.retry.MaxBackoffMs) * time.Millisecond,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= b.retry.MaxAttempts; attempt++ {
		candles, err := b.gateway.FetchOHLCV(ctx, b.symbol, b.timeframe, fetchLimit)
		if err == nil {
			// усеченный ответ (молодой листинг, обрезанная выдача) не
			// транзиентен и не повторяется
			if len(candles) < minCandles {
				return nil, fmt.Errorf("недостаточно свечей для оценки: %d < %d",
					len(candles), minCandles)
			}
			return indicator.Enrich(candles, barsTail), nil
		}
		if !isTimeout(err) {
			return nil, err
		}

		lastErr = err
		metrics.FetchRetriesTotal.Inc()
		logger.Warn("Повтор запроса свечей",
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bo.Duration()):
		}
	}

	return nil, fmt.Errorf("исчерпаны попытки получения свечей: %w", lastErr)
}

// DoStrategies выполняет один цикл оценки: свечи, стратегии,
// уведомления, журнал, ордера. Ошибка исполнения прерывает цикл;
// следующего тика расписания она не отменяет.
func (b *Bot) DoStrategies(ctx context.Context) error {
	bars, err := b.FetchBars(ctx)
	if err != nil {
		return err
	}

	for _, stgy := range b.strategies {
		var results []models.StrategyResult
		if b.backtest {
			results = stgy.Backtest(bars)
		} else {
			results = stgy.Run(bars)
		}

		for _, result := range results {
			if result.Suggestion != models.DoNothing {
				metrics.SignalsTotal.WithLabelValues(result.Strategy, result.Suggestion.String()).Inc()
			}
			b.deliver(ctx, result)

			if err := b.trader.Execute(ctx, result, b.percentOfEquity); err != nil {
				metrics.ExecutionErrorsTotal.Inc()
				return fmt.Errorf("ошибка исполнения сигнала %s: %w",
					result.Suggestion.String(), err)
			}
		}
	}

	return nil
}

// deliver рассылает сигнал по каналам и пишет в журнал.
// Ошибки доставки не прерывают торговый цикл.
func (b *Bot) deliver(ctx context.Context, result models.StrategyResult) {
	if result.Suggestion == models.DoNothing {
		return
	}

	if err := b.journal.SaveSignal(ctx, b.symbol, b.timeframe, result); err != nil {
		logger.Warn("Ошибка записи в журнал", zap.Error(err))
	}

	msg := fmt.Sprintf(`👾 %s 👾

strategy   👉 %s
symbol     👉 %s
time frame 👉 %s

%s`, b.appName, result.Strategy, b.symbol, b.timeframe, result.Msg)

	for _, n := range b.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			logger.Warn("Ошибка доставки уведомления", zap.Error(err))
		}
	}
}

// JoinSchedule выполняет один немедленный цикл и регистрирует
// расписание, выведенное из таймфрейма
func (b *Bot) JoinSchedule(ctx context.Context, s *scheduler.Scheduler) error {
	job := func() {
		if err := b.DoStrategies(ctx); err != nil {
			logger.Error("Цикл оценки прерван", zap.Error(err))
		}
	}

	// первый прогон сразу при входе
	job()

	amount, unit, err := ParseTimeframe(b.timeframe)
	if err != nil {
		return err
	}

	switch unit {
	case 'y':
		s.EveryDaysAt(365*amount, 0, 0, 0, job)
	case 'M':
		s.EveryDaysAt(30*amount, 0, 0, 0, job)
	case 'w':
		s.EveryDaysAt(7*amount, 0, 0, 0, job)
	case 'd':
		s.EveryDaysAt(amount, 0, 0, 0, job)
	case 'h':
		// 24/amount равномерных запусков в сутки, на секунду позже
		// закрытия свечи
		for i := 0; i < 24/amount; i++ {
			s.EveryDaysAt(1, i*amount, 0, 1, job)
		}
	case 'm':
		s.Every(time.Duration(amount)*time.Minute, job)
	case 's':
		s.Every(time.Duration(amount)*time.Second, job)
	}

	logger.Info("Расписание зарегистрировано",
		zap.String("timeframe", b.timeframe),
		zap.Int("entries", s.Len()))
	return nil
}

// ParseTimeframe разбирает таймфрейм вида <число><единица>,
// единица из {y,M,w,d,h,m,s}
func ParseTimeframe(tf string) (int, byte, error) {
	if len(tf) < 2 {
		return 0, 0, fmt.Errorf("некорректный таймфрейм: %q", tf)
	}

	amount, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || amount <= 0 {
		return 0, 0, fmt.Errorf("некорректный таймфрейм: %q", tf)
	}

	unit := tf[len(tf)-1]
	switch unit {
	case 'y', 'M', 'w', 'd', 'h', 'm', 's':
	default:
		return 0, 0, fmt.Errorf("неизвестная единица таймфрейма: %q", tf)
	}
	if unit == 'h' && 24/amount == 0 {
		return 0, 0, fmt.Errorf("часовой таймфрейм больше суток: %q", tf)
	}

	return amount, unit, nil
}

// isTimeout распознает транзиентный таймаут запроса
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
