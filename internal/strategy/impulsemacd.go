package strategy

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoubleChuang/ccxt-bot/pkg/logger"
	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

// ImpulseMACD стратегия по серии цветов момента mdc на четырех
// последовательных барах. В отличие от KD50 ведет настоящую позицию:
// знак -1/0/+1 и защитную цену. Открытая позиция всегда имеет стоп;
// выход обнуляет знак и стоп вместе.
type ImpulseMACD struct {
	positionSign int
	longStop     *float64
	shortStop    *float64
}

// NewImpulseMACD создает стратегию без открытой позиции
func NewImpulseMACD() *ImpulseMACD {
	return &ImpulseMACD{}
}

func (s *ImpulseMACD) Name() string {
	return "ImpulseMACDStrategy"
}

// Run оценивает последний закрытый бар. Требует минимум трех баров
// истории перед ним и одного бара после (стоп берется от следующего).
func (s *ImpulseMACD) Run(bars []models.Bar) []models.StrategyResult {
	return s.stepAt(bars, len(bars)-2)
}

// Backtest прогоняет правило по индексам [3, len-1), накапливая все
// сигналы в порядке появления.
func (s *ImpulseMACD) Backtest(bars []models.Bar) []models.StrategyResult {
	logger.Info("Запуск бэктеста", zap.String("strategy", s.Name()))

	var results []models.StrategyResult
	for i := 3; i < len(bars)-1; i++ {
		results = append(results, s.stepAt(bars, i)...)
	}
	return results
}

func (s *ImpulseMACD) stepAt(bars []models.Bar, i int) []models.StrategyResult {
	closePrice := bars[i].Close
	// стоп считается от следующего бара: намеренный лаг в один бар
	nextOpen := bars[i+1].Open
	nextATR := bars[i+1].ATR
	date := bars[i].OpenTime

	logger.Info("Запуск стратегии",
		zap.String("strategy", s.Name()),
		zap.Time("bar", date),
		zap.Int("position", s.positionSign))

	// Условия считаются со знаком позиции до выходов, как и выходы по
	// встречному паттерну: выход и новый вход могут прийти одним баром.
	longCond := s.positionSign <= 0 &&
		bars[i-3].MDC == models.MDRed && bars[i-2].MDC == models.MDRed &&
		bars[i-1].MDC == models.MDGreen && bars[i].MDC == models.MDGreen

	shortCond := s.positionSign >= 0 &&
		bars[i-3].MDC == models.MDLime && bars[i-2].MDC == models.MDLime &&
		bars[i-1].MDC == models.MDOrange && bars[i].MDC == models.MDOrange

	longExitCond := shortCond && s.positionSign > 0
	shortExitCond := longCond && s.positionSign < 0

	longStopCond := s.positionSign > 0 && s.longStop != nil && closePrice <= *s.longStop
	shortStopCond := s.positionSign < 0 && s.shortStop != nil && closePrice >= *s.shortStop

	var results []models.StrategyResult

	if longExitCond || longStopCond {
		var msg string
		if longStopCond {
			msg = fmt.Sprintf("стоп-лосс лонга %.2f, цена %.2f (%s)",
				*s.longStop, closePrice, date.Format(time.RFC3339))
		} else {
			msg = fmt.Sprintf("тейк-профит лонга, цена %.2f (%s)",
				closePrice, date.Format(time.RFC3339))
		}

		s.longStop = nil
		suggestion := models.LongTakeProfit
		if longStopCond {
			suggestion = models.LongStopLoss
		}
		results = append(results, models.StrategyResult{
			Strategy:   s.Name(),
			Suggestion: suggestion,
			Msg:        msg,
			Time:       date,
		})
		s.positionSign = 0
	}

	if shortExitCond || shortStopCond {
		var msg string
		if shortStopCond {
			msg = fmt.Sprintf("стоп-лосс шорта %.2f, цена %.2f (%s)",
				*s.shortStop, closePrice, date.Format(time.RFC3339))
		} else {
			msg = fmt.Sprintf("тейк-профит шорта, цена %.2f (%s)",
				closePrice, date.Format(time.RFC3339))
		}

		s.shortStop = nil
		suggestion := models.ShortTakeProfit
		if shortStopCond {
			suggestion = models.ShortStopLoss
		}
		results = append(results, models.StrategyResult{
			Strategy:   s.Name(),
			Suggestion: suggestion,
			Msg:        msg,
			Time:       date,
		})
		s.positionSign = 0
	}

	if shortCond {
		stop := nextOpen + 1.5*nextATR
		s.shortStop = &stop

		results = append(results, models.StrategyResult{
			Strategy:   s.Name(),
			Suggestion: models.Short,
			Msg: fmt.Sprintf("шорт %.2f, стоп-лосс %.2f (%s)",
				closePrice, stop, date.Format(time.RFC3339)),
			StopPrice: &stop,
			Time:      date,
		})
		s.positionSign = -1
	}

	if longCond {
		stop := nextOpen - 1.5*nextATR
		s.longStop = &stop

		results = append(results, models.StrategyResult{
			Strategy:   s.Name(),
			Suggestion: models.Long,
			Msg: fmt.Sprintf("лонг %.2f, стоп-лосс %.2f (%s)",
				closePrice, stop, date.Format(time.RFC3339)),
			StopPrice: &stop,
			Time:      date,
		})
		s.positionSign = 1
	}

	return results
}
