package strategy

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoubleChuang/ccxt-bot/pkg/logger"
	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

// KD50 стратегия пересечения уровня 50 осциллятором KD.
// K пересекает 50 снизу вверх — лонг со стопом по low сигнального бара,
// сверху вниз — шорт со стопом по high. Повторный сигнал одного
// направления по бару не новее уже отработанного подавляется.
type KD50 struct {
	longTime  time.Time
	shortTime time.Time
}

// NewKD50 создает стратегию с пустой памятью сигналов
func NewKD50() *KD50 {
	return &KD50{}
}

func (s *KD50) Name() string {
	return "KD50Strategy"
}

// Run оценивает последний закрытый бар: предпоследний элемент серии,
// последний считается незавершенным и не сигналится никогда.
// Возвращает ноль или один результат.
func (s *KD50) Run(bars []models.Bar) []models.StrategyResult {
	logger.Info("Запуск стратегии", zap.String("strategy", s.Name()))

	curr := len(bars) - 2
	logger.Info("Проверка пересечения KD",
		zap.Time("prev", bars[curr-1].OpenTime),
		zap.Time("curr", bars[curr].OpenTime))

	res := s.step(bars, curr)
	if res.Suggestion == models.DoNothing {
		return nil
	}
	return []models.StrategyResult{res}
}

// Backtest прогоняет правило по каждому индексу 1..len-1 и возвращает
// ровно len-1 результатов, включая явные DoNothing.
func (s *KD50) Backtest(bars []models.Bar) []models.StrategyResult {
	logger.Info("Запуск бэктеста", zap.String("strategy", s.Name()))

	results := make([]models.StrategyResult, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		results = append(results, s.step(bars, i))
	}
	return results
}

// step применяет правило пересечения к бару i. Кандидат, чей бар не
// новее запомненной даты последнего сигнала того же направления,
// подавляется и память не обновляется.
func (s *KD50) step(bars []models.Bar, i int) models.StrategyResult {
	prevK := bars[i-1].KdjK
	currK := bars[i].KdjK
	date := bars[i].OpenTime

	res := models.StrategyResult{
		Strategy:   s.Name(),
		Suggestion: models.DoNothing,
		Time:       date,
	}

	switch {
	// KD разворачивается вверх
	case prevK < 50 && currK >= 50:
		if !s.longTime.IsZero() && !s.longTime.Before(date) {
			return res
		}
		s.longTime = date

		stop := bars[i].Low
		res.Suggestion = models.Long
		res.StopPrice = &stop
		res.Msg = fmt.Sprintf("лонг %.2f, стоп-лосс %.2f (%s)",
			bars[i].Open, stop, date.Format(time.RFC3339))

	// KD разворачивается вниз
	case prevK > 50 && currK <= 50:
		if !s.shortTime.IsZero() && !s.shortTime.Before(date) {
			return res
		}
		s.shortTime = date

		stop := bars[i].High
		res.Suggestion = models.Short
		res.StopPrice = &stop
		res.Msg = fmt.Sprintf("шорт %.2f, стоп-лосс %.2f (%s)",
			bars[i].Open, stop, date.Format(time.RFC3339))
	}

	return res
}
