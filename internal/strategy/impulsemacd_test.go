package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

// impulseBars строит серию с заданными цветами mdc; open растет на 1
// за бар, ATR фиксирован, close задается отдельно при необходимости
func impulseBars(colors []models.MDColor) []models.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(colors))
	for i, c := range colors {
		bars[i] = models.Bar{
			Candle: models.Candle{
				OpenTime: base.Add(time.Duration(i) * 4 * time.Hour),
				Open:     100 + float64(i),
				High:     110 + float64(i),
				Low:      90 + float64(i),
				Close:    105 + float64(i),
			},
			ATR: 2.0,
			MDC: c,
		}
	}
	return bars
}

func TestImpulseLongEntry(t *testing.T) {
	s := NewImpulseMACD()
	// сигнальный индекс 4, паттерн на 1..4
	colors := []models.MDColor{
		models.MDOrange, models.MDRed, models.MDRed,
		models.MDGreen, models.MDGreen, models.MDGreen,
	}
	bars := impulseBars(colors)

	results := s.Run(bars)
	if len(results) != 1 || results[0].Suggestion != models.Long {
		t.Fatalf("ожидали один Long, получили %+v", results)
	}

	// стоп от следующего бара: open[5] - 1.5*atr[5]
	wantStop := bars[5].Open - 1.5*bars[5].ATR
	if results[0].StopPrice == nil || math.Abs(*results[0].StopPrice-wantStop) > 1e-9 {
		t.Fatalf("ожидали стоп %.2f, получили %v", wantStop, results[0].StopPrice)
	}

	if s.positionSign != 1 {
		t.Fatalf("после входа в лонг знак позиции должен быть +1, получили %d", s.positionSign)
	}
	if s.longStop == nil || s.shortStop != nil {
		t.Fatalf("открытый лонг обязан иметь longStop и не иметь shortStop")
	}
}

func TestImpulseShortEntry(t *testing.T) {
	s := NewImpulseMACD()
	colors := []models.MDColor{
		models.MDGreen, models.MDLime, models.MDLime,
		models.MDOrange, models.MDOrange, models.MDGreen,
	}
	bars := impulseBars(colors)

	results := s.Run(bars)
	if len(results) != 1 || results[0].Suggestion != models.Short {
		t.Fatalf("ожидали один Short, получили %+v", results)
	}

	wantStop := bars[5].Open + 1.5*bars[5].ATR
	if math.Abs(*results[0].StopPrice-wantStop) > 1e-9 {
		t.Fatalf("ожидали стоп %.2f, получили %.2f", wantStop, *results[0].StopPrice)
	}
	if s.positionSign != -1 || s.shortStop == nil || s.longStop != nil {
		t.Fatalf("после входа в шорт знак -1 и только shortStop")
	}
}

func TestImpulseStopLossExit(t *testing.T) {
	s := NewImpulseMACD()
	entry := impulseBars([]models.MDColor{
		models.MDOrange, models.MDRed, models.MDRed,
		models.MDGreen, models.MDGreen, models.MDGreen,
	})
	if results := s.Run(entry); len(results) != 1 {
		t.Fatalf("не удалось открыть позицию")
	}
	stop := *s.longStop

	// нейтральные цвета, close сигнального бара ниже стопа
	exit := impulseBars([]models.MDColor{
		models.MDGreen, models.MDGreen, models.MDGreen,
		models.MDGreen, models.MDGreen, models.MDGreen,
	})
	exit[4].Close = stop - 1

	results := s.Run(exit)
	if len(results) != 1 || results[0].Suggestion != models.LongStopLoss {
		t.Fatalf("ожидали Long_SL, получили %+v", results)
	}
	if s.positionSign != 0 || s.longStop != nil || s.shortStop != nil {
		t.Fatalf("выход обязан обнулить знак позиции и стопы вместе")
	}
}

func TestImpulseShortStopLossExit(t *testing.T) {
	s := NewImpulseMACD()
	entry := impulseBars([]models.MDColor{
		models.MDGreen, models.MDLime, models.MDLime,
		models.MDOrange, models.MDOrange, models.MDGreen,
	})
	if results := s.Run(entry); len(results) != 1 {
		t.Fatalf("не удалось открыть позицию")
	}
	stop := *s.shortStop

	exit := impulseBars([]models.MDColor{
		models.MDGreen, models.MDGreen, models.MDGreen,
		models.MDGreen, models.MDGreen, models.MDGreen,
	})
	exit[4].Close = stop + 1

	results := s.Run(exit)
	if len(results) != 1 || results[0].Suggestion != models.ShortStopLoss {
		t.Fatalf("ожидали Short_SL, получили %+v", results)
	}
	if s.positionSign != 0 || s.shortStop != nil {
		t.Fatalf("выход обязан обнулить знак позиции и стоп")
	}
}

func TestImpulseReversalEmitsExitAndEntry(t *testing.T) {
	s := NewImpulseMACD()
	entry := impulseBars([]models.MDColor{
		models.MDOrange, models.MDRed, models.MDRed,
		models.MDGreen, models.MDGreen, models.MDGreen,
	})
	s.Run(entry)

	// встречный паттерн при открытом лонге: тейк-профит и новый шорт
	// одним баром
	reversal := impulseBars([]models.MDColor{
		models.MDGreen, models.MDLime, models.MDLime,
		models.MDOrange, models.MDOrange, models.MDGreen,
	})
	// close выше стопа, чтобы не сработал стоп-лосс
	reversal[4].Close = *s.longStop + 100

	results := s.Run(reversal)
	if len(results) != 2 {
		t.Fatalf("ожидали выход и вход одним вызовом, получили %+v", results)
	}
	if results[0].Suggestion != models.LongTakeProfit {
		t.Fatalf("первым должен идти тейк-профит лонга, получили %s", results[0].Suggestion)
	}
	if results[1].Suggestion != models.Short {
		t.Fatalf("вторым должен идти вход в шорт, получили %s", results[1].Suggestion)
	}
	if s.positionSign != -1 || s.shortStop == nil || s.longStop != nil {
		t.Fatalf("после разворота знак -1 и только shortStop")
	}
}

func TestImpulseEntryBlockedByOpenPosition(t *testing.T) {
	s := NewImpulseMACD()
	entry := impulseBars([]models.MDColor{
		models.MDOrange, models.MDRed, models.MDRed,
		models.MDGreen, models.MDGreen, models.MDGreen,
	})
	s.Run(entry)

	// тот же бычий паттерн при уже открытом лонге не добавляет позицию
	if results := s.Run(entry); len(results) != 0 {
		t.Fatalf("повторный вход при открытом лонге запрещен, получили %+v", results)
	}
}

func TestImpulseBacktestRange(t *testing.T) {
	// паттерн завершается на последнем баре: бэктест останавливается
	// на len-2 и не должен его увидеть
	colors := make([]models.MDColor, 10)
	for i := range colors {
		colors[i] = models.MDGreen
	}
	colors[6], colors[7] = models.MDRed, models.MDRed
	colors[8], colors[9] = models.MDGreen, models.MDGreen

	s := NewImpulseMACD()
	if results := s.Backtest(impulseBars(colors)); len(results) != 0 {
		t.Fatalf("паттерн на незавершенном баре не должен сигналить, получили %+v", results)
	}

	// тот же паттерн на бар раньше виден бэктесту
	colors2 := make([]models.MDColor, 10)
	for i := range colors2 {
		colors2[i] = models.MDGreen
	}
	colors2[5], colors2[6] = models.MDRed, models.MDRed
	colors2[7], colors2[8] = models.MDGreen, models.MDGreen

	s2 := NewImpulseMACD()
	results := s2.Backtest(impulseBars(colors2))
	if len(results) != 1 || results[0].Suggestion != models.Long {
		t.Fatalf("ожидали один Long, получили %+v", results)
	}
}
