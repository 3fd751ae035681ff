package strategy

import (
	"testing"
	"time"

	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

// kdBars строит серию баров с заданными значениями K
func kdBars(ks []float64) []models.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(ks))
	for i, k := range ks {
		bars[i] = models.Bar{
			Candle: models.Candle{
				OpenTime: base.Add(time.Duration(i) * 4 * time.Hour),
				Open:     100 + float64(i),
				High:     110 + float64(i),
				Low:      90 + float64(i),
				Close:    105 + float64(i),
			},
			KdjK: k,
		}
	}
	return bars
}

func TestKD50CrossUp(t *testing.T) {
	s := NewKD50()
	// последний элемент — незавершенный бар, сигналится индекс 1
	bars := kdBars([]float64{40, 55, 48})

	results := s.Run(bars)
	if len(results) != 1 {
		t.Fatalf("ожидали 1 результат, получили %d", len(results))
	}
	r := results[0]
	if r.Suggestion != models.Long {
		t.Fatalf("ожидали Long, получили %s", r.Suggestion)
	}
	if r.StopPrice == nil || *r.StopPrice != bars[1].Low {
		t.Fatalf("стоп должен быть low сигнального бара %.2f, получили %v", bars[1].Low, r.StopPrice)
	}
	if !r.Time.Equal(bars[1].OpenTime) {
		t.Fatalf("время сигнала должно быть временем сигнального бара")
	}
}

func TestKD50CrossDown(t *testing.T) {
	s := NewKD50()
	bars := kdBars([]float64{60, 45, 50})

	results := s.Run(bars)
	if len(results) != 1 || results[0].Suggestion != models.Short {
		t.Fatalf("ожидали один Short, получили %+v", results)
	}
	if *results[0].StopPrice != bars[1].High {
		t.Fatalf("стоп шорта должен быть high сигнального бара")
	}
}

func TestKD50NoCross(t *testing.T) {
	for _, ks := range [][]float64{
		{40, 45, 60}, // ниже 50
		{60, 55, 40}, // выше 50
		{50, 55, 60}, // prev ровно 50: не пересечение
	} {
		s := NewKD50()
		if results := s.Run(kdBars(ks)); len(results) != 0 {
			t.Fatalf("K=%v: ожидали отсутствие сигнала, получили %+v", ks, results)
		}
	}
}

func TestKD50Dedup(t *testing.T) {
	s := NewKD50()
	bars := kdBars([]float64{40, 55, 48})

	if results := s.Run(bars); len(results) != 1 {
		t.Fatalf("первый вызов должен эмитировать сигнал")
	}
	// то же окно второй раз: пересечение не новее запомненного
	if results := s.Run(bars); len(results) != 0 {
		t.Fatalf("повторный вызов не должен эмитировать сигнал")
	}
}

func TestKD50BacktestCardinality(t *testing.T) {
	s := NewKD50()
	ks := []float64{40, 55, 45, 60, 42, 58}
	bars := kdBars(ks)

	results := s.Backtest(bars)
	if len(results) != len(bars)-1 {
		t.Fatalf("бэктест по %d барам должен вернуть %d результатов, получили %d",
			len(bars), len(bars)-1, len(results))
	}

	want := []models.Suggestion{models.Long, models.Short, models.Long, models.Short, models.Long}
	for i, r := range results {
		if r.Suggestion != want[i] {
			t.Fatalf("индекс %d: ожидали %s, получили %s", i, want[i], r.Suggestion)
		}
	}
}

func TestKD50BacktestDedupExplicitDoNothing(t *testing.T) {
	s := NewKD50()
	bars := kdBars([]float64{40, 55, 48})

	// живой прогон запоминает сигнал бара 1
	if results := s.Run(bars); len(results) != 1 {
		t.Fatalf("живой прогон должен эмитировать сигнал")
	}

	// бэктест по тому же окну: подавленный кандидат остается
	// явным DoNothing, кардинальность не меняется
	results := s.Backtest(bars)
	if len(results) != 2 {
		t.Fatalf("ожидали 2 результата, получили %d", len(results))
	}
	if results[0].Suggestion != models.DoNothing {
		t.Fatalf("подавленный кандидат должен быть DoNothing, получили %s", results[0].Suggestion)
	}
}
