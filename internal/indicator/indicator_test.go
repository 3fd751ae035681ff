package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

func testCandles(n int) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := range candles {
		// синтетическая волна вокруг 100
		c := 100 + 10*math.Sin(float64(i)/7)
		candles[i] = models.Candle{
			Symbol:    "ETH/USDT",
			Interval:  "4h",
			OpenTime:  base.Add(time.Duration(i) * 4 * time.Hour),
			Open:      c - 0.5,
			High:      c + 2,
			Low:       c - 2,
			Close:     c,
			Volume:    1000,
			CloseTime: base.Add(time.Duration(i+1) * 4 * time.Hour),
		}
	}
	return candles
}

func TestSmmaConstantSeries(t *testing.T) {
	src := make([]float64, 50)
	for i := range src {
		src[i] = 5
	}
	out := Smma(src, 3)
	if math.Abs(out[len(out)-1]-5) > 1e-9 {
		t.Fatalf("SMMA константной серии должна быть константой, получили %v", out[len(out)-1])
	}
	if len(out) != len(src) {
		t.Fatalf("SMMA должна сохранять длину серии")
	}
}

func TestZlemaConstantSeries(t *testing.T) {
	src := make([]float64, 200)
	for i := range src {
		src[i] = 7
	}
	out := Zlema(src, 34)
	if math.Abs(out[len(out)-1]-7) > 1e-6 {
		t.Fatalf("ZLEMA константной серии должна сходиться к константе, получили %v", out[len(out)-1])
	}
}

func TestEnrichTail(t *testing.T) {
	bars := Enrich(testCandles(300), 200)
	if len(bars) != 200 {
		t.Fatalf("ожидали хвост из 200 баров, получили %d", len(bars))
	}
	// хвост должен быть хвостом: последний бар исходной серии
	if bars[len(bars)-1].OpenTime != testCandles(300)[299].OpenTime {
		t.Fatalf("последний бар не совпадает с последней свечой")
	}
}

func TestEnrichFields(t *testing.T) {
	bars := Enrich(testCandles(300), 200)
	last := bars[len(bars)-1]

	if last.ATR <= 0 {
		t.Fatalf("ATR на прогретой серии должен быть положительным, получили %v", last.ATR)
	}
	if last.KdjK < 0 || last.KdjK > 100 {
		t.Fatalf("K должен лежать в [0,100], получили %v", last.KdjK)
	}
	if math.Abs(last.KdjJ-(3*last.KdjK-2*last.KdjD)) > 1e-9 {
		t.Fatalf("J должен равняться 3K-2D")
	}
	switch last.MDC {
	case models.MDLime, models.MDGreen, models.MDRed, models.MDOrange:
	default:
		t.Fatalf("mdc должен быть одним из четырех цветов, получили %q", last.MDC)
	}
	if last.EMA <= 0 || last.RSI <= 0 {
		t.Fatalf("EMA и RSI должны быть рассчитаны: ema=%v rsi=%v", last.EMA, last.RSI)
	}
}

func TestEnrichImpulseHistogram(t *testing.T) {
	bars := Enrich(testCandles(300), 200)

	sawNonZero := false
	for _, b := range bars[50:] {
		if math.Abs(b.SH-(b.MD-b.SB)) > 1e-9 {
			t.Fatalf("SH должен равняться MD-SB: md=%v sb=%v sh=%v", b.MD, b.SB, b.SH)
		}
		if b.MD != 0 {
			sawNonZero = true
		}
	}
	if !sawNonZero {
		t.Fatalf("MD на волновой серии должен выходить за полосу хотя бы раз")
	}
}

func TestEnrichKeepsCandle(t *testing.T) {
	candles := testCandles(60)
	bars := Enrich(candles, 0)
	if len(bars) != len(candles) {
		t.Fatalf("без хвоста длина сохраняется")
	}
	if bars[10].Close != candles[10].Close || bars[10].OpenTime != candles[10].OpenTime {
		t.Fatalf("бар должен нести исходную свечу без изменений")
	}
}
