// Package indicator обогащает свечи рассчитанными индикаторами.
// Здесь вся математика; стратегии читают готовые поля Bar.
package indicator

import (
	"github.com/markcheno/go-talib"

	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

const (
	rsiLength  = 14
	emaLength  = 21
	kdjLength  = 9
	kdjSignal  = 3
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	maLength   = 34 // ImpulseMACD
	sbLength   = 9
	atrLength  = 14
)

// Smma сглаженная скользящая средняя: SMA как затравка,
// дальше рекуррентно (prev*(n-1) + src) / n
func Smma(src []float64, length int) []float64 {
	smma := talib.Sma(src, length)
	out := make([]float64, len(smma))
	copy(out, smma)
	for i := length; i < len(src); i++ {
		out[i] = (out[i-1]*float64(length-1) + src[i]) / float64(length)
	}
	return out
}

// Zlema EMA с компенсацией запаздывания: ema1 + (ema1 - ema2)
func Zlema(src []float64, length int) []float64 {
	ema1 := talib.Ema(src, length)
	ema2 := talib.Ema(ema1, length)
	out := make([]float64, len(src))
	for i := range src {
		out[i] = ema1[i] + (ema1[i] - ema2[i])
	}
	return out
}

// Enrich рассчитывает индикаторы по свечам и возвращает
// не более tail последних баров фиксированной формы.
func Enrich(candles []models.Candle, tail int) []models.Bar {
	n := len(candles)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	src := make([]float64, n) // hlc3

	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		src[i] = (c.High + c.Low + c.Close) / 3
	}

	rsi := talib.Rsi(closes, rsiLength)
	ema := talib.Ema(closes, emaLength)
	kdjK, kdjD := talib.Stoch(highs, lows, closes, kdjLength, kdjSignal, talib.SMA, kdjSignal, talib.SMA)
	macd, macdSig, macdHist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	atr := talib.Atr(highs, lows, closes, atrLength)

	// ImpulseMACD: полоса из SMMA по high/low и ZLEMA по hlc3
	hi := Smma(highs, maLength)
	lo := Smma(lows, maLength)
	mi := Zlema(src, maLength)

	md := make([]float64, n)
	mdc := make([]models.MDColor, n)
	for i := 0; i < n; i++ {
		switch {
		case mi[i] > hi[i]:
			md[i] = mi[i] - hi[i]
		case mi[i] < lo[i]:
			md[i] = mi[i] - lo[i]
		default:
			md[i] = 0
		}

		if src[i] > mi[i] {
			if src[i] > hi[i] {
				mdc[i] = models.MDLime
			} else {
				mdc[i] = models.MDGreen
			}
		} else {
			if src[i] < lo[i] {
				mdc[i] = models.MDRed
			} else {
				mdc[i] = models.MDOrange
			}
		}
	}

	// сигнальная линия и гистограмма по выходу за полосу
	sb := talib.Sma(md, sbLength)

	bars := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = models.Bar{
			Candle:     candles[i],
			RSI:        rsi[i],
			EMA:        ema[i],
			KdjK:       kdjK[i],
			KdjD:       kdjD[i],
			KdjJ:       3*kdjK[i] - 2*kdjD[i],
			MACD:       macd[i],
			MACDSignal: macdSig[i],
			MACDHist:   macdHist[i],
			ATR:        atr[i],
			MD:         md[i],
			SB:         sb[i],
			SH:         md[i] - sb[i],
			MDC:        mdc[i],
		}
	}

	if tail > 0 && n > tail {
		bars = bars[n-tail:]
	}
	return bars
}
