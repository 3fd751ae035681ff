package models

import (
	"time"
)

// Candle представляет свечу OHLCV
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// MDColor класс цвета момента ImpulseMACD
type MDColor string

const (
	MDLime   MDColor = "lime"
	MDGreen  MDColor = "green"
	MDRed    MDColor = "red"
	MDOrange MDColor = "orange"
)

// Bar свеча, обогащенная рассчитанными индикаторами.
// Фиксированная форма записи: стратегии читают только именованные поля,
// ядро их никогда не мутирует.
type Bar struct {
	Candle

	RSI        float64
	EMA        float64
	KdjK       float64
	KdjD       float64
	KdjJ       float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	ATR        float64
	MD         float64 // выход hlc3 за полосу SMMA
	SB         float64 // сигнальная SMA по MD
	SH         float64 // гистограмма MD - SB
	MDC        MDColor
}

// Suggestion направление торгового сигнала
type Suggestion int

const (
	DoNothing Suggestion = iota
	Long
	Short
	LongStopLoss
	LongTakeProfit
	ShortStopLoss
	ShortTakeProfit
)

// String возвращает имя направления
func (s Suggestion) String() string {
	switch s {
	case Long:
		return "Long"
	case Short:
		return "Short"
	case LongStopLoss:
		return "Long_SL"
	case LongTakeProfit:
		return "Long_TP"
	case ShortStopLoss:
		return "Short_SL"
	case ShortTakeProfit:
		return "Short_TP"
	case DoNothing:
		return "DoNothing"
	}
	return "Unknown"
}

// StrategyResult результат одного прогона стратегии.
// Неизменяемое значение: производится стратегией, потребляется
// исполнителем ордеров ровно один раз.
type StrategyResult struct {
	Strategy   string
	Suggestion Suggestion
	Msg        string
	StopPrice  *float64
	TpPrice    *float64
	Time       time.Time
}

// Balance баланс одного актива на маржинальном счете
type Balance struct {
	Asset string
	Free  float64
	Used  float64
	Total float64
	Debt  float64
}

// Net чистый баланс: total - debt
func (b Balance) Net() float64 {
	return b.Total - b.Debt
}

// Ticker последняя цена инструмента
type Ticker struct {
	Symbol string
	Close  float64
}

// Стороны и типы ордеров, как их ожидает биржа
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeMarket        = "MARKET"
	OrderTypeStopLossLimit = "STOP_LOSS_LIMIT"

	TimeInForceGTC = "GTC"
)

// Order биржевой ордер (размещенный или висящий)
type Order struct {
	ID     int64
	Symbol string
	Side   string
	Type   string
	Price  string
	Amount string
	Status string
}

// OCOParams параметры bracket-ордера one-cancels-other:
// лимитная нога тейк-профита и стоп-лимитная нога стоп-лосса.
type OCOParams struct {
	Symbol         string
	Side           string
	Quantity       string
	Price          string
	StopPrice      string
	StopLimitPrice string
	TimeInForce    string
}
