package exchange

import (
	"context"

	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

// Gateway возможности биржи, которые потребляет ядро. Все вызовы
// блокирующие; округление до точности инструмента делегируется бирже.
type Gateway interface {
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	FetchBalance(ctx context.Context) (map[string]models.Balance, error)
	FetchTicker(ctx context.Context, symbol string) (models.Ticker, error)

	CreateMarketOrder(ctx context.Context, symbol, side, quantity string) (models.Order, error)
	CreateStopLimitOrder(ctx context.Context, symbol, side, quantity, stopPrice string) (models.Order, error)
	CreateOCO(ctx context.Context, params models.OCOParams) (models.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string) ([]models.Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error

	Borrow(ctx context.Context, asset, amount string) error
	Repay(ctx context.Context, asset, amount string) error

	AmountToPrecision(ctx context.Context, symbol string, amount float64) (string, error)
	PriceToPrecision(ctx context.Context, symbol string, price float64) (string, error)
}
