// Package trader превращает торговый сигнал в последовательность
// биржевых операций: займ, рыночный вход, bracket-выходы, отмена
// висящих ордеров, погашение займа.
package trader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoubleChuang/ccxt-bot/internal/exchange"
	"github.com/DoubleChuang/ccxt-bot/internal/metrics"
	"github.com/DoubleChuang/ccxt-bot/pkg/logger"
	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

// Trader исполнитель сигналов. В песочнице выполняет все расчеты и
// логирование, но не делает ни одного мутирующего вызова к бирже.
// Откатов нет: упавший шаг возвращает ошибку, уже выполненные шаги
// остаются в силе.
type Trader struct {
	gateway exchange.Gateway
	symbol  string
	sandbox bool
}

// NewTrader создает исполнителя для одного инструмента
func NewTrader(gateway exchange.Gateway, symbol string, sandbox bool) *Trader {
	return &Trader{
		gateway: gateway,
		symbol:  symbol,
		sandbox: sandbox,
	}
}

// FetchBalances возвращает балансы базового и котируемого активов
func (t *Trader) FetchBalances(ctx context.Context) (base, quote models.Balance, err error) {
	baseAsset, quoteAsset := exchange.SplitSymbol(t.symbol)

	balances, err := t.gateway.FetchBalance(ctx)
	if err != nil {
		return base, quote, err
	}

	base = balances[baseAsset]
	base.Asset = baseAsset
	quote = balances[quoteAsset]
	quote.Asset = quoteAsset
	return base, quote, nil
}

// CalcAmount считает доступный для торговли объем в базовом активе:
// чистый котируемый баланс по текущей цене плюс чистый базовый.
// Чистый баланс учитывает займы: total - debt.
func (t *Trader) CalcAmount(ctx context.Context) (float64, error) {
	base, quote, err := t.FetchBalances(ctx)
	if err != nil {
		return 0, err
	}

	ticker, err := t.gateway.FetchTicker(ctx, t.symbol)
	if err != nil {
		return 0, err
	}

	return quote.Net()/ticker.Close + base.Net(), nil
}

// Execute исполняет один сигнал, используя percentOfEquity процентов
// доступного объема для входов. Выходы всегда закрывают позицию
// целиком независимо от размера входа.
func (t *Trader) Execute(ctx context.Context, result models.StrategyResult, percentOfEquity int) error {
	if result.Suggestion == models.DoNothing {
		logger.Debug("стратегия предлагает ничего не делать 💎",
			zap.String("strategy", result.Strategy))
		return nil
	}

	available, err := t.CalcAmount(ctx)
	if err != nil {
		return fmt.Errorf("ошибка расчета объема: %w", err)
	}

	quantity, err := t.gateway.AmountToPrecision(ctx, t.symbol, available*float64(percentOfEquity)/100)
	if err != nil {
		return fmt.Errorf("ошибка округления объема: %w", err)
	}

	logger.Info("Исполнение сигнала",
		zap.String("strategy", result.Strategy),
		zap.String("suggestion", result.Suggestion.String()),
		zap.String("amount", quantity),
		zap.Float64p("stop_loss", result.StopPrice),
		zap.Float64p("take_profit", result.TpPrice),
		zap.String("sandbox", t.sandboxMarker()))

	switch result.Suggestion {
	case models.Long:
		return t.enterLong(ctx, result, quantity)
	case models.Short:
		return t.enterShort(ctx, result, quantity)
	case models.LongStopLoss, models.LongTakeProfit:
		return t.exitLong(ctx)
	case models.ShortStopLoss, models.ShortTakeProfit:
		return t.exitShort(ctx)
	default:
		// неизвестное направление не фатально: логируем и пропускаем
		logger.Error("Неизвестное направление сигнала",
			zap.String("suggestion", result.Suggestion.String()))
		return nil
	}
}

// enterLong рыночная покупка и bracket-выход: OCO если заданы обе
// цены, одиночный стоп-лимит если только стоп
func (t *Trader) enterLong(ctx context.Context, result models.StrategyResult, quantity string) error {
	if t.sandbox {
		return nil
	}

	order, err := t.gateway.CreateMarketOrder(ctx, t.symbol, models.SideBuy, quantity)
	if err != nil {
		return fmt.Errorf("ошибка рыночной покупки: %w", err)
	}
	metrics.OrdersTotal.WithLabelValues(t.symbol, models.SideBuy).Inc()
	logger.Info("[Buy]", zap.Int64("order_id", order.ID), zap.String("amount", quantity))

	return t.placeBracket(ctx, result, models.SideSell, quantity)
}

// enterShort займ базового актива, рыночная продажа и bracket-выход
func (t *Trader) enterShort(ctx context.Context, result models.StrategyResult, quantity string) error {
	if t.sandbox {
		return nil
	}

	baseAsset, _ := exchange.SplitSymbol(t.symbol)
	if err := t.gateway.Borrow(ctx, baseAsset, quantity); err != nil {
		return fmt.Errorf("ошибка займа: %w", err)
	}
	logger.Info("[Borrow]", zap.String("asset", baseAsset), zap.String("amount", quantity))

	order, err := t.gateway.CreateMarketOrder(ctx, t.symbol, models.SideSell, quantity)
	if err != nil {
		return fmt.Errorf("ошибка рыночной продажи: %w", err)
	}
	metrics.OrdersTotal.WithLabelValues(t.symbol, models.SideSell).Inc()
	logger.Info("[Sell]", zap.Int64("order_id", order.ID), zap.String("amount", quantity))

	return t.placeBracket(ctx, result, models.SideBuy, quantity)
}

// placeBracket ставит защитные ордера закрывающей стороной
func (t *Trader) placeBracket(ctx context.Context, result models.StrategyResult, side, quantity string) error {
	switch {
	case result.StopPrice != nil && result.TpPrice != nil:
		stopPrice, err := t.gateway.PriceToPrecision(ctx, t.symbol, *result.StopPrice)
		if err != nil {
			return fmt.Errorf("ошибка округления стоп-цены: %w", err)
		}
		tpPrice, err := t.gateway.PriceToPrecision(ctx, t.symbol, *result.TpPrice)
		if err != nil {
			return fmt.Errorf("ошибка округления цены тейк-профита: %w", err)
		}

		oco, err := t.gateway.CreateOCO(ctx, models.OCOParams{
			Symbol:         t.symbol,
			Side:           side,
			Quantity:       quantity,
			Price:          tpPrice,
			StopPrice:      stopPrice,
			StopLimitPrice: stopPrice,
			TimeInForce:    models.TimeInForceGTC,
		})
		if err != nil {
			return fmt.Errorf("ошибка размещения OCO: %w", err)
		}
		metrics.OrdersTotal.WithLabelValues(t.symbol, side).Inc()
		logger.Info("[OCO]", zap.Int64("order_id", oco.ID),
			zap.String("stop", stopPrice), zap.String("take_profit", tpPrice))

	case result.StopPrice != nil:
		stopPrice, err := t.gateway.PriceToPrecision(ctx, t.symbol, *result.StopPrice)
		if err != nil {
			return fmt.Errorf("ошибка округления стоп-цены: %w", err)
		}

		order, err := t.gateway.CreateStopLimitOrder(ctx, t.symbol, side, quantity, stopPrice)
		if err != nil {
			return fmt.Errorf("ошибка размещения стоп-лимита: %w", err)
		}
		metrics.OrdersTotal.WithLabelValues(t.symbol, side).Inc()
		logger.Info("[SL]", zap.Int64("order_id", order.ID), zap.String("stop", stopPrice))
	}

	return nil
}

// exitLong снимает висящие продажи (ноги bracket-ордеров) и продает
// весь свободный базовый баланс по рынку
func (t *Trader) exitLong(ctx context.Context) error {
	if t.sandbox {
		return nil
	}

	if err := t.cancelRestingOrders(ctx, models.SideSell); err != nil {
		return err
	}

	base, _, err := t.FetchBalances(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения баланса: %w", err)
	}

	quantity, err := t.gateway.AmountToPrecision(ctx, t.symbol, base.Free)
	if err != nil {
		return fmt.Errorf("ошибка округления объема: %w", err)
	}

	order, err := t.gateway.CreateMarketOrder(ctx, t.symbol, models.SideSell, quantity)
	if err != nil {
		return fmt.Errorf("ошибка закрытия лонга: %w", err)
	}
	metrics.OrdersTotal.WithLabelValues(t.symbol, models.SideSell).Inc()
	logger.Info("[Close Long]", zap.Int64("order_id", order.ID), zap.String("amount", quantity))

	return nil
}

// exitShort снимает висящие покупки, выкупает долг и гасит займ.
// Нулевой долг — не ошибка: выкуп и погашение просто пропускаются.
func (t *Trader) exitShort(ctx context.Context) error {
	if t.sandbox {
		return nil
	}

	if err := t.cancelRestingOrders(ctx, models.SideBuy); err != nil {
		return err
	}

	base, _, err := t.FetchBalances(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения баланса: %w", err)
	}

	if base.Debt <= 0 {
		logger.Info("Долг отсутствует, погашение не требуется",
			zap.String("asset", base.Asset))
		return nil
	}

	quantity, err := t.gateway.AmountToPrecision(ctx, t.symbol, base.Debt)
	if err != nil {
		return fmt.Errorf("ошибка округления объема: %w", err)
	}

	order, err := t.gateway.CreateMarketOrder(ctx, t.symbol, models.SideBuy, quantity)
	if err != nil {
		return fmt.Errorf("ошибка выкупа долга: %w", err)
	}
	metrics.OrdersTotal.WithLabelValues(t.symbol, models.SideBuy).Inc()
	logger.Info("[Close Short]", zap.Int64("order_id", order.ID), zap.String("amount", quantity))

	if err := t.gateway.Repay(ctx, base.Asset, quantity); err != nil {
		return fmt.Errorf("ошибка погашения займа: %w", err)
	}
	logger.Info("[Repay]", zap.String("asset", base.Asset), zap.String("amount", quantity))

	return nil
}

// cancelRestingOrders отменяет все висящие ордера заданной стороны
// по инструменту
func (t *Trader) cancelRestingOrders(ctx context.Context, side string) error {
	orders, err := t.gateway.FetchOpenOrders(ctx, t.symbol)
	if err != nil {
		return fmt.Errorf("ошибка получения открытых ордеров: %w", err)
	}

	for _, order := range orders {
		if order.Side != side {
			continue
		}
		if err := t.gateway.CancelOrder(ctx, t.symbol, order.ID); err != nil {
			return fmt.Errorf("ошибка отмены ордера: %w", err)
		}
		logger.Info("[Cancel]", zap.Int64("order_id", order.ID), zap.String("side", side))
	}

	return nil
}

func (t *Trader) sandboxMarker() string {
	if t.sandbox {
		return "🟢"
	}
	return "🔴"
}
