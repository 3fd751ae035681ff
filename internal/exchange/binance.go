package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/DoubleChuang/ccxt-bot/internal/config"
	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

// BinanceGateway клиент маржинальной торговли на Binance
type BinanceGateway struct {
	client *binance.Client

	mu      sync.Mutex
	filters map[string]symbolFilters // кеш фильтров точности по инструменту
}

type symbolFilters struct {
	stepSize string
	tickSize string
}

// NewBinanceGateway создает новый клиент Binance
func NewBinanceGateway(cfg config.BinanceConfig) (*BinanceGateway, error) {
	if cfg.Testnet {
		binance.UseTestnet = true
	}
	client := binance.NewClient(cfg.APIKey, cfg.APISecret)

	return &BinanceGateway{
		client:  client,
		filters: make(map[string]symbolFilters),
	}, nil
}

// MarketID переводит символ вида ETH/USDT в биржевой идентификатор ETHUSDT
func MarketID(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

// SplitSymbol разбивает символ на базовый и котируемый активы
func SplitSymbol(symbol string) (base, quote string) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 {
		return symbol, ""
	}
	return parts[0], parts[1]
}

// FetchOHLCV получает исторические свечи
func (g *BinanceGateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	klines, err := g.client.NewKlinesService().
		Symbol(MarketID(symbol)).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	candles := make([]models.Candle, len(klines))
	for i, k := range klines {
		candles[i] = models.Candle{
			Symbol:    symbol,
			Interval:  timeframe,
			OpenTime:  time.Unix(k.OpenTime/1000, 0).UTC(),
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
			CloseTime: time.Unix(k.CloseTime/1000, 0).UTC(),
		}
	}

	return candles, nil
}

// FetchBalance получает балансы маржинального счета по всем активам
func (g *BinanceGateway) FetchBalance(ctx context.Context) (map[string]models.Balance, error) {
	account, err := g.client.NewGetMarginAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}

	balances := make(map[string]models.Balance, len(account.UserAssets))
	for _, asset := range account.UserAssets {
		free := parseFloat(asset.Free)
		locked := parseFloat(asset.Locked)
		borrowed := parseFloat(asset.Borrowed)
		interest := parseFloat(asset.Interest)

		balances[asset.Asset] = models.Balance{
			Asset: asset.Asset,
			Free:  free,
			Used:  locked,
			Total: free + locked,
			Debt:  borrowed + interest,
		}
	}

	return balances, nil
}

// FetchTicker получает последнюю цену инструмента
func (g *BinanceGateway) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	prices, err := g.client.NewListPricesService().
		Symbol(MarketID(symbol)).
		Do(ctx)
	if err != nil {
		return models.Ticker{}, fmt.Errorf("ошибка получения цены: %w", err)
	}
	if len(prices) == 0 {
		return models.Ticker{}, fmt.Errorf("не найдена цена для %s", symbol)
	}

	return models.Ticker{
		Symbol: symbol,
		Close:  parseFloat(prices[0].Price),
	}, nil
}

// CreateMarketOrder размещает рыночный маржинальный ордер
func (g *BinanceGateway) CreateMarketOrder(ctx context.Context, symbol, side, quantity string) (models.Order, error) {
	resp, err := g.client.NewCreateMarginOrderService().
		Symbol(MarketID(symbol)).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeMarket).
		Quantity(quantity).
		Do(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("ошибка размещения рыночного ордера: %w", err)
	}

	return models.Order{
		ID:     resp.OrderID,
		Symbol: symbol,
		Side:   side,
		Type:   models.OrderTypeMarket,
		Amount: quantity,
		Status: string(resp.Status),
	}, nil
}

// CreateStopLimitOrder размещает одиночный стоп-лимитный ордер
func (g *BinanceGateway) CreateStopLimitOrder(ctx context.Context, symbol, side, quantity, stopPrice string) (models.Order, error) {
	resp, err := g.client.NewCreateMarginOrderService().
		Symbol(MarketID(symbol)).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeStopLossLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(quantity).
		Price(stopPrice).
		StopPrice(stopPrice).
		Do(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("ошибка размещения стоп-лимитного ордера: %w", err)
	}

	return models.Order{
		ID:     resp.OrderID,
		Symbol: symbol,
		Side:   side,
		Type:   models.OrderTypeStopLossLimit,
		Price:  stopPrice,
		Amount: quantity,
		Status: string(resp.Status),
	}, nil
}

// CreateOCO размещает bracket-ордер one-cancels-other:
// тейк-профит лимиткой и стоп-лосс стоп-лимиткой
func (g *BinanceGateway) CreateOCO(ctx context.Context, params models.OCOParams) (models.Order, error) {
	resp, err := g.client.NewCreateMarginOCOService().
		Symbol(MarketID(params.Symbol)).
		Side(binance.SideType(params.Side)).
		Quantity(params.Quantity).
		Price(params.Price).
		StopPrice(params.StopPrice).
		StopLimitPrice(params.StopLimitPrice).
		StopLimitTimeInForce(binance.TimeInForceType(params.TimeInForce)).
		Do(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("ошибка размещения OCO: %w", err)
	}

	return models.Order{
		ID:     resp.OrderListID,
		Symbol: params.Symbol,
		Side:   params.Side,
		Price:  params.Price,
		Amount: params.Quantity,
	}, nil
}

// FetchOpenOrders получает висящие маржинальные ордера по инструменту
func (g *BinanceGateway) FetchOpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	raw, err := g.client.NewListMarginOpenOrdersService().
		Symbol(MarketID(symbol)).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения открытых ордеров: %w", err)
	}

	orders := make([]models.Order, len(raw))
	for i, o := range raw {
		orders[i] = models.Order{
			ID:     o.OrderID,
			Symbol: symbol,
			Side:   string(o.Side),
			Type:   string(o.Type),
			Price:  o.Price,
			Amount: o.OrigQuantity,
			Status: string(o.Status),
		}
	}

	return orders, nil
}

// CancelOrder отменяет маржинальный ордер
func (g *BinanceGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	_, err := g.client.NewCancelMarginOrderService().
		Symbol(MarketID(symbol)).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка отмены ордера %d: %w", orderID, err)
	}
	return nil
}

// Borrow берет маржинальный займ в указанном активе
func (g *BinanceGateway) Borrow(ctx context.Context, asset, amount string) error {
	_, err := g.client.NewMarginLoanService().
		Asset(asset).
		Amount(amount).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка займа %s %s: %w", amount, asset, err)
	}
	return nil
}

// Repay возвращает маржинальный займ
func (g *BinanceGateway) Repay(ctx context.Context, asset, amount string) error {
	_, err := g.client.NewMarginRepayService().
		Asset(asset).
		Amount(amount).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка погашения займа %s %s: %w", amount, asset, err)
	}
	return nil
}

// AmountToPrecision округляет количество вниз до шага лота инструмента
func (g *BinanceGateway) AmountToPrecision(ctx context.Context, symbol string, amount float64) (string, error) {
	filters, err := g.symbolFilters(ctx, symbol)
	if err != nil {
		return "", err
	}
	return RoundToStep(amount, filters.stepSize)
}

// PriceToPrecision округляет цену вниз до шага цены инструмента
func (g *BinanceGateway) PriceToPrecision(ctx context.Context, symbol string, price float64) (string, error) {
	filters, err := g.symbolFilters(ctx, symbol)
	if err != nil {
		return "", err
	}
	return RoundToStep(price, filters.tickSize)
}

// symbolFilters подтягивает фильтры LOT_SIZE/PRICE_FILTER один раз
// и кеширует на время жизни процесса
func (g *BinanceGateway) symbolFilters(ctx context.Context, symbol string) (symbolFilters, error) {
	id := MarketID(symbol)

	g.mu.Lock()
	cached, ok := g.filters[id]
	g.mu.Unlock()
	if ok {
		return cached, nil
	}

	info, err := g.client.NewExchangeInfoService().Symbol(id).Do(ctx)
	if err != nil {
		return symbolFilters{}, fmt.Errorf("ошибка получения информации об инструменте: %w", err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != id {
			continue
		}
		filters := symbolFilters{}
		if lot := s.LotSizeFilter(); lot != nil {
			filters.stepSize = lot.StepSize
		}
		if pf := s.PriceFilter(); pf != nil {
			filters.tickSize = pf.TickSize
		}

		g.mu.Lock()
		g.filters[id] = filters
		g.mu.Unlock()
		return filters, nil
	}

	return symbolFilters{}, fmt.Errorf("инструмент %s не найден в exchange info", symbol)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
