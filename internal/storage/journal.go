// Package storage журналирует эмитированные сигналы для разбора
// постфактум. Журнал не участвует в торговых решениях.
package storage

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/DoubleChuang/ccxt-bot/internal/config"
	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

// Journal приемник записей о сигналах
type Journal interface {
	SaveSignal(ctx context.Context, symbol, timeframe string, result models.StrategyResult) error
	Close()
}

// InfluxJournal реализует Journal поверх InfluxDB
type InfluxJournal struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	org      string
	bucket   string
}

// NewInfluxJournal создает журнал и проверяет соединение
func NewInfluxJournal(cfg config.StorageConfig) (*InfluxJournal, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	return &InfluxJournal{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// SaveSignal пишет сигнал асинхронно через write API
func (j *InfluxJournal) SaveSignal(ctx context.Context, symbol, timeframe string, result models.StrategyResult) error {
	fields := map[string]interface{}{
		"msg": result.Msg,
	}
	if result.StopPrice != nil {
		fields["stop_price"] = *result.StopPrice
	}
	if result.TpPrice != nil {
		fields["tp_price"] = *result.TpPrice
	}

	point := influxdb2.NewPoint("signal",
		map[string]string{
			"strategy":   result.Strategy,
			"symbol":     symbol,
			"timeframe":  timeframe,
			"suggestion": result.Suggestion.String(),
		},
		fields,
		result.Time,
	)
	j.writeAPI.WritePoint(point)
	return nil
}

// Close сбрасывает буфер записи и закрывает соединение
func (j *InfluxJournal) Close() {
	j.writeAPI.Flush()
	j.client.Close()
}

// NoopJournal используется при выключенном хранилище
type NoopJournal struct{}

func (NoopJournal) SaveSignal(context.Context, string, string, models.StrategyResult) error {
	return nil
}

func (NoopJournal) Close() {}
