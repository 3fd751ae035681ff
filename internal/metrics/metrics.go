// Package metrics экспортирует счетчики работы бота для prometheus
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ccxt_bot_signals_total", Help: "Emitted strategy signals"},
		[]string{"strategy", "suggestion"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ccxt_bot_orders_total", Help: "Orders submitted to the exchange"},
		[]string{"symbol", "side"},
	)
	FetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ccxt_bot_fetch_retries_total", Help: "Candle fetch retries"},
	)
	ExecutionErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ccxt_bot_execution_errors_total", Help: "Failed order executions"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, OrdersTotal, FetchRetriesTotal, ExecutionErrorsTotal)
}

// Serve поднимает /metrics на отдельном HTTP-сервере
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
