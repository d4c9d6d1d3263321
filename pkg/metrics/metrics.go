// Package metrics 提供 Prometheus helper，包含服务与业务指标模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/optionamm/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 期权创建计数
	OptionsCreated prometheus.Counter
	// 期权购买计数
	OptionPurchases prometheus.Counter
	// 已售出手数
	LotsSold prometheus.Counter
	// 权利金成交额
	PremiumVolume prometheus.Counter

	// 流动性注入总额
	LiquidityAdded prometheus.Counter
	// 流动性赎回总额
	LiquidityRemoved prometheus.Counter
	// 池内流动性余额
	PoolLiquidity prometheus.Gauge

	// 结算计数（按是否价内区分）
	SettlementsTotal *prometheus.CounterVec
	// 结算支付总额
	PayoutVolume prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		OptionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "options_created_total",
			Help:      "Total options listed on the book",
		}),
		OptionPurchases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "option_purchases_total",
			Help:      "Total option purchase operations",
		}),
		LotsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "lots_sold_total",
			Help:      "Total lots sold across all options",
		}),
		PremiumVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "premium_volume_total",
			Help:      "Total premium collected into the pool",
		}),

		LiquidityAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "liquidity_added_total",
			Help:      "Total liquidity contributed by providers",
		}),
		LiquidityRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "liquidity_removed_total",
			Help:      "Total liquidity withdrawn by providers",
		}),
		PoolLiquidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "pool_liquidity",
			Help:      "Current aggregate pool liquidity",
		}),

		SettlementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "settlements_total",
			Help:      "Total settlements, partitioned by moneyness",
		}, []string{"in_the_money"}),
		PayoutVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionamm",
			Subsystem: serviceName,
			Name:      "payout_volume_total",
			Help:      "Total payout released from the pool",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OptionsCreated,
		m.OptionPurchases,
		m.LotsSold,
		m.PremiumVolume,
		m.LiquidityAdded,
		m.LiquidityRemoved,
		m.PoolLiquidity,
		m.SettlementsTotal,
		m.PayoutVolume,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "starting metrics server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(context.Background(), "metrics server stopped", "error", err)
		}
	}()
}
