package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PhotogenMetrics 生成/钱包服务指标
type PhotogenMetrics struct {
	// 生成相关指标
	GenerationTotal    *prometheus.CounterVec   // 生成请求总数（按风格、结果）
	GenerationDuration *prometheus.HistogramVec // 生成各阶段耗时（按阶段）

	// 预扣/退还相关指标
	ReserveTotal      *prometheus.CounterVec // 预扣总数（按账户类型、结果）
	RefundTotal       *prometheus.CounterVec // 退还总数（按账户类型、结果）
	RefundFailedTotal prometheus.Counter     // 退还失败总数（需人工对账）

	// 限流相关指标
	RateLimitCheckTotal *prometheus.CounterVec // 每日上限检查总数（按结果）

	// 划拨/充值相关指标
	TopUpAmount        *prometheus.CounterVec // 充值信用点总量（按账户类型）
	AllocationTotal    *prometheus.CounterVec // 划拨总数（按结果）
	AllocationAmount   prometheus.Counter     // 划拨信用点总量
	AllocationDuration prometheus.Histogram   // 划拨耗时

	// 余额相关指标
	BalanceQueryTotal prometheus.Counter   // 余额查询总数
	BalanceLowAlert   *prometheus.GaugeVec // 余额不足告警（按账户类型）

	// 对账相关指标
	ReconcileTotal *prometheus.CounterVec // 对账总数（按结果）
	ReconcileDrift prometheus.Gauge       // 最近一轮对账发现的账实不符数

	// 分布式锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时
}

// NewPhotogenMetrics 创建指标
func NewPhotogenMetrics() *PhotogenMetrics {
	return &PhotogenMetrics{
		GenerationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photogen_generation_total",
				Help: "Total number of generation requests",
			},
			[]string{"style", "result"}, // result: committed/refunded/rate_limited/no_credits/refund_failed
		),
		GenerationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "photogen_generation_duration_seconds",
				Help:    "Duration of generation request stages",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"stage"}, // stage: reserve/invoke/total
		),

		ReserveTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photogen_reserve_total",
				Help: "Total number of credit reservations",
			},
			[]string{"kind", "result"}, // result: success/insufficient
		),
		RefundTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photogen_refund_total",
				Help: "Total number of credit refunds",
			},
			[]string{"kind", "result"},
		),
		RefundFailedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "photogen_refund_failed_total",
				Help: "Total number of failed refunds requiring manual reconciliation",
			},
		),

		RateLimitCheckTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photogen_rate_limit_check_total",
				Help: "Total number of daily cap checks",
			},
			[]string{"result"}, // result: allowed/denied
		),

		TopUpAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photogen_topup_amount_total",
				Help: "Total credits topped up",
			},
			[]string{"kind"},
		),
		AllocationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photogen_allocation_total",
				Help: "Total number of partner-to-event allocations",
			},
			[]string{"result"}, // result: success/insufficient/error
		),
		AllocationAmount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "photogen_allocation_amount_total",
				Help: "Total credits allocated to events",
			},
		),
		AllocationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "photogen_allocation_duration_seconds",
				Help:    "Duration of allocation operations",
				Buckets: prometheus.DefBuckets,
			},
		),

		BalanceQueryTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "photogen_balance_query_total",
				Help: "Total number of balance queries",
			},
		),
		BalanceLowAlert: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "photogen_balance_low_alert",
				Help: "Accounts with available credits below threshold",
			},
			[]string{"kind"},
		),

		ReconcileTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photogen_reconcile_total",
				Help: "Total number of ledger reconciliation checks",
			},
			[]string{"result"}, // result: consistent/drift
		),
		ReconcileDrift: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "photogen_reconcile_drift",
				Help: "Accounts with counter/ledger drift found in the last reconciliation run",
			},
		),

		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photogen_lock_acquire_total",
				Help: "Total number of lock acquisition attempts",
			},
			[]string{"result"}, // result: success/failed
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "photogen_lock_acquire_duration_seconds",
				Help:    "Duration of lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

// 全局指标实例
var defaultMetrics *PhotogenMetrics

// InitMetrics 初始化全局指标
func InitMetrics() {
	defaultMetrics = NewPhotogenMetrics()
}

// GetMetrics 获取全局指标实例
func GetMetrics() *PhotogenMetrics {
	if defaultMetrics == nil {
		InitMetrics()
	}
	return defaultMetrics
}
