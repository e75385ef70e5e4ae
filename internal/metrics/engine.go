package metrics

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineCollector exposes auction engine metrics through the default
// prometheus registry, scraped at /metrics.
type EngineCollector struct {
	bidsAccepted    *prometheus.CounterVec
	bidsRejected    *prometheus.CounterVec
	bidAmounts      prometheus.Histogram
	lotsFinalized   *prometheus.CounterVec
	salePrices      prometheus.Histogram
	lotDuration     prometheus.Histogram
	countdownResets *prometheus.CounterVec
	activeAuctions  prometheus.Gauge
}

// NewEngineCollector registers the engine collectors. Call once per process;
// promauto panics on duplicate registration.
func NewEngineCollector() *EngineCollector {
	return &EngineCollector{
		bidsAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arenabid_bids_accepted_total",
			Help: "Accepted bids per auction.",
		}, []string{"auction_id"}),
		bidsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arenabid_bids_rejected_total",
			Help: "Rejected bids by error code.",
		}, []string{"code"}),
		bidAmounts: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arenabid_bid_amount",
			Help:    "Accepted bid amounts.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}),
		lotsFinalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arenabid_lots_finalized_total",
			Help: "Finalized lots by outcome.",
		}, []string{"status"}),
		salePrices: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arenabid_lot_sale_price",
			Help:    "Final prices of sold lots.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}),
		lotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arenabid_lot_on_block_seconds",
			Help:    "Time each lot spent on the block.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		countdownResets: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arenabid_countdown_resets_total",
			Help: "Countdown resets triggered by accepted bids.",
		}, []string{"auction_id"}),
		activeAuctions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "arenabid_active_auctions",
			Help: "Auctions with a live in-memory session.",
		}),
	}
}

func (c *EngineCollector) RecordBidAccepted(auctionID uuid.UUID, amount float64) {
	c.bidsAccepted.WithLabelValues(auctionID.String()).Inc()
	c.bidAmounts.Observe(amount)
}

func (c *EngineCollector) RecordBidRejected(code string) {
	c.bidsRejected.WithLabelValues(code).Inc()
}

func (c *EngineCollector) RecordLotFinalized(status string, price float64, duration time.Duration) {
	c.lotsFinalized.WithLabelValues(status).Inc()
	if status == "sold" {
		c.salePrices.Observe(price)
	}
	c.lotDuration.Observe(duration.Seconds())
}

func (c *EngineCollector) RecordCountdownReset(auctionID uuid.UUID) {
	c.countdownResets.WithLabelValues(auctionID.String()).Inc()
}

func (c *EngineCollector) SetActiveAuctions(n int) {
	c.activeAuctions.Set(float64(n))
}
