package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Claim outcome label values.
const (
	OutcomeClaimed     = "claimed"
	OutcomeRateLimited = "rate_limited"
	OutcomeNoCoupons   = "no_coupons"
	OutcomeContention  = "contention"
	OutcomeError       = "error"
)

var (
	// ClaimsTotal counts claim attempts by outcome.
	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_claims_total",
			Help: "Total number of coupon claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	// StampConflictsTotal counts compare-and-swap stamps lost to a concurrent claim.
	StampConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coupon_stamp_conflicts_total",
			Help: "Total number of coupon stamp attempts lost to a concurrent claim",
		},
	)

	// ClaimRecordFailuresTotal counts allocations whose claim row could not be written.
	ClaimRecordFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coupon_claim_record_failures_total",
			Help: "Total number of successful allocations whose claim history insert failed",
		},
	)

	// AdminOperationsTotal counts admin mutations by operation.
	AdminOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_admin_operations_total",
			Help: "Total number of admin coupon operations by operation",
		},
		[]string{"operation"},
	)
)

// Register adds the service collectors plus the Go and process collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		ClaimsTotal,
		StampConflictsTotal,
		ClaimRecordFailuresTotal,
		AdminOperationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
