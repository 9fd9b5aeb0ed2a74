package reconcile

import "github.com/prometheus/client_golang/prometheus"

const (
	actionMount   = "mount"
	actionUnmount = "unmount"
	actionNone    = "none"

	outcomeChanged   = "changed"
	outcomeUnchanged = "unchanged"
	outcomeDryRun    = "dry_run"
	outcomeError     = "error"
)

var reconcilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vsphere_nfs_ds",
	Subsystem: "reconciler",
	Name:      "reconciles_total",
	Help:      "Reconcile invocations by action and outcome.",
}, []string{"action", "outcome"})

func init() {
	prometheus.MustRegister(reconcilesTotal)
}

func observe(action, outcome string) {
	reconcilesTotal.WithLabelValues(action, outcome).Inc()
}
