// Package metrics exposes aggregate Prometheus counters. Per-request
// detail lives in the audit trail; these are for dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verifyAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sealdrop_verify_attempts_total",
		Help: "Verification attempts by outcome reason.",
	}, []string{"outcome"})

	filesShared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealdrop_files_shared_total",
		Help: "Files shared.",
	})

	filesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealdrop_files_downloaded_total",
		Help: "Files downloaded after successful verification.",
	})
)

// ObserveVerify counts one verification attempt with its outcome: either
// "verified" or an audit reason code.
func ObserveVerify(outcome string) {
	verifyAttempts.WithLabelValues(outcome).Inc()
}

// ObserveShare counts one shared file.
func ObserveShare() {
	filesShared.Inc()
}

// ObserveDownload counts one completed download.
func ObserveDownload() {
	filesDownloaded.Inc()
}
