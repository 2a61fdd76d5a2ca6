// Package metrics contains all application-logic metrics
package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

var (
	eventsReceived   = metrics.NewCounter("events_received_total")
	eventsMalformed  = metrics.NewCounter("events_malformed_total")
	eventsDuplicate  = metrics.NewCounter("events_duplicate_total")
	pendingTxs       = metrics.NewCounter(`events_normalized_total{kind="transaction"}`)
	pendingBundles   = metrics.NewCounter(`events_normalized_total{kind="bundle"}`)
	subscribeRetries = metrics.NewCounter("stream_subscribe_retries_total")
)

const (
	rpcCallDurationLabel = `rpc_call_duration_milliseconds{method="%s"}`
	rpcCallFailureLabel  = `rpc_call_failure_total{method="%s"}`
	mungeFailureLabel    = `munge_failure_total{method="%s"}`
)

func RecordRPCCallDuration(method string, duration int64) {
	l := fmt.Sprintf(rpcCallDurationLabel, method)
	metrics.GetOrCreateSummary(l).Update(float64(duration))
}

func IncRPCCallFailure(method string) {
	l := fmt.Sprintf(rpcCallFailureLabel, method)
	metrics.GetOrCreateCounter(l).Inc()
}

func IncMungeFailure(method string) {
	l := fmt.Sprintf(mungeFailureLabel, method)
	metrics.GetOrCreateCounter(l).Inc()
}

func IncEventsReceived() {
	eventsReceived.Inc()
}

func IncEventsMalformed() {
	eventsMalformed.Inc()
}

func IncEventsDuplicate() {
	eventsDuplicate.Inc()
}

func IncPendingTransactions() {
	pendingTxs.Inc()
}

func IncPendingBundles() {
	pendingBundles.Inc()
}

func IncSubscribeRetries() {
	subscribeRetries.Inc()
}
