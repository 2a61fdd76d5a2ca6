// Package mevshare converts user-facing mev-share parameters into the wire format of the relay API
// and converts inbound hint events into typed domain objects.
//
// Outbound flow, one call per request:
//
//	TransactionOptions -> MungePrivateTxParams  -> eth_sendPrivateTransaction params
//	BundleParams       -> MungeBundleParams     -> mev_sendBundle params
//	SimBundleOptions   -> MungeSimBundleOptions -> mev_simBundle params
//
// Inbound flow, one call per event:
//
//	MevShareEvent -> ToPendingTransaction / ToPendingBundle
//
// Every function in this package is pure: it does no I/O, keeps no state and never mutates its input,
// so it is safe to call from any number of goroutines.
package mevshare

const (
	SendPrivateTransactionEndpointName   = "eth_sendPrivateTransaction"
	CancelPrivateTransactionEndpointName = "eth_cancelPrivateTransaction"
	SendBundleEndpointName               = "mev_sendBundle"
	SimBundleEndpointName                = "mev_simBundle"

	// VersionV1 is the bundle version used when the caller does not set one.
	VersionV1 = "v0.1"

	// MaxBundleDepth is the deepest nesting level accepted by MungeBundleParams.
	// The top-level bundle is level 0.
	MaxBundleDepth = 3
)
