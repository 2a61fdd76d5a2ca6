// Package rpcclient sends munged MEV-Share requests to a Flashbots relay over JSON-RPC.
package rpcclient

import (
	"context"
	"crypto/ecdsa"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/mev-share-client-go/metrics"
	"github.com/flashbots/mev-share-client-go/mevshare"
	"github.com/ybbus/jsonrpc/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type cancelPrivateTxParams struct {
	TxHash common.Hash `json:"txHash"`
}

type Client struct {
	log *zap.Logger

	relay          jsonrpc.RPCClient
	sim            jsonrpc.RPCClient
	simRateLimiter *rate.Limiter
	builders       []string
}

// NewClient creates a client for the configured endpoints. Requests are signed when key is not nil.
func NewClient(log *zap.Logger, config Config, key *ecdsa.PrivateKey) *Client {
	var transport http.RoundTripper = http.DefaultTransport
	if key != nil {
		transport = NewSigner(key, transport)
	}
	opts := &jsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{
			Timeout:   config.RequestTimeout,
			Transport: transport,
		},
	}

	simURL := config.SimulationURL
	if simURL == "" {
		simURL = config.RelayURL
	}

	limit := rate.Inf
	if config.SimRateLimit > 0 {
		limit = rate.Limit(config.SimRateLimit)
	}

	return &Client{
		log:            log.Named("rpcclient"),
		relay:          jsonrpc.NewClientWithOpts(config.RelayURL, opts),
		sim:            jsonrpc.NewClientWithOpts(simURL, opts),
		simRateLimiter: rate.NewLimiter(limit, 1),
		builders:       config.Builders,
	}
}

func (c *Client) observe(method string, startAt time.Time, err error) {
	metrics.RecordRPCCallDuration(method, time.Since(startAt).Milliseconds())
	if err != nil {
		metrics.IncRPCCallFailure(method)
		c.log.Warn("RPC call failed", zap.String("method", method), zap.Error(err))
	}
}

// SendPrivateTransaction sends a signed transaction to the relay and returns its hash
func (c *Client) SendPrivateTransaction(ctx context.Context, signedTx string, opts *mevshare.TransactionOptions) (_ common.Hash, err error) {
	startAt := time.Now()
	defer func() { c.observe(mevshare.SendPrivateTransactionEndpointName, startAt, err) }()

	params, err := mevshare.MungePrivateTxParams(signedTx, opts)
	if err != nil {
		metrics.IncMungeFailure(mevshare.SendPrivateTransactionEndpointName)
		return common.Hash{}, err
	}
	if len(c.builders) > 0 {
		for i := range params {
			params[i].Preferences.Privacy = c.withDefaultBuilders(params[i].Preferences.Privacy)
		}
	}

	var hash common.Hash
	err = c.relay.CallFor(ctx, &hash, mevshare.SendPrivateTransactionEndpointName, params)
	return hash, err
}

// CancelPrivateTransaction asks the relay to stop sending a private transaction
func (c *Client) CancelPrivateTransaction(ctx context.Context, txHash common.Hash) (_ bool, err error) {
	startAt := time.Now()
	defer func() { c.observe(mevshare.CancelPrivateTransactionEndpointName, startAt, err) }()

	var cancelled bool
	err = c.relay.CallFor(ctx, &cancelled, mevshare.CancelPrivateTransactionEndpointName, []cancelPrivateTxParams{{TxHash: txHash}})
	return cancelled, err
}

func (c *Client) SendBundle(ctx context.Context, bundle *mevshare.BundleParams) (_ mevshare.SendBundleResponse, err error) {
	startAt := time.Now()
	defer func() { c.observe(mevshare.SendBundleEndpointName, startAt, err) }()

	params, err := c.mungeBundle(mevshare.SendBundleEndpointName, bundle)
	if err != nil {
		return mevshare.SendBundleResponse{}, err
	}

	var res mevshare.SendBundleResponse
	err = c.relay.CallFor(ctx, &res, mevshare.SendBundleEndpointName, []*mevshare.SendBundleParams{params})
	return res, err
}

// SimulateBundle simulates a bundle on the simulation endpoint, calls are rate limited
func (c *Client) SimulateBundle(ctx context.Context, bundle *mevshare.BundleParams, opts *mevshare.SimBundleOptions) (_ *mevshare.SimBundleResponse, err error) {
	startAt := time.Now()
	defer func() { c.observe(mevshare.SimBundleEndpointName, startAt, err) }()

	params, err := c.mungeBundle(mevshare.SimBundleEndpointName, bundle)
	if err != nil {
		return nil, err
	}
	simParams, err := mevshare.MungeSimBundleOptions(opts)
	if err != nil {
		metrics.IncMungeFailure(mevshare.SimBundleEndpointName)
		return nil, err
	}

	err = c.simRateLimiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var res mevshare.SimBundleResponse
	err = c.sim.CallFor(ctx, &res, mevshare.SimBundleEndpointName, params, simParams)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) mungeBundle(method string, bundle *mevshare.BundleParams) (*mevshare.SendBundleParams, error) {
	params, err := mevshare.MungeBundleParams(bundle)
	if err != nil {
		metrics.IncMungeFailure(method)
		return nil, err
	}
	if len(c.builders) > 0 {
		params.Privacy = c.withDefaultBuilders(params.Privacy)
	}
	return params, nil
}

func (c *Client) withDefaultBuilders(privacy *mevshare.PrivacyParams) *mevshare.PrivacyParams {
	if privacy == nil {
		privacy = &mevshare.PrivacyParams{}
	}
	if privacy.Builders == nil {
		privacy.Builders = append([]string(nil), c.builders...)
	}
	return privacy
}
