package mevshare

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultVersion is the bundle version used when BundleParams.Version is empty.
func DefaultVersion() string {
	return VersionV1
}

// DefaultValidity is used when a bundle has no validity: no special refund routing.
func DefaultValidity() BundleValidity {
	return BundleValidity{
		Refund:       []RefundConstraint{},
		RefundConfig: []RefundConfig{},
	}
}

// MungePrivateTxParams builds the params array for eth_sendPrivateTransaction.
// Privacy preferences are only sent when hints or builders are specified, otherwise the relay
// applies its default policy.
func MungePrivateTxParams(signedTx string, opts *TransactionOptions) ([]PrivateTxParams, error) {
	if opts == nil {
		opts = &TransactionOptions{}
	}

	maxBlock, err := EncodeHex(opts.MaxBlockNumber)
	if err != nil {
		return nil, fmt.Errorf("maxBlockNumber: %w", err)
	}

	params := PrivateTxParams{
		Tx:             signedTx,
		MaxBlockNumber: maxBlock,
		Preferences: PrivateTxPreferences{
			Fast: true,
		},
	}
	if opts.Hints != nil || opts.Builders != nil {
		privacy := &PrivacyParams{
			Builders: copySlice(opts.Builders),
		}
		if opts.Hints != nil {
			privacy.Hints = ExtractSpecifiedHints(opts.Hints)
		}
		params.Preferences.Privacy = privacy
	}
	return []PrivateTxParams{params}, nil
}

// MungeBundleParams builds the params object for mev_sendBundle, nested bundles included.
// Nesting deeper than MaxBundleDepth fails with ErrBundleTooDeep.
func MungeBundleParams(params *BundleParams) (*SendBundleParams, error) {
	return MungeBundleParamsWithMaxDepth(params, MaxBundleDepth)
}

// MungeBundleParamsWithMaxDepth is MungeBundleParams with a custom nesting limit.
func MungeBundleParamsWithMaxDepth(params *BundleParams, maxDepth int) (*SendBundleParams, error) {
	return mungeBundleInner(0, maxDepth, params)
}

func mungeBundleInner(level, maxDepth int, params *BundleParams) (*SendBundleParams, error) {
	if level > maxDepth {
		return nil, ErrBundleTooDeep
	}
	if params == nil {
		return nil, fmt.Errorf("%w: nil bundle", ErrInvalidBundleItem)
	}

	body := make([]BundleBodyParams, len(params.Body))
	for i, el := range params.Body {
		switch item := derefBundleItem(el).(type) {
		case TxItem:
			if item.Tx == "" {
				return nil, fmt.Errorf("%w: body[%d] has empty tx", ErrInvalidBundleItem, i)
			}
			tx := item.Tx
			body[i] = BundleBodyParams{Tx: &tx, CanRevert: item.CanRevert}
		case HashItem:
			if item.Hash == "" {
				return nil, fmt.Errorf("%w: body[%d] has empty hash", ErrInvalidBundleItem, i)
			}
			hash := item.Hash
			body[i] = BundleBodyParams{Hash: &hash, CanRevert: item.CanRevert}
		case NestedBundleItem:
			if item.Bundle == nil {
				return nil, fmt.Errorf("%w: body[%d] has nil bundle", ErrInvalidBundleItem, i)
			}
			inner, err := mungeBundleInner(level+1, maxDepth, item.Bundle)
			if err != nil {
				return nil, err
			}
			body[i] = BundleBodyParams{Bundle: inner}
		default:
			return nil, fmt.Errorf("%w: body[%d] is %T", ErrInvalidBundleItem, i, el)
		}
	}

	if params.Inclusion.Block == nil {
		return nil, ErrMissingInclusionBlock
	}
	block, err := EncodeHex(params.Inclusion.Block)
	if err != nil {
		return nil, fmt.Errorf("inclusion.block: %w", err)
	}
	maxBlock, err := EncodeHex(params.Inclusion.MaxBlock)
	if err != nil {
		return nil, fmt.Errorf("inclusion.maxBlock: %w", err)
	}

	res := &SendBundleParams{
		Version: params.Version,
		Inclusion: InclusionParams{
			Block:    block,
			MaxBlock: maxBlock,
		},
		Body: body,
	}
	if res.Version == "" {
		res.Version = DefaultVersion()
	}
	if params.Validity != nil {
		res.Validity = BundleValidity{
			Refund:       copySlice(params.Validity.Refund),
			RefundConfig: copySlice(params.Validity.RefundConfig),
		}
	} else {
		res.Validity = DefaultValidity()
	}
	if privacy := params.Privacy; privacy != nil {
		res.Privacy = &PrivacyParams{
			Builders:   copySlice(privacy.Builders),
			WantRefund: copyPtr(privacy.WantRefund),
		}
		if privacy.Hints != nil {
			res.Privacy.Hints = ExtractSpecifiedHints(privacy.Hints)
		}
	}
	return res, nil
}

// MungeSimBundleOptions builds the aux params object for mev_simBundle.
// Numeric fields are hex encoded, coinbase and timeout are passed through.
func MungeSimBundleOptions(opts *SimBundleOptions) (*SimBundleParams, error) {
	if opts == nil {
		return &SimBundleParams{}, nil
	}

	var (
		res = SimBundleParams{Coinbase: copyPtr(opts.Coinbase), Timeout: copyPtr(opts.Timeout)}
		err error
	)
	fields := []struct {
		name string
		in   *Quantity
		out  **hexutil.Big
	}{
		{"parentBlock", opts.ParentBlock, &res.ParentBlock},
		{"blockNumber", opts.BlockNumber, &res.BlockNumber},
		{"timestamp", opts.Timestamp, &res.Timestamp},
		{"gasLimit", opts.GasLimit, &res.GasLimit},
		{"baseFee", opts.BaseFee, &res.BaseFee},
	}
	for _, f := range fields {
		*f.out, err = EncodeHex(f.in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return &res, nil
}

// derefBundleItem accepts pointer forms of the item variants, nil pointers stay invalid
func derefBundleItem(el BundleItem) BundleItem {
	switch item := el.(type) {
	case *TxItem:
		if item != nil {
			return *item
		}
	case *HashItem:
		if item != nil {
			return *item
		}
	case *NestedBundleItem:
		if item != nil {
			return *item
		}
	default:
		return el
	}
	return nil
}

func copySlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
