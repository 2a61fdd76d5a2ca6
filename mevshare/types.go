package mevshare

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrMissingInclusionBlock = errors.New("missing inclusion block")
	ErrInvalidBundleItem     = errors.New("invalid bundle item")
	ErrBundleTooDeep         = errors.New("bundle too deep")
)

// TransactionOptions configures a private transaction.
type TransactionOptions struct {
	// MaxBlockNumber is the last block in which the transaction may be included.
	MaxBlockNumber *Quantity `json:"maxBlockNumber,omitempty"`
	// Hints is nil to let the relay apply its default privacy policy.
	Hints *HintPreferences `json:"hints,omitempty"`
	// Builders is nil when not specified. A non-nil empty slice still counts as specified.
	Builders []string `json:"builders,omitempty"`
}

// BundleItem is one element of a bundle body: a TxItem, a HashItem or a NestedBundleItem.
type BundleItem interface {
	isBundleItem()
}

// TxItem is a signed raw transaction.
type TxItem struct {
	Tx        string `json:"tx"`
	CanRevert bool   `json:"canRevert,omitempty"`
}

// HashItem refers to a transaction or bundle already known to the relay by its hash.
type HashItem struct {
	Hash      string `json:"hash"`
	CanRevert bool   `json:"canRevert,omitempty"`
}

type NestedBundleItem struct {
	Bundle *BundleParams `json:"bundle"`
}

func (TxItem) isBundleItem()           {}
func (HashItem) isBundleItem()         {}
func (NestedBundleItem) isBundleItem() {}

type BundleInclusion struct {
	Block    *Quantity `json:"block"`
	MaxBlock *Quantity `json:"maxBlock,omitempty"`
}

type RefundConstraint struct {
	BodyIdx int `json:"bodyIdx"`
	Percent int `json:"percent"`
}

type RefundConfig struct {
	Address common.Address `json:"address"`
	Percent int            `json:"percent"`
}

type BundleValidity struct {
	Refund       []RefundConstraint `json:"refund"`
	RefundConfig []RefundConfig     `json:"refundConfig"`
}

type BundlePrivacy struct {
	Hints      *HintPreferences `json:"hints,omitempty"`
	Builders   []string         `json:"builders,omitempty"`
	WantRefund *int             `json:"wantRefund,omitempty"`
}

// BundleParams describes a bundle as the caller sees it. Bundles nest through NestedBundleItem.
type BundleParams struct {
	Version   string          `json:"version,omitempty"`
	Body      []BundleItem    `json:"body"`
	Inclusion BundleInclusion `json:"inclusion"`
	Validity  *BundleValidity `json:"validity,omitempty"`
	Privacy   *BundlePrivacy  `json:"privacy,omitempty"`
}

type bundleItemJSON struct {
	Tx        *string       `json:"tx,omitempty"`
	Hash      *string       `json:"hash,omitempty"`
	Bundle    *BundleParams `json:"bundle,omitempty"`
	CanRevert bool          `json:"canRevert,omitempty"`
}

// UnmarshalBundleItem decodes one body entry. Exactly one of tx, hash and bundle must be set.
func UnmarshalBundleItem(data []byte) (BundleItem, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, ErrInvalidBundleItem
	}
	var raw bundleItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	set := 0
	for _, ok := range []bool{raw.Tx != nil, raw.Hash != nil, raw.Bundle != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of tx, hash or bundle must be set", ErrInvalidBundleItem)
	}

	switch {
	case raw.Tx != nil:
		return TxItem{Tx: *raw.Tx, CanRevert: raw.CanRevert}, nil
	case raw.Hash != nil:
		return HashItem{Hash: *raw.Hash, CanRevert: raw.CanRevert}, nil
	default:
		return NestedBundleItem{Bundle: raw.Bundle}, nil
	}
}

func (p *BundleParams) UnmarshalJSON(data []byte) error {
	type bundleParams BundleParams
	var aux struct {
		bundleParams
		Body []json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*p = BundleParams(aux.bundleParams)
	p.Body = make([]BundleItem, len(aux.Body))
	for i, el := range aux.Body {
		item, err := UnmarshalBundleItem(el)
		if err != nil {
			return fmt.Errorf("body[%d]: %w", i, err)
		}
		p.Body[i] = item
	}
	return nil
}

// SimBundleOptions overrides the block environment used by mev_simBundle.
type SimBundleOptions struct {
	ParentBlock *Quantity `json:"parentBlock,omitempty"`
	BlockNumber *Quantity `json:"blockNumber,omitempty"`
	Coinbase    *string   `json:"coinbase,omitempty"`
	Timestamp   *Quantity `json:"timestamp,omitempty"`
	GasLimit    *Quantity `json:"gasLimit,omitempty"`
	BaseFee     *Quantity `json:"baseFee,omitempty"`
	Timeout     *int64    `json:"timeout,omitempty"`
}

// Wire types

type PrivacyParams struct {
	Hints      []HintName `json:"hints,omitempty"`
	Builders   []string   `json:"builders,omitempty"`
	WantRefund *int       `json:"wantRefund,omitempty"`
}

type PrivateTxPreferences struct {
	// Fast is deprecated and has no effect, but the relay still requires it.
	Fast    bool           `json:"fast"`
	Privacy *PrivacyParams `json:"privacy,omitempty"`
}

type PrivateTxParams struct {
	Tx             string               `json:"tx"`
	MaxBlockNumber *hexutil.Big         `json:"maxBlockNumber,omitempty"`
	Preferences    PrivateTxPreferences `json:"preferences"`
}

type InclusionParams struct {
	Block    *hexutil.Big `json:"block"`
	MaxBlock *hexutil.Big `json:"maxBlock,omitempty"`
}

type BundleBodyParams struct {
	Tx        *string           `json:"tx,omitempty"`
	Hash      *string           `json:"hash,omitempty"`
	Bundle    *SendBundleParams `json:"bundle,omitempty"`
	CanRevert bool              `json:"canRevert,omitempty"`
}

type SendBundleParams struct {
	Version   string             `json:"version"`
	Inclusion InclusionParams    `json:"inclusion"`
	Body      []BundleBodyParams `json:"body"`
	Validity  BundleValidity     `json:"validity"`
	Privacy   *PrivacyParams     `json:"privacy,omitempty"`
}

type SimBundleParams struct {
	ParentBlock *hexutil.Big `json:"parentBlock,omitempty"`
	BlockNumber *hexutil.Big `json:"blockNumber,omitempty"`
	Coinbase    *string      `json:"coinbase,omitempty"`
	Timestamp   *hexutil.Big `json:"timestamp,omitempty"`
	GasLimit    *hexutil.Big `json:"gasLimit,omitempty"`
	BaseFee     *hexutil.Big `json:"baseFee,omitempty"`
	Timeout     *int64       `json:"timeout,omitempty"`
}

// Relay responses

type SendBundleResponse struct {
	BundleHash common.Hash `json:"bundleHash"`
}

type SimBundleResponse struct {
	Success         bool            `json:"success"`
	Error           string          `json:"error,omitempty"`
	StateBlock      hexutil.Uint64  `json:"stateBlock"`
	MevGasPrice     hexutil.Big     `json:"mevGasPrice"`
	Profit          hexutil.Big     `json:"profit"`
	RefundableValue hexutil.Big     `json:"refundableValue"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	BodyLogs        []SimBundleLogs `json:"logs,omitempty"`
	ExecError       string          `json:"execError,omitempty"`
	Revert          hexutil.Bytes   `json:"revert,omitempty"`
}

type SimBundleLogs struct {
	TxLogs     []EventLog      `json:"txLogs,omitempty"`
	BundleLogs []SimBundleLogs `json:"bundleLogs,omitempty"`
}
