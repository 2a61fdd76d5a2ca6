package mevshare

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrMalformedEvent = errors.New("malformed event")

type EventLog struct {
	// address of the contract that generated the event
	Address common.Address `json:"address"`
	// list of topics provided by the contract.
	Topics []common.Hash `json:"topics"`
	// supplied by the contract, usually ABI-encoded
	Data hexutil.Bytes `json:"data"`
}

type EventTx struct {
	Hash             *common.Hash    `json:"hash,omitempty"`
	To               *common.Address `json:"to,omitempty"`
	FunctionSelector *hexutil.Bytes  `json:"functionSelector,omitempty"`
	CallData         *hexutil.Bytes  `json:"callData,omitempty"`
}

// MevShareEvent is a hint as published on the event stream.
type MevShareEvent struct {
	Hash        *common.Hash `json:"hash"`
	Logs        []EventLog   `json:"logs,omitempty"`
	Txs         []EventTx    `json:"txs,omitempty"`
	GasUsed     *Quantity    `json:"gasUsed,omitempty"`
	MevGasPrice *Quantity    `json:"mevGasPrice,omitempty"`
}

// PendingTransaction is a pending transaction announced on the event stream.
type PendingTransaction struct {
	Hash             common.Hash
	Logs             []EventLog
	To               *common.Address
	FunctionSelector *hexutil.Bytes
	CallData         *hexutil.Bytes
	GasUsed          *big.Int
	MevGasPrice      *big.Int
}

// PendingBundle is a pending bundle announced on the event stream.
type PendingBundle struct {
	Hash        common.Hash
	Logs        []EventLog
	Txs         []EventTx
	GasUsed     *big.Int
	MevGasPrice *big.Int
}

// ToPendingTransaction flattens the first tx of the event into the result.
func ToPendingTransaction(event *MevShareEvent) (*PendingTransaction, error) {
	hash, err := eventHash(event)
	if err != nil {
		return nil, err
	}
	gasUsed, mevGasPrice, err := eventGas(event)
	if err != nil {
		return nil, err
	}

	res := &PendingTransaction{
		Hash:        hash,
		Logs:        copyLogs(event.Logs),
		GasUsed:     gasUsed,
		MevGasPrice: mevGasPrice,
	}
	if len(event.Txs) > 0 {
		tx := copyTx(event.Txs[0])
		res.To = tx.To
		res.FunctionSelector = tx.FunctionSelector
		res.CallData = tx.CallData
	}
	return res, nil
}

// ToPendingBundle keeps every tx of the event.
func ToPendingBundle(event *MevShareEvent) (*PendingBundle, error) {
	hash, err := eventHash(event)
	if err != nil {
		return nil, err
	}
	gasUsed, mevGasPrice, err := eventGas(event)
	if err != nil {
		return nil, err
	}

	res := &PendingBundle{
		Hash:        hash,
		Logs:        copyLogs(event.Logs),
		GasUsed:     gasUsed,
		MevGasPrice: mevGasPrice,
	}
	if event.Txs != nil {
		res.Txs = make([]EventTx, len(event.Txs))
		for i, tx := range event.Txs {
			res.Txs[i] = copyTx(tx)
		}
	}
	return res, nil
}

func eventHash(event *MevShareEvent) (common.Hash, error) {
	if event == nil {
		return common.Hash{}, fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	if event.Hash == nil || *event.Hash == (common.Hash{}) {
		return common.Hash{}, fmt.Errorf("%w: missing hash", ErrMalformedEvent)
	}
	return *event.Hash, nil
}

func eventGas(event *MevShareEvent) (gasUsed, mevGasPrice *big.Int, err error) {
	if event.GasUsed != nil {
		gasUsed, err = event.GasUsed.Big()
		if err != nil {
			return nil, nil, fmt.Errorf("gasUsed: %w", err)
		}
	}
	if event.MevGasPrice != nil {
		mevGasPrice, err = event.MevGasPrice.Big()
		if err != nil {
			return nil, nil, fmt.Errorf("mevGasPrice: %w", err)
		}
	}
	return gasUsed, mevGasPrice, nil
}

func copyLogs(logs []EventLog) []EventLog {
	if logs == nil {
		return nil
	}
	res := make([]EventLog, len(logs))
	for i, log := range logs {
		res[i] = EventLog{
			Address: log.Address,
			Topics:  copySlice(log.Topics),
			Data:    common.CopyBytes(log.Data),
		}
	}
	return res
}

func copyTx(tx EventTx) EventTx {
	res := EventTx{
		Hash: copyPtr(tx.Hash),
		To:   copyPtr(tx.To),
	}
	if tx.FunctionSelector != nil {
		b := hexutil.Bytes(common.CopyBytes(*tx.FunctionSelector))
		res.FunctionSelector = &b
	}
	if tx.CallData != nil {
		b := hexutil.Bytes(common.CopyBytes(*tx.CallData))
		res.CallData = &b
	}
	return res
}
