package stream

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/mev-share-client-go/mevshare"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	txHint = `{
		"hash": "0x6d9f6bd5ed8688f0b5e2e6d8990859a6bd3f95a4f8d29e1fdb2bd2680b1d4a3a",
		"logs": null,
		"txs": [{"to": "0x0000000000000000000000000000000000000001", "functionSelector": "0xabcd"}],
		"mevGasPrice": "0x3b9aca00",
		"gasUsed": "0x5208"
	}`
	bundleHint = `{
		"hash": "0x1d9f6bd5ed8688f0b5e2e6d8990859a6bd3f95a4f8d29e1fdb2bd2680b1d4a3a",
		"txs": [
			{"hash": "0x2d9f6bd5ed8688f0b5e2e6d8990859a6bd3f95a4f8d29e1fdb2bd2680b1d4a3a"},
			{"to": "0x0000000000000000000000000000000000000002", "callData": "0x1234"}
		]
	}`
)

type received struct {
	txs     []*mevshare.PendingTransaction
	bundles []*mevshare.PendingBundle
}

func newTestSubscriber(red *redis.Client, dedupe Deduper) (*Subscriber, *received) {
	r := &received{}
	s := NewSubscriber(zap.NewNop(), red, "hints_test", Handlers{
		OnTransaction: func(ctx context.Context, tx *mevshare.PendingTransaction) {
			r.txs = append(r.txs, tx)
		},
		OnBundle: func(ctx context.Context, bundle *mevshare.PendingBundle) {
			r.bundles = append(r.bundles, bundle)
		},
	}, dedupe)
	return s, r
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	s, r := newTestSubscriber(nil, nil)

	require.NoError(t, s.HandleMessage(ctx, []byte(txHint)))
	require.Len(t, r.txs, 1)
	require.Empty(t, r.bundles)
	tx := r.txs[0]
	require.Equal(t, common.HexToHash("0x6d9f6bd5ed8688f0b5e2e6d8990859a6bd3f95a4f8d29e1fdb2bd2680b1d4a3a"), tx.Hash)
	require.Equal(t, common.HexToAddress("0x1"), *tx.To)
	require.Nil(t, tx.CallData)
	require.Equal(t, big.NewInt(21000), tx.GasUsed)
	require.Equal(t, big.NewInt(1000000000), tx.MevGasPrice)

	require.NoError(t, s.HandleMessage(ctx, []byte(bundleHint)))
	require.Len(t, r.bundles, 1)
	bundle := r.bundles[0]
	require.Len(t, bundle.Txs, 2)
	require.Equal(t, common.HexToHash("0x2d9f6bd5ed8688f0b5e2e6d8990859a6bd3f95a4f8d29e1fdb2bd2680b1d4a3a"), *bundle.Txs[0].Hash)
	require.Nil(t, bundle.GasUsed)
	require.Nil(t, bundle.MevGasPrice)

	// no dedupe configured
	require.NoError(t, s.HandleMessage(ctx, []byte(txHint)))
	require.Len(t, r.txs, 2)
}

func TestHandleMessageMalformed(t *testing.T) {
	ctx := context.Background()
	s, r := newTestSubscriber(nil, nil)

	inputs := []string{
		`not json`,
		`{}`,
		`{"hash": "0x0000000000000000000000000000000000000000000000000000000000000000"}`,
		`{"hash": "0x6d9f6bd5ed8688f0b5e2e6d8990859a6bd3f95a4f8d29e1fdb2bd2680b1d4a3a", "gasUsed": true}`,
		`{"txs": [{}, {}]}`,
	}
	for _, input := range inputs {
		require.ErrorIs(t, s.HandleMessage(ctx, []byte(input)), mevshare.ErrMalformedEvent, input)
	}

	err := s.HandleMessage(ctx, []byte(`{"hash": "0x6d9f6bd5ed8688f0b5e2e6d8990859a6bd3f95a4f8d29e1fdb2bd2680b1d4a3a", "gasUsed": "0xzz"}`))
	require.ErrorIs(t, err, mevshare.ErrInvalidNumericInput)

	require.Empty(t, r.txs)
	require.Empty(t, r.bundles)
}

func TestHandleMessageDedupe(t *testing.T) {
	ctx := context.Background()
	s, r := newTestSubscriber(nil, NewLocalDeduper(time.Minute))

	require.NoError(t, s.HandleMessage(ctx, []byte(txHint)))
	require.ErrorIs(t, s.HandleMessage(ctx, []byte(txHint)), ErrDuplicateEvent)
	require.NoError(t, s.HandleMessage(ctx, []byte(bundleHint)))
	require.ErrorIs(t, s.HandleMessage(ctx, []byte(bundleHint)), ErrDuplicateEvent)

	require.Len(t, r.txs, 1)
	require.Len(t, r.bundles, 1)
}

type failingDeduper struct{}

func (failingDeduper) MarkSeen(context.Context, common.Hash) (bool, error) {
	return false, errors.New("cache unavailable") //nolint:goerr113
}

func TestHandleMessageDedupeUnavailable(t *testing.T) {
	s, r := newTestSubscriber(nil, failingDeduper{})

	require.NoError(t, s.HandleMessage(context.Background(), []byte(txHint)))
	require.Len(t, r.txs, 1)
}

func TestLocalDeduperWindow(t *testing.T) {
	ctx := context.Background()
	d := NewLocalDeduper(200 * time.Millisecond)
	hash := common.HexToHash("0x01")

	first, err := d.MarkSeen(ctx, hash)
	require.NoError(t, err)
	require.True(t, first)

	first, err = d.MarkSeen(ctx, hash)
	require.NoError(t, err)
	require.False(t, first)

	// a repeated hash does not extend the window
	require.Eventually(t, func() bool {
		first, err := d.MarkSeen(ctx, hash)
		return err == nil && first
	}, 5*time.Second, 10*time.Millisecond)
}

func TestLocalDeduperExpiredItemsDropped(t *testing.T) {
	ctx := context.Background()
	d := NewLocalDeduper(time.Hour)

	for i := 0; i < 3; i++ {
		first, err := d.MarkSeen(ctx, common.BigToHash(big.NewInt(int64(i))))
		require.NoError(t, err)
		require.True(t, first)
	}
	d.cache.DeleteExpired()
	require.Equal(t, 3, d.cache.ItemCount())

	// expire an entry without waiting for the window
	d.cache.Set(common.BigToHash(big.NewInt(0)).Hex(), struct{}{}, time.Nanosecond)
	require.Eventually(t, func() bool {
		d.cache.DeleteExpired()
		return d.cache.ItemCount() == 2
	}, 5*time.Second, time.Millisecond)

	first, err := d.MarkSeen(ctx, common.BigToHash(big.NewInt(0)))
	require.NoError(t, err)
	require.True(t, first)
}

func TestSubscriberRedis(t *testing.T) {
	red := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	if err := red.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis is not available: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	txs := make(chan *mevshare.PendingTransaction, 1)
	s := NewSubscriber(zap.NewNop(), red, "hints_test_subscriber", Handlers{
		OnTransaction: func(ctx context.Context, tx *mevshare.PendingTransaction) {
			select {
			case txs <- tx:
			default:
			}
		},
	}, NewLocalDeduper(time.Minute))

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	hash := common.HexToHash("0x6d9f6bd5ed8688f0b5e2e6d8990859a6bd3f95a4f8d29e1fdb2bd2680b1d4a3a")
	publisher := NewPublisher(red, "hints_test_subscriber")
	event := &mevshare.MevShareEvent{Hash: &hash, GasUsed: mevshare.NewQuantity(21000)}

	// publish until the subscription is up
	var tx *mevshare.PendingTransaction
	for tx == nil {
		require.NoError(t, publisher.Publish(ctx, event))
		select {
		case tx = <-txs:
		case <-time.After(50 * time.Millisecond):
		}
	}
	require.Equal(t, hash, tx.Hash)
	require.Equal(t, big.NewInt(21000), tx.GasUsed)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not stop")
	}
}
