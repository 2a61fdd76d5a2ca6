// Package stream delivers MEV-Share hints from a redis pub/sub channel as pending transactions and bundles.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/mev-share-client-go/metrics"
	"github.com/flashbots/mev-share-client-go/mevshare"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrDuplicateEvent = errors.New("duplicate event")

const maxRetryInterval = 30 * time.Second

type Handlers struct {
	OnTransaction func(ctx context.Context, tx *mevshare.PendingTransaction)
	OnBundle      func(ctx context.Context, bundle *mevshare.PendingBundle)
}

type Subscriber struct {
	log      *zap.Logger
	red      *redis.Client
	channel  string
	handlers Handlers
	dedupe   Deduper
}

// NewSubscriber creates a subscriber for the channel. dedupe may be nil.
func NewSubscriber(log *zap.Logger, red *redis.Client, channel string, handlers Handlers, dedupe Deduper) *Subscriber {
	return &Subscriber{
		log:      log.Named("stream").With(zap.String("channel", channel)),
		red:      red,
		channel:  channel,
		handlers: handlers,
		dedupe:   dedupe,
	}
}

// Run consumes the channel until ctx is cancelled, resubscribing with exponential backoff on failures
func (s *Subscriber) Run(ctx context.Context) error {
	exp := backoff.NewExponentialBackOff()
	exp.MaxInterval = maxRetryInterval
	exp.MaxElapsedTime = 0
	back := backoff.WithContext(exp, ctx)

	err := backoff.RetryNotify(func() error {
		err := s.consume(ctx, exp.Reset)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, back, func(err error, next time.Duration) {
		metrics.IncSubscribeRetries()
		s.log.Warn("Subscription failed, retrying", zap.Error(err), zap.Duration("next", next))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Subscriber) consume(ctx context.Context, onSubscribed func()) error {
	pubsub := s.red.Subscribe(ctx, s.channel)
	defer func() { _ = pubsub.Close() }()

	// wait for the subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	onSubscribed()
	s.log.Info("Subscribed to hint stream")

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		err = s.HandleMessage(ctx, []byte(msg.Payload))
		if err != nil && !errors.Is(err, ErrDuplicateEvent) {
			s.log.Warn("Dropped hint", zap.Error(err))
		}
	}
}

// HandleMessage decodes a hint payload and hands it to the matching handler.
// Hints with more than one tx are bundles.
func (s *Subscriber) HandleMessage(ctx context.Context, payload []byte) error {
	metrics.IncEventsReceived()

	var event mevshare.MevShareEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		metrics.IncEventsMalformed()
		return fmt.Errorf("%w: %s", mevshare.ErrMalformedEvent, err.Error())
	}

	if len(event.Txs) > 1 {
		bundle, err := mevshare.ToPendingBundle(&event)
		if err != nil {
			metrics.IncEventsMalformed()
			return err
		}
		if !s.firstSeen(ctx, bundle.Hash) {
			return ErrDuplicateEvent
		}
		metrics.IncPendingBundles()
		if s.handlers.OnBundle != nil {
			s.handlers.OnBundle(ctx, bundle)
		}
		return nil
	}

	tx, err := mevshare.ToPendingTransaction(&event)
	if err != nil {
		metrics.IncEventsMalformed()
		return err
	}
	if !s.firstSeen(ctx, tx.Hash) {
		return ErrDuplicateEvent
	}
	metrics.IncPendingTransactions()
	if s.handlers.OnTransaction != nil {
		s.handlers.OnTransaction(ctx, tx)
	}
	return nil
}

func (s *Subscriber) firstSeen(ctx context.Context, hash common.Hash) bool {
	if s.dedupe == nil {
		return true
	}
	first, err := s.dedupe.MarkSeen(ctx, hash)
	if err != nil {
		// deliver rather than drop when the cache is unavailable
		s.log.Warn("Failed to check hint cache", zap.Error(err), zap.String("hash", hash.Hex()))
		return true
	}
	if !first {
		metrics.IncEventsDuplicate()
	}
	return first
}
