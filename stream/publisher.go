package stream

import (
	"context"
	"encoding/json"

	"github.com/flashbots/mev-share-client-go/mevshare"
	"github.com/redis/go-redis/v9"
)

type Publisher struct {
	red     *redis.Client
	channel string
}

func NewPublisher(red *redis.Client, channel string) *Publisher {
	return &Publisher{
		red:     red,
		channel: channel,
	}
}

func (p *Publisher) Publish(ctx context.Context, event *mevshare.MevShareEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.red.Publish(ctx, p.channel, data).Err()
}
