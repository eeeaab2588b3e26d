package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type channelPublisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// Publisher writes change events to the per-store Redis channel.
type Publisher struct {
	redis  channelPublisher
	prefix string
}

func NewPublisher(redis channelPublisher, prefix string) (*Publisher, error) {
	if redis == nil {
		return nil, errors.New("redis publisher required")
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, errors.New("channel prefix required")
	}
	return &Publisher{redis: redis, prefix: strings.TrimSpace(prefix)}, nil
}

func (p *Publisher) Publish(ctx context.Context, ev ChangeEvent) error {
	if ev.StoreID == uuid.Nil {
		return errors.New("change event store id required")
	}
	if !ev.Type.IsValid() {
		return fmt.Errorf("invalid change type %q", ev.Type)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	return p.redis.Publish(ctx, Channel(p.prefix, ev.StoreID), string(body))
}
