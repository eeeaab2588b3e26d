package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultSubscriberBuffer = 64

type patternSubscriber interface {
	PSubscribe(ctx context.Context, patterns ...string) (*goredis.PubSub, error)
}

// Subscriber receives events for one store through C. C is closed when the
// subscriber is removed or dropped for falling behind.
type Subscriber struct {
	C       <-chan ChangeEvent
	ch      chan ChangeEvent
	storeID uuid.UUID
	filter  Filter
	once    sync.Once
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub tracks live subscribers and fans Redis messages out to them.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	buffer int
	prefix string
	source patternSubscriber
	logg   *logger.Logger
}

type HubParams struct {
	Source           patternSubscriber
	ChannelPrefix    string
	SubscriberBuffer int
	Logger           *logger.Logger
}

func NewHub(params HubParams) (*Hub, error) {
	if params.Source == nil {
		return nil, errors.New("redis subscriber required")
	}
	if strings.TrimSpace(params.ChannelPrefix) == "" {
		return nil, errors.New("channel prefix required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	buffer := params.SubscriberBuffer
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		buffer: buffer,
		prefix: strings.TrimSpace(params.ChannelPrefix),
		source: params.Source,
		logg:   params.Logger,
	}, nil
}

// Subscribe registers a subscriber scoped to storeID.
func (h *Hub) Subscribe(storeID uuid.UUID, filter Filter) *Subscriber {
	ch := make(chan ChangeEvent, h.buffer)
	sub := &Subscriber{C: ch, ch: ch, storeID: storeID, filter: filter}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	sub.close()
}

// Len reports the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers ev to every matching subscriber without blocking. A subscriber
// whose buffer is full is dropped. It returns how many subscribers received the event.
func (h *Hub) Broadcast(ev ChangeEvent) int {
	var delivered int
	var slow []*Subscriber

	h.mu.RLock()
	for sub := range h.subs {
		if sub.storeID != ev.StoreID || !sub.filter.Matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.Unsubscribe(sub)
	}
	return delivered
}

// Run pattern-subscribes to every store channel and broadcasts until ctx is canceled.
func (h *Hub) Run(ctx context.Context) error {
	ps, err := h.source.PSubscribe(ctx, h.prefix+":*")
	if err != nil {
		return err
	}
	defer ps.Close()
	h.logg.Info(ctx, "realtime hub subscribed")
	return h.consume(ctx, ps.Channel())
}

func (h *Hub) consume(ctx context.Context, messages <-chan *goredis.Message) error {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			h.dispatch(ctx, msg)
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, msg *goredis.Message) {
	storeID, ok := storeFromChannel(h.prefix, msg.Channel)
	if !ok {
		h.logg.Warn(h.logg.WithField(ctx, "channel", msg.Channel), "unexpected realtime channel")
		return
	}
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		h.logg.Error(ctx, "decode realtime event", err)
		return
	}
	// the channel is authoritative for scoping
	ev.StoreID = storeID
	h.Broadcast(ev)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscriber]struct{})
	h.mu.Unlock()
	for sub := range subs {
		sub.close()
	}
}
