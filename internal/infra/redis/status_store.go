package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
)

// TransitionChannel is the pub/sub channel failover transitions go to.
const TransitionChannel = "rpcwatch:failover"

// DefaultStatusTTL bounds how long a status survives without refresh.
const DefaultStatusTTL = 2 * time.Minute

// Key helpers
func statusKey(chain domain.ChainAlias) string {
	return fmt.Sprintf("rpcwatch:status:%s", chain)
}

// StatusStore shares failover status with other processes.
type StatusStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatusStore creates a store. A zero ttl uses DefaultStatusTTL.
func NewStatusStore(client *Client, ttl time.Duration) *StatusStore {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &StatusStore{rdb: client.rdb, ttl: ttl}
}

// SaveStatus stores the snapshot of one chain.
func (s *StatusStore) SaveStatus(ctx context.Context, st failover.Status) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := s.rdb.Set(ctx, statusKey(st.Chain), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	return nil
}

// LoadStatus returns the stored snapshot of chain, if any.
func (s *StatusStore) LoadStatus(ctx context.Context, chain domain.ChainAlias) (failover.Status, bool, error) {
	var st failover.Status

	data, err := s.rdb.Get(ctx, statusKey(chain)).Bytes()
	if errors.Is(err, redis.Nil) {
		return st, false, nil
	}
	if err != nil {
		return st, false, fmt.Errorf("failed to get status: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, false, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return st, true, nil
}

// PublishTransition announces a failover transition.
func (s *StatusStore) PublishTransition(ctx context.Context, t failover.Transition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}
	if err := s.rdb.Publish(ctx, TransitionChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish transition: %w", err)
	}
	return nil
}

// SubscribeTransitions delivers transitions to fn until ctx ends. Malformed
// messages are skipped.
func (s *StatusStore) SubscribeTransitions(ctx context.Context, fn func(failover.Transition)) error {
	sub := s.rdb.Subscribe(ctx, TransitionChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var t failover.Transition
			if err := json.Unmarshal([]byte(msg.Payload), &t); err != nil {
				continue
			}
			fn(t)
		}
	}
}

// StatusSource looks up a running manager. *failover.Registry implements it.
type StatusSource interface {
	Get(chain domain.ChainAlias) (*failover.Manager, bool)
}

// Recorder writes manager events to a StatusStore.
type Recorder struct {
	store   *StatusStore
	source  StatusSource
	timeout time.Duration
	log     *slog.Logger
}

// NewRecorder creates a failover.Recorder backed by store.
func NewRecorder(store *StatusStore, source StatusSource, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		store:   store,
		source:  source,
		timeout: 2 * time.Second,
		log:     log.With("component", "redis_status"),
	}
}

// OnTransition publishes t and refreshes the chain's stored status.
func (r *Recorder) OnTransition(t failover.Transition) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.PublishTransition(ctx, t); err != nil {
		r.log.Warn("Failed to publish transition", "chain", t.Chain, "error", err)
	}
	r.save(ctx, t.Chain)
}

// OnSweep refreshes the chain's stored status.
func (r *Recorder) OnSweep(chain domain.ChainAlias, _ []domain.HealthResult) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.save(ctx, chain)
}

func (r *Recorder) save(ctx context.Context, chain domain.ChainAlias) {
	if r.source == nil {
		return
	}
	m, ok := r.source.Get(chain)
	if !ok {
		return
	}
	if err := r.store.SaveStatus(ctx, m.Status()); err != nil {
		r.log.Warn("Failed to save status", "chain", chain, "error", err)
	}
}
