package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"lendingrisk/native/lending"
	"lendingrisk/observability/metrics"
	"lendingrisk/services/riskd/storage"
)

// Store decorates a storage.Store with a redis read-through cache. Snapshots
// are immutable per epoch, so entries are only invalidated on rewrite. Redis
// failures are logged and the call falls through to the backing store.
type Store struct {
	next    storage.Store
	client  redis.Cmdable
	ttl     time.Duration
	prefix  string
	logger  *slog.Logger
	metrics *metrics.CacheMetrics
}

// Options tunes the cache.
type Options struct {
	TTL    time.Duration
	Prefix string
	Logger *slog.Logger
}

// New wraps next with the cache backed by client.
func New(next storage.Store, client redis.Cmdable, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if strings.TrimSpace(opts.Prefix) == "" {
		opts.Prefix = "riskd"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		next:    next,
		client:  client,
		ttl:     opts.TTL,
		prefix:  strings.TrimSpace(opts.Prefix),
		logger:  opts.Logger,
		metrics: metrics.Cache(),
	}
}

// Dial opens a redis client and verifies connectivity.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func (s *Store) marketKey(epoch uint64) string {
	return fmt.Sprintf("%s:market:%d", s.prefix, epoch)
}

func (s *Store) userKey(epoch uint64, user string) string {
	return fmt.Sprintf("%s:user:%d:%s", s.prefix, epoch, strings.ToLower(strings.TrimSpace(user)))
}

// PutMarket writes through to the store and drops the cached copy.
func (s *Store) PutMarket(ctx context.Context, market lending.Market) error {
	if err := s.next.PutMarket(ctx, market); err != nil {
		return err
	}
	s.invalidate(ctx, s.marketKey(market.Epoch))
	s.metrics.SetLatestEpoch(market.Epoch)
	return nil
}

// Market serves the market from redis when present.
func (s *Store) Market(ctx context.Context, epoch uint64) (lending.Market, error) {
	var market lending.Market
	key := s.marketKey(epoch)
	if s.lookup(ctx, "market", key, &market) {
		return market, nil
	}
	market, err := s.next.Market(ctx, epoch)
	if err != nil {
		return lending.Market{}, err
	}
	s.fill(ctx, key, market)
	return market, nil
}

// PutUser writes through to the store and drops the cached copy.
func (s *Store) PutUser(ctx context.Context, user lending.UserPositionSnapshot) error {
	if err := s.next.PutUser(ctx, user); err != nil {
		return err
	}
	s.invalidate(ctx, s.userKey(user.Epoch, user.User))
	return nil
}

// User serves the user snapshot from redis when present.
func (s *Store) User(ctx context.Context, epoch uint64, user string) (lending.UserPositionSnapshot, error) {
	var snapshot lending.UserPositionSnapshot
	key := s.userKey(epoch, user)
	if s.lookup(ctx, "user", key, &snapshot) {
		return snapshot, nil
	}
	snapshot, err := s.next.User(ctx, epoch, user)
	if err != nil {
		return lending.UserPositionSnapshot{}, err
	}
	s.fill(ctx, key, snapshot)
	return snapshot, nil
}

// Close closes the backing store. The redis client is owned by the caller.
func (s *Store) Close() error {
	return s.next.Close()
}

func (s *Store) lookup(ctx context.Context, kind, key string, out any) bool {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.metrics.IncFailure("get")
			s.logger.Warn("cache get failed", slog.String("key", key), slog.Any("error", err))
		}
		s.metrics.ObserveMiss(kind)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.metrics.IncFailure("decode")
		s.logger.Warn("cache entry corrupt", slog.String("key", key), slog.Any("error", err))
		s.invalidate(ctx, key)
		s.metrics.ObserveMiss(kind)
		return false
	}
	s.metrics.ObserveHit(kind)
	return true
}

func (s *Store) fill(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.metrics.IncFailure("encode")
		return
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.metrics.IncFailure("set")
		s.logger.Warn("cache set failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Store) invalidate(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.metrics.IncFailure("del")
		s.logger.Warn("cache invalidate failed", slog.String("key", key), slog.Any("error", err))
	}
}
