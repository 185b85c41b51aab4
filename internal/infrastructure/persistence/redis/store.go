// Package redis implements a Redis-backed penalty state store. Each group's
// state is a single JSON blob under a namespaced key, so a load is one GET
// and a save is one SET. Suited to deployments that already run Redis and
// don't want a relational database for a handful of small groups.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
	"github.com/penalty-hub/penalty-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS AND KEYS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrConnection is returned when the Redis connection fails.
	ErrConnection = errors.New("redis: connection failed")
)

// PrefixState namespaces penalty state keys.
const PrefixState = "penalty:state:"

// StateKey returns the Redis key holding a group's state blob.
func StateKey(group penalty.GroupID) string {
	return PrefixState + string(group)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store persists penalty state blobs in Redis. It implements penalty.StateStore.
// Keys carry no TTL; penalty records are durable data, not cache entries.
type Store struct {
	client  *redis.Client
	config  Config
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewStore connects to Redis and verifies the connection.
func NewStore(cfg Config, log *logger.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return &Store{
		client:  client,
		config:  cfg,
		retrier: retry.CacheRetrier(),
		log:     log,
	}, nil
}

// Client returns the underlying Redis client for advanced operations.
func (s *Store) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load fetches the state blob for a group. A missing key or an undecodable
// blob yields a fresh default state.
func (s *Store) Load(ctx context.Context, group penalty.GroupID) (*penalty.PenaltyState, error) {
	var blob []byte
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		data, getErr := s.client.Get(ctx, StateKey(group)).Bytes()
		if getErr != nil {
			if errors.Is(getErr, redis.Nil) {
				return retry.Permanent(errNoState)
			}
			return retry.Retryable(getErr)
		}
		blob = data
		return nil
	})
	if errors.Is(err, errNoState) {
		return penalty.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load state for %s: %w", group, err)
	}

	state, err := penalty.UnmarshalState(blob)
	if err != nil {
		s.log.Warn("stored penalty state is not decodable, starting fresh",
			logger.GroupID(string(group)),
			logger.Err(err),
		)
		return penalty.NewState(), nil
	}
	return state, nil
}

// Save writes the full state blob for a group.
func (s *Store) Save(ctx context.Context, group penalty.GroupID, state *penalty.PenaltyState) error {
	blob, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("redis: encode state for %s: %w", group, err)
	}

	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		if setErr := s.client.Set(ctx, StateKey(group), blob, 0).Err(); setErr != nil {
			return retry.Retryable(setErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save state for %s: %w", group, err)
	}
	return nil
}

var errNoState = errors.New("redis: no stored state")
