package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pre-triage-server/internal/domain"
)

const (
	sessionKeyPrefix = "triage:session:"
	eventsKeyPrefix  = "triage:events:"
)

// RedisStore keeps sessions as JSON values with a TTL, for multi-instance
// deployments where turns for one session may land on different nodes.
// Optimistic concurrency is enforced with WATCH on the session key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects using a redis:// URL and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKeyPrefix+session.ID, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if !ok {
		return domain.ErrConflict
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, sessionKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session state: %w", err)
	}
	return &session, nil
}

// Update writes the new state inside a WATCH transaction: the write aborts
// when the stored turn index no longer matches expectedTurn, or when another
// writer touched the key between read and commit.
func (s *RedisStore) Update(ctx context.Context, session *domain.Session, expectedTurn int) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	key := sessionKeyPrefix + session.ID
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var current domain.Session
		if err := json.Unmarshal([]byte(val), &current); err != nil {
			return fmt.Errorf("unmarshaling stored state: %w", err)
		}
		if current.TurnIndex != expectedTurn {
			return domain.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	if err == redis.TxFailedErr {
		return domain.ErrConflict
	}
	if err != nil {
		if err == domain.ErrSessionNotFound || err == domain.ErrConflict {
			return err
		}
		return fmt.Errorf("updating session: %w", err)
	}
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Append pushes the event onto the session's event list. The list shares the
// session TTL so abandoned sessions do not leak their logs.
func (s *RedisStore) Append(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	key := eventsKeyPrefix + event.SessionID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

func (s *RedisStore) ListBySession(ctx context.Context, sessionID string) ([]*domain.Event, error) {
	vals, err := s.client.LRange(ctx, eventsKeyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	events := make([]*domain.Event, 0, len(vals))
	for _, val := range vals {
		var event domain.Event
		if err := json.Unmarshal([]byte(val), &event); err != nil {
			return nil, fmt.Errorf("unmarshaling event: %w", err)
		}
		events = append(events, &event)
	}
	return events, nil
}
