package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ConnectRedis ouvre et vérifie la connexion Redis.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("REDIS_HOST non configuré")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("impossible de se connecter à Redis: %w", err)
	}
	return client, nil
}

// Redis stocke le panier dans une clé Redis et publie chaque écriture sur
// le canal "<clé>:events".
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	origin string
	logger *zap.Logger
}

type RedisOption func(*Redis)

// WithTTL fixe l'expiration de la clé. 0 = pas d'expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

func WithRedisLogger(l *zap.Logger) RedisOption {
	return func(r *Redis) { r.logger = l.Named("storage.redis") }
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		origin: uuid.NewString(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Origin() string { return r.origin }

func (r *Redis) Client() *redis.Client { return r.client }

func eventsChannel(key string) string { return key + ":events" }

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	payload, err := r.payload(key, EventUpdated)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, value, r.ttl)
	pipe.Publish(ctx, eventsChannel(key), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	payload, err := r.payload(key, EventCleared)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.Publish(ctx, eventsChannel(key), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, key string) (<-chan Event, error) {
	pubsub := r.client.Subscribe(ctx, eventsChannel(key))
	// Attendre la confirmation pour ne rien rater après le retour.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", key, err)
	}

	out := make(chan Event, eventBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev := decodeEvent(key, msg.Payload)
				if ev.Origin == r.origin {
					continue
				}
				select {
				case out <- ev:
				default:
					r.logger.Debug("événement ignoré, relecture déjà en attente", zap.String("key", key))
				}
			}
		}
	}()

	return out, nil
}

func (r *Redis) payload(key string, kind EventKind) (string, error) {
	data, err := json.Marshal(Event{Key: key, Kind: kind, Origin: r.origin})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeEvent accepte aussi les messages bruts "updated" / "cleared".
func decodeEvent(key, payload string) Event {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Kind == "" {
		return Event{Key: key, Kind: EventKind(payload)}
	}
	if ev.Key == "" {
		ev.Key = key
	}
	return ev
}
