package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/coffeebuddy/internal/core/errx"
	"github.com/avvvet/coffeebuddy/internal/models"
	logx "github.com/avvvet/coffeebuddy/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisJournal appends orders and audit entries to Redis lists. Audit lists
// are per user and expire after ttl; the order list is shared and does not.
type RedisJournal struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

// record is what is stored in each list element
type record struct {
	Envelope
	At time.Time `json:"at"`
}

// NewRedisClient parses redisURL and checks the connection
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func NewRedisJournal(rdb redis.Cmdable, ttl time.Duration) *RedisJournal {
	return &RedisJournal{rdb: rdb, ttl: ttl, now: time.Now}
}

func OrdersKey() string {
	return "orders"
}

func AuditKey(userID string) string {
	return fmt.Sprintf("audit:%s", userID)
}

func (r *RedisJournal) SubmitOrder(ctx context.Context, order models.Order) error {
	return r.push(ctx, OrdersKey(), Envelope{
		Kind:   KindOrder,
		UserID: order.UserID,
		Text:   order.Summary(),
		Data:   order,
	}, false)
}

func (r *RedisJournal) Record(ctx context.Context, entry models.AuditEntry) error {
	return r.push(ctx, AuditKey(entry.UserID), Envelope{
		Kind:   KindAudit,
		UserID: entry.UserID,
		Text:   entry.Text(),
		Data:   entry,
	}, true)
}

func (r *RedisJournal) push(ctx context.Context, key string, env Envelope, expire bool) error {
	b, err := json.Marshal(record{Envelope: env, At: r.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Kind, err)
	}

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push to redis")
		return errx.WrapRedis(err)
	}

	// extend TTL on touch
	if expire && r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on audit key")
		}
	}
	return nil
}

var (
	_ OrderSink = (*RedisJournal)(nil)
	_ AuditLog  = (*RedisJournal)(nil)
)
