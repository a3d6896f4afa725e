package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
)

const keyPrefix = "tradehub:commands:"

// Key returns the Redis list holding an account's commands
func Key(accountID uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, accountID)
}

type redisChannel struct {
	client *redis.Client
	key    string
}

func (c *redisChannel) Push(ctx context.Context, cmd models.Command) error {
	raw, err := json.Marshal(cmd)
	if err != nil {
		return errors.Wrap(err, "encode command")
	}
	return errors.Wrap(c.client.RPush(ctx, c.key, raw).Err(), "push command")
}

// Drain reads and deletes the list in one transaction so a command pushed
// concurrently lands either in this batch or the next one.
func (c *redisChannel) Drain(ctx context.Context) ([]models.Command, error) {
	var rng *redis.StringSliceCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rng = pipe.LRange(ctx, c.key, 0, -1)
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "drain commands")
	}
	raws := rng.Val()
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]models.Command, 0, len(raws))
	for _, raw := range raws {
		var cmd models.Command
		if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
			logger.Warn("dropping undecodable command", zap.String("key", c.key), zap.Error(err))
			continue
		}
		out = append(out, cmd)
	}
	return out, nil
}

// RedisBroker keeps one Redis list per account so workers in other
// processes can consume them.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker creates a broker on the given client
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Open(ctx context.Context, accountID uint) (Channel, error) {
	key := Key(accountID)
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return nil, errors.Wrapf(err, "reset %s", key)
	}
	return &redisChannel{client: b.client, key: key}, nil
}

func (b *RedisBroker) Attach(accountID uint) Channel {
	return &redisChannel{client: b.client, key: Key(accountID)}
}

func (b *RedisBroker) Release(ctx context.Context, accountID uint) ([]models.Command, error) {
	ch := &redisChannel{client: b.client, key: Key(accountID)}
	return ch.Drain(ctx)
}
