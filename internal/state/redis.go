package state

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
)

const (
	snapshotsKey   = "tradehub:snapshots"
	responsePrefix = "tradehub:response:"
	resultPrefix   = "tradehub:result:"
)

// RedisStore shares state between the server and worker processes
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on the given client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func field(accountID uint) string {
	return strconv.FormatUint(uint64(accountID), 10)
}

func (s *RedisStore) PutSnapshot(ctx context.Context, snap models.AccountSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	return errors.Wrap(s.client.HSet(ctx, snapshotsKey, field(snap.AccountID), raw).Err(), "put snapshot")
}

func (s *RedisStore) Snapshot(ctx context.Context, accountID uint) (models.AccountSnapshot, bool, error) {
	raw, err := s.client.HGet(ctx, snapshotsKey, field(accountID)).Bytes()
	if err == redis.Nil {
		return models.AccountSnapshot{}, false, nil
	}
	if err != nil {
		return models.AccountSnapshot{}, false, errors.Wrap(err, "get snapshot")
	}
	var snap models.AccountSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.AccountSnapshot{}, false, errors.Wrap(err, "decode snapshot")
	}
	return snap, true, nil
}

func (s *RedisStore) Snapshots(ctx context.Context) (map[uint]models.AccountSnapshot, error) {
	all, err := s.client.HGetAll(ctx, snapshotsKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}
	out := make(map[uint]models.AccountSnapshot, len(all))
	for k, raw := range all {
		var snap models.AccountSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			logger.Warn("skipping undecodable snapshot", zap.String("account", k), zap.Error(err))
			continue
		}
		out[snap.AccountID] = snap
	}
	return out, nil
}

func (s *RedisStore) MarkStatus(ctx context.Context, accountID uint, status models.Status, detail string) error {
	snap, _, err := s.Snapshot(ctx, accountID)
	if err != nil {
		return err
	}
	return s.PutSnapshot(ctx, withStatus(snap, accountID, status, detail))
}

func (s *RedisStore) DeleteSnapshot(ctx context.Context, accountID uint) error {
	return errors.Wrap(s.client.HDel(ctx, snapshotsKey, field(accountID)).Err(), "delete snapshot")
}

func (s *RedisStore) PutResponse(ctx context.Context, correlationID string, payload []byte) error {
	return errors.Wrap(s.client.Set(ctx, responsePrefix+correlationID, payload, s.ttl).Err(), "put response")
}

func (s *RedisStore) TakeResponse(ctx context.Context, correlationID string) ([]byte, bool, error) {
	key := responsePrefix + correlationID
	var get *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "take response")
	}
	raw, err := get.Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	return raw, err == nil, errors.Wrap(err, "take response")
}

func (s *RedisStore) PutResult(ctx context.Context, correlationID string, accountID uint, msg string) error {
	key := resultPrefix + correlationID
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field(accountID), msg)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return errors.Wrap(err, "put result")
}

func (s *RedisStore) Results(ctx context.Context, correlationID string) (map[uint]string, error) {
	all, err := s.client.HGetAll(ctx, resultPrefix+correlationID).Result()
	if err != nil {
		return nil, errors.Wrap(err, "get results")
	}
	out := make(map[uint]string, len(all))
	for k, msg := range all {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		out[uint(id)] = msg
	}
	return out, nil
}

func (s *RedisStore) ClearResults(ctx context.Context, correlationID string) error {
	return errors.Wrap(s.client.Del(ctx, resultPrefix+correlationID).Err(), "clear results")
}
