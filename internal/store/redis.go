package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/trubax/trubax-core/internal/domain"
)

const redisTxRetries = 5

// RedisStore keeps each record in a hash and each score index in a sorted
// set. Batches run under WATCH/MULTI: conditions are evaluated against the
// watched keys and the pipeline aborts if any watched key changes before
// EXEC, so commit-time preconditions hold without server-side scripting.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	maxOps int
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "trubax"
	}
	return &RedisStore{client: client, prefix: prefix, maxOps: defaultMaxBatchOps}
}

func (s *RedisStore) MaxBatchOps() int { return s.maxOps }

func (s *RedisStore) recKey(key string) string   { return s.prefix + ":rec:" + key }
func (s *RedisStore) idxKey(name string) string  { return s.prefix + ":idx:" + name }
func (s *RedisStore) stripRec(raw string) string { return raw[len(s.prefix)+5:] }

func (s *RedisStore) Get(ctx context.Context, key string) (Record, error) {
	raw, err := s.client.HGetAll(ctx, s.recKey(key)).Result()
	if err != nil {
		return nil, domain.Transientf("redis hgetall %s: %v", key, err)
	}
	if len(raw) == 0 {
		return nil, domain.NotFoundf("record %s", key)
	}
	return decodeRecord(raw)
}

func (s *RedisStore) Set(ctx context.Context, key string, fields Record) error {
	kv, err := encodeRecord(fields)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.recKey(key), kv).Err(); err != nil {
		return domain.Transientf("redis hset %s: %v", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.recKey(key)).Err(); err != nil {
		return domain.Transientf("redis del %s: %v", key, err)
	}
	return nil
}

func (s *RedisStore) AtomicBatch(ctx context.Context, ops []Op) error {
	if err := CheckBatchSize(s, ops); err != nil {
		return err
	}

	watch := make([]string, 0, len(ops))
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		k := s.recKey(op.Key)
		if !seen[k] {
			seen[k] = true
			watch = append(watch, k)
		}
	}

	txf := func(tx *redis.Tx) error {
		for _, op := range ops {
			if op.Condition == nil {
				continue
			}
			raw, err := tx.HGetAll(ctx, s.recKey(op.Key)).Result()
			if err != nil {
				return domain.Transientf("redis hgetall %s: %v", op.Key, err)
			}
			var snapshot Record
			if len(raw) > 0 {
				snapshot, err = decodeRecord(raw)
				if err != nil {
					return err
				}
			}
			if !op.Condition.Evaluate(snapshot) {
				return domain.Conflictf("precondition failed for %s", op.Key)
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, op := range ops {
				if op.Delete {
					pipe.Del(ctx, s.recKey(op.Key))
				} else if op.Fields != nil {
					kv, err := encodeRecord(op.Fields)
					if err != nil {
						return err
					}
					pipe.HSet(ctx, s.recKey(op.Key), kv)
				}
				if op.Index == nil {
					continue
				}
				if op.Index.Remove {
					pipe.ZRem(ctx, s.idxKey(op.Index.Name), op.Key)
				} else {
					pipe.ZAdd(ctx, s.idxKey(op.Index.Name), redis.Z{
						Score:  float64(op.Index.Score),
						Member: op.Key,
					})
				}
			}
			return nil
		})
		return err
	}

	for i := 0; i < redisTxRetries; i++ {
		err := s.client.Watch(ctx, txf, watch...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			// A watched key changed before EXEC; re-evaluate conditions
			// against the new state.
			continue
		}
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrValidation) {
			return err
		}
		if errors.Is(err, domain.ErrTransientStore) {
			return err
		}
		return domain.Transientf("redis batch: %v", err)
	}
	return domain.Conflictf("batch contended %d times", redisTxRetries)
}

func (s *RedisStore) ScanPrefix(ctx context.Context, prefix string, fn func(key string, rec Record) error) error {
	var cursor uint64
	match := s.recKey(prefix) + "*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return domain.Transientf("redis scan %s: %v", prefix, err)
		}
		for _, raw := range keys {
			fields, err := s.client.HGetAll(ctx, raw).Result()
			if err != nil {
				return domain.Transientf("redis hgetall %s: %v", raw, err)
			}
			if len(fields) == 0 {
				continue
			}
			rec, err := decodeRecord(fields)
			if err != nil {
				return err
			}
			if err := fn(s.stripRec(raw), rec); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *RedisStore) ScanIndex(ctx context.Context, name string, maxScore int64, fn func(key string) error) error {
	keys, err := s.client.ZRangeByScore(ctx, s.idxKey(name), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(maxScore, 10),
	}).Result()
	if err != nil {
		return domain.Transientf("redis zrangebyscore %s: %v", name, err)
	}
	for _, k := range keys {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

func encodeRecord(fields Record) (map[string]string, error) {
	kv := make(map[string]string, len(fields))
	for f, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, domain.Validationf("field %s not encodable: %v", f, err)
		}
		kv[f] = string(b)
	}
	return kv, nil
}

func decodeRecord(raw map[string]string) (Record, error) {
	rec := make(Record, len(raw))
	for f, enc := range raw {
		var v any
		if err := json.Unmarshal([]byte(enc), &v); err != nil {
			return nil, fmt.Errorf("decode field %s: %w", f, err)
		}
		rec[f] = v
	}
	return rec, nil
}
