package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/models"
)

// RedisStore keeps records as JSON strings plus a sorted-set index scored by
// timestamp.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
	logger logger.Logger
}

func NewRedisStore(client *redis.Client, prefix string, log logger.Logger) *RedisStore {
	if prefix == "" {
		prefix = "triage"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "redis-store"}),
	}
}

func (s *RedisStore) recordKey(id string) string {
	return fmt.Sprintf("%s:conversation:%s", s.prefix, id)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":conversations"
}

// Save writes the record and its index entry in one MULTI/EXEC.
func (s *RedisStore) Save(ctx context.Context, record *models.ConversationRecord) (id string, err error) {
	ctx, done := observe(ctx, DriverRedis, "save")
	defer func() { done(err) }()

	if err := prepare(record, s.now()); err != nil {
		return "", err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", apperrors.NewStorageError("save", err)
	}
	score := record.Metadata.Time()
	if score.IsZero() {
		score = s.now()
	}
	id = record.Metadata.ConversationID

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(id), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(score.UnixMilli()), Member: id})
		return nil
	})
	if err != nil {
		return "", apperrors.NewStorageError("save", err)
	}
	return id, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (record *models.ConversationRecord, err error) {
	ctx, done := observe(ctx, DriverRedis, "load")
	defer func() { done(err) }()

	canonical, ok := canonicalID(id)
	if !ok {
		return nil, apperrors.NewConversationNotFoundError(id)
	}
	id = canonical

	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewConversationNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("load", err)
	}

	record = &models.ConversationRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, apperrors.NewStorageError("load", fmt.Errorf("decode %s: %w", id, err))
	}
	return record, nil
}

// List walks the index newest first. Index entries whose record is gone
// are skipped.
func (s *RedisStore) List(ctx context.Context, limit int) (items []models.Metadata, err error) {
	ctx, done := observe(ctx, DriverRedis, "list")
	defer func() { done(err) }()

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, apperrors.NewStorageError("list", err)
	}
	items = make([]models.Metadata, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.NewStorageError("list", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			s.logger.Warn("index entry without record", map[string]interface{}{"conversationId": ids[i]})
			continue
		}
		var head struct {
			Metadata models.Metadata `json:"metadata"`
		}
		if err := json.Unmarshal([]byte(raw), &head); err != nil {
			s.logger.Warn("skipping malformed conversation record", map[string]interface{}{"conversationId": ids[i]})
			continue
		}
		items = append(items, head.Metadata)
	}
	return items, nil
}
