package reviewstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/pkg/errors"
)

var _ Store = (*RedisStore)(nil)

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Addr      string        `json:"addr" mapstructure:"addr"`
	Password  string        `json:"-" mapstructure:"password"`
	DB        int           `json:"db" mapstructure:"db"`
	KeyPrefix string        `json:"key_prefix" mapstructure:"key_prefix"`
	TTL       time.Duration `json:"ttl" mapstructure:"ttl"` // 0 keeps states forever
}

// DefaultRedisConfig points at a local Redis
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "docrecon:review:",
	}
}

// Validate checks if the Redis configuration is valid
func (c RedisConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("redis backend requires an address")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis db must be non-negative, got %d", c.DB)
	}
	if c.TTL < 0 {
		return fmt.Errorf("redis ttl must be non-negative, got %s", c.TTL)
	}
	return nil
}

// RedisStore keeps each state as a JSON value under KeyPrefix+doc_no, with
// a set of doc_nos under KeyPrefix+"index" for listing
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisConfig().KeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// OpenRedis connects to Redis and checks the connection
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.StoreError(errors.CodeStoreUnavailable, BackendRedis, err).WithContext("addr", cfg.Addr)
	}
	return NewRedisStore(client, cfg.KeyPrefix, cfg.TTL), nil
}

func (s *RedisStore) key(docNo string) string {
	return s.prefix + "doc:" + docNo
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

func (s *RedisStore) Get(ctx context.Context, docNo string) (models.ReviewState, error) {
	data, err := s.client.Get(ctx, s.key(strings.TrimSpace(docNo))).Bytes()
	if err == redis.Nil {
		return models.ReviewState{}, ErrNotFound
	}
	if err != nil {
		return models.ReviewState{}, errors.StoreError(errors.CodeStoreRead, BackendRedis, err)
	}

	var st models.ReviewState
	if err := json.Unmarshal(data, &st); err != nil {
		return models.ReviewState{}, errors.StoreError(errors.CodeStoreRead, BackendRedis, err).WithContext("doc_no", docNo)
	}
	return st, nil
}

func (s *RedisStore) GetMany(ctx context.Context, docNos []string) (map[string]models.ReviewState, error) {
	return s.mget(ctx, uniqueDocNos(docNos))
}

func (s *RedisStore) mget(ctx context.Context, docNos []string) (map[string]models.ReviewState, error) {
	out := make(map[string]models.ReviewState, len(docNos))
	if len(docNos) == 0 {
		return out, nil
	}

	keys := make([]string, len(docNos))
	for i, d := range docNos {
		keys[i] = s.key(d)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreRead, BackendRedis, err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// missing or expired
			continue
		}
		var st models.ReviewState
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, errors.StoreError(errors.CodeStoreRead, BackendRedis, err).WithContext("doc_no", docNos[i])
		}
		out[docNos[i]] = st
	}
	return out, nil
}

func (s *RedisStore) Put(ctx context.Context, state models.ReviewState) error {
	state, err := prepare(state)
	if err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "encoding review state", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(state.DocNo), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), state.DocNo)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.StoreError(errors.CodeStoreWrite, BackendRedis, err).WithContext("doc_no", state.DocNo)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, docNo string) error {
	docNo = strings.TrimSpace(docNo)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(docNo))
	pipe.SRem(ctx, s.indexKey(), docNo)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.StoreError(errors.CodeStoreWrite, BackendRedis, err).WithContext("doc_no", docNo)
	}
	return nil
}

// List reads the index and drops entries whose values have expired
func (s *RedisStore) List(ctx context.Context) ([]models.ReviewState, error) {
	docNos, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreRead, BackendRedis, err)
	}

	found, err := s.mget(ctx, docNos)
	if err != nil {
		return nil, err
	}

	out := make([]models.ReviewState, 0, len(found))
	var expired []interface{}
	for _, d := range docNos {
		st, ok := found[d]
		if !ok {
			expired = append(expired, d)
			continue
		}
		out = append(out, st)
	}
	if len(expired) > 0 {
		s.client.SRem(ctx, s.indexKey(), expired...)
	}

	sortStates(out)
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
