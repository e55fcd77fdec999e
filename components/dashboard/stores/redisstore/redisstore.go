// Package redisstore persists report dashboards as JSON values in Redis or
// Valkey, one key per user.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/goliatone/go-reports-dashboard/components/dashboard"
)

// DefaultPrefix namespaces dashboard keys.
const DefaultPrefix = "reportboard:dashboard:"

// Client is the subset of redis.Cmdable the store needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Store implements dashboard.LayoutStore on Redis.
type Store struct {
	client Client
	prefix string
	ttl    time.Duration
}

var _ dashboard.LayoutStore = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL expires dashboards after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New wraps client.
func New(client Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to a single Redis node and verifies it with PING.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redisstore: ping %s: %w", addr, err)
	}
	return New(client, opts...), client, nil
}

// Key returns the key holding userID's dashboard.
func (s *Store) Key(userID string) string {
	return s.prefix + userID
}

// Get returns the dashboard of userID or dashboard.ErrDocumentNotFound.
func (s *Store) Get(ctx context.Context, userID string) (dashboard.Document, error) {
	if userID == "" {
		return dashboard.Document{}, dashboard.ErrMissingUser
	}
	data, err := s.client.Get(ctx, s.Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dashboard.Document{}, dashboard.ErrDocumentNotFound
	}
	if err != nil {
		return dashboard.Document{}, fmt.Errorf("redisstore: get %s: %w", userID, err)
	}
	var doc dashboard.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return dashboard.Document{}, fmt.Errorf("redisstore: decode %s: %w", userID, err)
	}
	return doc, nil
}

// Put overwrites the dashboard of userID.
func (s *Store) Put(ctx context.Context, userID string, doc dashboard.Document) error {
	if userID == "" {
		return dashboard.ErrMissingUser
	}
	doc.UserID = userID
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redisstore: encode %s: %w", userID, err)
	}
	if err := s.client.Set(ctx, s.Key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", userID, err)
	}
	return nil
}
