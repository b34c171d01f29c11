package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/hupe1980/jobmesh/session"
)

// DefaultPrefix namespaces all session keys.
const DefaultPrefix = "jobmesh:session:"

// Options configures the Redis session store.
type Options struct {
	// Password authenticates against the Redis server. Empty means no auth.
	Password string

	// DB selects the Redis logical database.
	DB int

	// Prefix namespaces the session keys and the id index.
	Prefix string

	// TTL expires sessions after the given duration. Zero keeps them forever.
	TTL time.Duration
}

// Store is a session.Store backed by Redis. Sessions are stored as JSON
// values; a sorted set indexes the ids, scored by expiry time so that List
// can lazily prune entries whose values have expired.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ session.Store = (*Store)(nil)

// New connects to the Redis server at addr and returns a store.
func New(addr string, optFns ...func(o *Options)) *Store {
	opts := Options{Prefix: DefaultPrefix}

	for _, fn := range optFns {
		fn(&opts)
	}

	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return newStore(client, opts)
}

// NewFromClient wraps an existing Redis client. The caller keeps ownership
// of the client unless it hands it over and uses Close.
func NewFromClient(client *backend.Client, optFns ...func(o *Options)) *Store {
	opts := Options{Prefix: DefaultPrefix}

	for _, fn := range optFns {
		fn(&opts)
	}

	return newStore(client, opts)
}

func newStore(client *backend.Client, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	return &Store{
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the session value and updates the id index in one pipeline.
func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Index score mirrors the value expiry. Without a TTL the score is +inf
	// and the entry survives every prune.
	score := math.Inf(1)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(sess.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sess.ID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Get returns the session for the id, or session.ErrNotFound once the value
// is missing or expired.
func (s *Store) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, session.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// Delete removes the session value and its index entry. Unknown ids are
// ignored.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// List returns the ids of all live sessions. Index entries whose expiry
// score has passed are pruned first; Redis expires the values on its own,
// the index only learns about it here.
func (s *Store) List(ctx context.Context) ([]string, error) {
	max := fmt.Sprintf("%d", time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", max).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune session index: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return ids, nil
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
