package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type dbSequence struct {
	db *sqlx.DB
}

// NewSequenceGenerator returns a counter stored in the display_sequences
// table. Each call is a single atomic upsert.
func NewSequenceGenerator(db *sqlx.DB) SequenceGenerator {
	return &dbSequence{db: db}
}

func (s *dbSequence) Next(ctx context.Context, name string) (int64, error) {
	query := s.db.Rebind(`
		INSERT INTO display_sequences (name, current_value) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET current_value = display_sequences.current_value + 1
		RETURNING current_value`)

	var n int64
	if err := s.db.GetContext(ctx, &n, query, name); err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	return n, nil
}

type redisSequence struct {
	client redis.Cmdable
	prefix string
}

// NewRedisSequenceGenerator returns a counter backed by redis INCR.
func NewRedisSequenceGenerator(client redis.Cmdable) SequenceGenerator {
	return &redisSequence{client: client, prefix: "coop-ledger:seq:"}
}

func (s *redisSequence) Next(ctx context.Context, name string) (int64, error) {
	n, err := s.client.Incr(ctx, s.prefix+name).Result()
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	return n, nil
}
