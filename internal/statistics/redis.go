package statistics

import (
	"context"
	"fmt"
	"log"
	"time"

	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// SortedSets is the subset of Redis the mirror needs.
type SortedSets interface {
	ZIncrBy(ctx context.Context, key string, incr float64, member string) error
	ZRevRangeWithScores(ctx context.Context, key string, offset, limit int) ([]redis.Z, error)
}

type redisClient struct {
	client *redis.Client
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (SortedSets, error) {
	c := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		MaxRetries:      5,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		PoolSize:        5,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisClient{client: c}, nil
}

func (c *redisClient) ZIncrBy(ctx context.Context, key string, incr float64, member string) error {
	return c.client.ZIncrBy(ctx, key, incr, member).Err()
}

func (c *redisClient) ZRevRangeWithScores(ctx context.Context, key string, offset, limit int) ([]redis.Z, error) {
	return c.client.ZRevRangeWithScores(ctx, key, int64(offset), int64(offset+limit-1)).Result()
}

// RedisMirror copies leaderboard increments into Redis sorted sets after each commit so
// dashboards can read rankings without touching the ledger. It is never authoritative.
type RedisMirror struct {
	sets   SortedSets
	prefix string
}

func NewRedisMirror(sets SortedSets, prefix string) *RedisMirror {
	if prefix == "" {
		prefix = "lotteryhub"
	}
	return &RedisMirror{sets: sets, prefix: prefix}
}

func (m *RedisMirror) key(b model.Board) string {
	return m.prefix + ":leaderboard:" + string(b)
}

// Publish applies the leaderboard side of committed events.
func (m *RedisMirror) Publish(ctx context.Context, events []model.Event) {
	for _, e := range events {
		var board model.Board
		switch e.Type {
		case model.EventWinnerCredited:
			if e.Note == "nft" {
				continue
			}
			board = model.BoardWinners
		case model.EventTicketsPurchased:
			board = model.BoardBuyers
		case model.EventCreatorCredited:
			board = model.BoardCreators
		case model.EventExecutorCredited:
			board = model.BoardExecutors
		default:
			continue
		}
		if err := m.sets.ZIncrBy(ctx, m.key(board), e.Amount.InexactFloat64(), e.Account.Hex()); err != nil {
			log.Printf("[WARN] redis mirror: ZIncrBy %s: %v", board, err)
		}
	}
}

// Top reads a snapshot of a board from Redis.
func (m *RedisMirror) Top(ctx context.Context, board model.Board, n int) ([]model.Standing, error) {
	zs, err := m.sets.ZRevRangeWithScores(ctx, m.key(board), 0, n)
	if err != nil {
		return nil, fmt.Errorf("redis top %s: %w", board, err)
	}
	out := make([]model.Standing, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, model.Standing{
			Account: common.HexToAddress(member),
			Value:   decimal.NewFromFloat(z.Score),
			Rank:    i + 1,
		})
	}
	return out, nil
}
