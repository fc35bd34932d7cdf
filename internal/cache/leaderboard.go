package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// LeaderboardEntry is one ranked row from a per-test leaderboard.
type LeaderboardEntry struct {
	UserID     string  `json:"user_id"`
	Percentage float64 `json:"percentage"`
	Rank       int64   `json:"rank"` // 1-based
}

// LeaderboardStore keeps a sorted set per test, scored by the unrounded
// percentage so ranking never loses precision to display rounding.
type LeaderboardStore struct {
	client *redis.Client
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client}
}

func leaderboardKey(testID uint) string {
	return "leaderboard:test:" + strconv.FormatUint(uint64(testID), 10)
}

// UpdateScore records the user's latest completed score, replacing any
// previous entry for the same user.
func (s *LeaderboardStore) UpdateScore(ctx context.Context, testID uint, userID string, percentage float64) error {
	err := s.client.ZAdd(ctx, leaderboardKey(testID), redis.Z{
		Score:  percentage,
		Member: userID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to update leaderboard for test %d: %w", testID, err)
	}
	return nil
}

// Top returns the highest-scoring entries, best first.
func (s *LeaderboardStore) Top(ctx context.Context, testID uint, limit int64) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	results, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey(testID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard for test %d: %w", testID, err)
	}

	entries := make([]LeaderboardEntry, 0, len(results))
	for i, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			UserID:     member,
			Percentage: z.Score,
			Rank:       int64(i) + 1,
		})
	}
	return entries, nil
}

// Rank returns the user's 1-based position, or 0 when the user has no entry.
func (s *LeaderboardStore) Rank(ctx context.Context, testID uint, userID string) (int64, error) {
	rank, err := s.client.ZRevRank(ctx, leaderboardKey(testID), userID).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read leaderboard rank for test %d: %w", testID, err)
	}
	return rank + 1, nil
}

// Remove drops a user's entry, used when their attempts are invalidated.
func (s *LeaderboardStore) Remove(ctx context.Context, testID uint, userID string) error {
	return s.client.ZRem(ctx, leaderboardKey(testID), userID).Err()
}

// Clear drops the whole leaderboard for a test.
func (s *LeaderboardStore) Clear(ctx context.Context, testID uint) error {
	return s.client.Del(ctx, leaderboardKey(testID)).Err()
}
