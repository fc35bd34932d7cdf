package services

import (
	"context"
	"fmt"

	"github.com/prepstack/scoring-service/internal/cache"
	"github.com/prepstack/scoring-service/internal/repositories"
	"github.com/prepstack/scoring-service/internal/scoring"
	"github.com/prepstack/scoring-service/internal/utils"
)

// LeaderboardService serves per-test rankings. Redis is the fast path;
// when it is cold or unavailable the ranking is rebuilt from the database.
type LeaderboardService interface {
	GetTop(ctx context.Context, testID uint, limit int64) (*LeaderboardResponse, error)
	GetUserRank(ctx context.Context, testID uint, userID string) (*UserRankResponse, error)
	Rebuild(ctx context.Context, testID uint) error
}

// ===== RESPONSE STRUCTS =====

type LeaderboardRow struct {
	Rank       int64   `json:"rank"`
	UserID     string  `json:"user_id"`
	UserName   string  `json:"user_name,omitempty"`
	Percentage float64 `json:"percentage"` // Rounded for display
}

type LeaderboardResponse struct {
	TestID  uint             `json:"test_id"`
	Entries []LeaderboardRow `json:"entries"`
}

type UserRankResponse struct {
	TestID     uint    `json:"test_id"`
	UserID     string  `json:"user_id"`
	Rank       int64   `json:"rank"` // 0 when unranked
	Percentage float64 `json:"percentage"`
}

// ===== SERVICE IMPLEMENTATION =====

type leaderboardService struct {
	repo        repositories.Repository
	logger      utils.Logger
	leaderboard *cache.LeaderboardStore
}

func NewLeaderboardService(
	repo repositories.Repository,
	logger utils.Logger,
	leaderboard *cache.LeaderboardStore,
) LeaderboardService {
	return &leaderboardService{
		repo:        repo,
		logger:      logger,
		leaderboard: leaderboard,
	}
}

func (s *leaderboardService) GetTop(ctx context.Context, testID uint, limit int64) (*LeaderboardResponse, error) {
	exists, err := s.repo.Test().ExistsByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return nil, ErrTestNotFound
	}

	entries, err := s.leaderboard.Top(ctx, testID, limit)
	if err != nil || len(entries) == 0 {
		if err != nil {
			s.logger.Warn("Leaderboard read failed, falling back to database",
				"test_id", testID, "error", err)
		}
		return s.topFromDatabase(ctx, testID, limit)
	}

	resp := &LeaderboardResponse{TestID: testID, Entries: make([]LeaderboardRow, 0, len(entries))}
	userIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		userIDs = append(userIDs, e.UserID)
	}
	names := s.lookupNames(ctx, userIDs)

	for _, e := range entries {
		resp.Entries = append(resp.Entries, LeaderboardRow{
			Rank:       e.Rank,
			UserID:     e.UserID,
			UserName:   names[e.UserID],
			Percentage: scoring.Round2(e.Percentage),
		})
	}
	return resp, nil
}

func (s *leaderboardService) GetUserRank(ctx context.Context, testID uint, userID string) (*UserRankResponse, error) {
	rank, err := s.leaderboard.Rank(ctx, testID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rank: %w", err)
	}

	resp := &UserRankResponse{TestID: testID, UserID: userID, Rank: rank}
	if rank == 0 {
		return resp, nil
	}

	attempt, err := s.repo.Attempt().GetLatestAttempt(ctx, testID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attempt: %w", err)
	}
	if attempt != nil {
		resp.Percentage = scoring.Round2(attempt.Percentage)
	}
	return resp, nil
}

// Rebuild repopulates the redis sorted set from each user's latest
// completed attempt.
func (s *leaderboardService) Rebuild(ctx context.Context, testID uint) error {
	s.logger.Info("Rebuilding leaderboard", "test_id", testID)

	attempts, err := s.repo.Attempt().GetLatestCompletedByTest(ctx, testID)
	if err != nil {
		return fmt.Errorf("failed to load attempts: %w", err)
	}

	if err := s.leaderboard.Clear(ctx, testID); err != nil {
		return fmt.Errorf("failed to clear leaderboard: %w", err)
	}
	for _, a := range attempts {
		if err := s.leaderboard.UpdateScore(ctx, testID, a.UserID, a.Percentage); err != nil {
			return fmt.Errorf("failed to restore leaderboard entry: %w", err)
		}
	}

	s.logger.Info("Leaderboard rebuilt", "test_id", testID, "entries", len(attempts))
	return nil
}

func (s *leaderboardService) topFromDatabase(ctx context.Context, testID uint, limit int64) (*LeaderboardResponse, error) {
	attempts, err := s.repo.Attempt().GetLatestCompletedByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	resp := &LeaderboardResponse{TestID: testID, Entries: make([]LeaderboardRow, 0)}
	for i, a := range attempts {
		if limit > 0 && int64(i) >= limit {
			break
		}
		resp.Entries = append(resp.Entries, LeaderboardRow{
			Rank:       int64(i) + 1,
			UserID:     a.UserID,
			UserName:   a.User.FullName,
			Percentage: scoring.Round2(a.Percentage),
		})
	}
	return resp, nil
}

func (s *leaderboardService) lookupNames(ctx context.Context, userIDs []string) map[string]string {
	names := make(map[string]string, len(userIDs))
	users, err := s.repo.User().GetByIDs(ctx, userIDs)
	if err != nil {
		s.logger.Warn("Failed to resolve user names for leaderboard", "error", err)
		return names
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names
}
