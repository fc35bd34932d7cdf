package services

import (
	"github.com/prepstack/scoring-service/internal/cache"
	"github.com/prepstack/scoring-service/internal/events"
	"github.com/prepstack/scoring-service/internal/repositories"
	"github.com/prepstack/scoring-service/internal/utils"
)

// ServiceManager hands out the service singletons to the HTTP layer.
type ServiceManager interface {
	Test() TestService
	Question() QuestionService
	Attempt() AttemptService
	Leaderboard() LeaderboardService
	Export() ExportService
}

type serviceManager struct {
	test        TestService
	question    QuestionService
	attempt     AttemptService
	leaderboard LeaderboardService
	export      ExportService
}

func NewServiceManager(
	repo repositories.Repository,
	logger utils.Logger,
	validator *utils.Validator,
	publisher events.EventPublisher,
	leaderboard *cache.LeaderboardStore,
	cacheService cache.CacheService,
) ServiceManager {
	return &serviceManager{
		test:        NewTestService(repo, logger, validator, publisher, leaderboard, cacheService),
		question:    NewQuestionService(repo, logger, validator, publisher, cacheService),
		attempt:     NewAttemptService(repo, logger, validator, publisher, leaderboard),
		leaderboard: NewLeaderboardService(repo, logger, leaderboard),
		export:      NewExportService(repo, logger),
	}
}

func (m *serviceManager) Test() TestService               { return m.test }
func (m *serviceManager) Question() QuestionService       { return m.question }
func (m *serviceManager) Attempt() AttemptService         { return m.attempt }
func (m *serviceManager) Leaderboard() LeaderboardService { return m.leaderboard }
func (m *serviceManager) Export() ExportService           { return m.export }
