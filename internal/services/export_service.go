package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/prepstack/scoring-service/internal/repositories"
	"github.com/prepstack/scoring-service/internal/scoring"
	"github.com/prepstack/scoring-service/internal/utils"
)

// ExportService renders attempt data as downloadable spreadsheets.
type ExportService interface {
	ExportTestAttempts(ctx context.Context, testID uint) (*ExportResult, error)
}

type ExportResult struct {
	FileName string
	Data     []byte
}

type exportService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewExportService(repo repositories.Repository, logger utils.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var attemptExportHeaders = []string{
	"Attempt ID", "User ID", "User Name", "Attempt #", "Latest",
	"Score", "Percentage", "Correct", "Wrong", "Unattempted",
	"Total Questions", "Time (sec)", "Completed At",
}

// ExportTestAttempts writes one row per completed attempt on the test.
func (s *exportService) ExportTestAttempts(ctx context.Context, testID uint) (*ExportResult, error) {
	s.logger.Info("Exporting test attempts", "test_id", testID)

	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	completed := true
	attempts, _, err := s.repo.Attempt().GetByTest(ctx, testID, repositories.AttemptFilters{
		Completed: &completed,
		SortBy:    "completed_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Attempts"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, header := range attemptExportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, a := range attempts {
		completedAt := ""
		if a.CompletedAt != nil {
			completedAt = a.CompletedAt.Format(time.RFC3339)
		}
		values := []interface{}{
			a.ID, a.UserID, a.User.FullName, a.AttemptNumber, a.IsLatest,
			a.Score, scoring.Round2(a.Percentage), a.CorrectAnswers, a.WrongAnswers, a.Unattempted,
			a.TotalQuestions, a.TotalTimeSec, completedAt,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Export complete", "test_id", testID, "rows", len(attempts))

	return &ExportResult{
		FileName: fmt.Sprintf("test_%d_attempts_%s.xlsx", test.ID, time.Now().UTC().Format("20060102")),
		Data:     buf.Bytes(),
	}, nil
}
