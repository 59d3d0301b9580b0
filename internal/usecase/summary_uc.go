package usecase

import (
	"context"
	"fmt"

	"finance-service/internal/domain"
	"finance-service/internal/repository"
	"finance-service/internal/xerrors"
)

// SummaryUsecase serves aggregation reads. Totals are computed live from
// the records and accounts tables rather than maintained as counters.
type SummaryUsecase struct {
	summaries repository.SummaryRepository
}

func NewSummaryUsecase(summaries repository.SummaryRepository) *SummaryUsecase {
	return &SummaryUsecase{summaries: summaries}
}

func (uc *SummaryUsecase) ProjectTotals(ctx context.Context, projectCode string) (*domain.ProjectSummary, error) {
	if projectCode == "" {
		return nil, fmt.Errorf("project code required: %w", xerrors.ErrConstraint)
	}
	s, err := uc.summaries.ProjectTotals(ctx, projectCode)
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return s, nil
}

func (uc *SummaryUsecase) GlobalSummary(ctx context.Context) (*domain.GlobalSummary, error) {
	s, err := uc.summaries.GlobalSummary(ctx)
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return s, nil
}
