package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/userplane/internal/model"
	"github.com/hitoshi/userplane/internal/repository"
)

// ReportService はアカウントの集計レポートを組み立てる。
type ReportService struct {
	accounts      repository.AccountRepository
	profiles      repository.ProfileRepository
	notifications repository.NotificationRepository
}

// NewReportService はReportServiceを生成する。
func NewReportService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	notifications repository.NotificationRepository,
) *ReportService {
	return &ReportService{
		accounts:      accounts,
		profiles:      profiles,
		notifications: notifications,
	}
}

// Build は指定アカウントのレポートを生成する。
// アカウントが存在しない場合はACCOUNT_NOT_FOUND、
// プロフィール未作成はエラーではなくnilとして含める。
func (s *ReportService) Build(ctx context.Context, accountID string) (*model.Report, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError(accountID)
	}

	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	count, err := s.notifications.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return &model.Report{
		AccountID:         account.ID,
		Login:             account.Login,
		Status:            account.Status,
		RegisteredAt:      account.CreatedAt,
		Profile:           profile,
		NotificationCount: count,
		GeneratedAt:       time.Now(),
	}, nil
}
