// Package platform はゲートウェイ背後の業務サービス
// （プロフィール・通知・レポート）のビジネスロジックを提供する。
// アイデンティティはゲートウェイが解決済みのものを信頼し、
// アカウントの一次的な認証判断はここでは行わない。
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/userplane/internal/model"
	"github.com/hitoshi/userplane/internal/repository"
)

// ProfileService はプロフィールの取得・保存を提供する。
type ProfileService struct {
	profiles  repository.ProfileRepository
	sanitizer *bluemonday.Policy
}

// NewProfileService はProfileServiceを生成する。
// bioはユーザー入力のリッチテキストとして扱い、UGCポリシーでサニタイズする。
func NewProfileService(profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{
		profiles:  profiles,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Get は指定アカウントのプロフィールを取得する。
func (s *ProfileService) Get(ctx context.Context, accountID string) (*model.Profile, error) {
	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError(accountID)
	}
	return profile, nil
}

// Save はプロフィールを冪等に作成または更新する。
// full_nameは必須。bioはサニタイズしてから永続化する。
func (s *ProfileService) Save(ctx context.Context, accountID, fullName, bio string) (*model.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, model.NewInvalidInputError("full_name is required")
	}

	profile := &model.Profile{
		AccountID: accountID,
		FullName:  fullName,
		Bio:       s.sanitizer.Sanitize(strings.TrimSpace(bio)),
		UpdatedAt: time.Now(),
	}

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	slog.Info("profile saved", slog.String("account_id", accountID))
	return profile, nil
}
