package platform

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/userplane/internal/model"
)

// --- モック定義 ---

// mockProfileRepo はrepository.ProfileRepositoryのモック実装。
type mockProfileRepo struct {
	upsertFn          func(ctx context.Context, profile *model.Profile) error
	findByAccountIDFn func(ctx context.Context, accountID string) (*model.Profile, error)
}

func (m *mockProfileRepo) Upsert(ctx context.Context, profile *model.Profile) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, profile)
	}
	return nil
}

func (m *mockProfileRepo) FindByAccountID(ctx context.Context, accountID string) (*model.Profile, error) {
	if m.findByAccountIDFn != nil {
		return m.findByAccountIDFn(ctx, accountID)
	}
	return nil, nil
}

func wantPlatformAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// --- 取得テスト ---

func TestProfileService_Get_Success(t *testing.T) {
	repo := &mockProfileRepo{
		findByAccountIDFn: func(ctx context.Context, accountID string) (*model.Profile, error) {
			return &model.Profile{AccountID: accountID, FullName: "Alice Example", UpdatedAt: time.Now()}, nil
		},
	}

	s := NewProfileService(repo)

	profile, err := s.Get(context.Background(), "acc-001")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if profile.FullName != "Alice Example" {
		t.Errorf("full name = %q, want %q", profile.FullName, "Alice Example")
	}
}

func TestProfileService_Get_NotFound(t *testing.T) {
	s := NewProfileService(&mockProfileRepo{})

	_, err := s.Get(context.Background(), "acc-001")
	wantPlatformAPIErrorCode(t, err, model.ErrCodeProfileNotFound)
}

// --- 保存テスト ---

func TestProfileService_Save_Success(t *testing.T) {
	var saved *model.Profile
	repo := &mockProfileRepo{
		upsertFn: func(ctx context.Context, profile *model.Profile) error {
			saved = profile
			return nil
		},
	}

	s := NewProfileService(repo)

	profile, err := s.Save(context.Background(), "acc-001", "  Alice Example ", "hello world")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if profile.FullName != "Alice Example" {
		t.Errorf("full name = %q, want trimmed %q", profile.FullName, "Alice Example")
	}
	if saved == nil {
		t.Fatal("expected profile to be persisted")
	}
}

func TestProfileService_Save_MissingFullName(t *testing.T) {
	s := NewProfileService(&mockProfileRepo{})

	_, err := s.Save(context.Background(), "acc-001", "   ", "bio")
	wantPlatformAPIErrorCode(t, err, model.ErrCodeInvalidInput)
}

func TestProfileService_Save_SanitizesBio(t *testing.T) {
	s := NewProfileService(&mockProfileRepo{})

	profile, err := s.Save(context.Background(), "acc-001", "Alice",
		`<p>hello</p><script>alert("xss")</script>`)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if strings.Contains(profile.Bio, "<script>") {
		t.Errorf("bio contains script tag after sanitization: %q", profile.Bio)
	}
	if !strings.Contains(profile.Bio, "hello") {
		t.Errorf("bio lost benign content: %q", profile.Bio)
	}
}
