// Package auth は管理者のパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/marsblog/internal/model"
	"github.com/hitoshi/marsblog/internal/repository"
)

// ErrInvalidCredentials はユーザー名またはパスワードが正しくないことを表す。
// ユーザー不在とパスワード不一致は区別しない。
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSessionNotFound はセッションが存在しないか期限切れであることを表す。
var ErrSessionNotFound = errors.New("session not found or expired")

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // 0の場合はbcrypt.DefaultCost
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	adminRepo   repository.AdminRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService はServiceを生成する。
func NewService(
	adminRepo repository.AdminRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Login はユーザー名とパスワードを検証し、成功した場合はセッションを発行する。
// 認証失敗は常にErrInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	admin, err := s.adminRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}

	if admin == nil {
		// 応答時間でユーザーの存在が分からないようダミーハッシュと比較する
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		slog.Warn("admin login failed", slog.String("reason", "unknown user"))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		slog.Warn("admin login failed", slog.String("reason", "password mismatch"))
		return nil, ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, admin.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("admin logged in", slog.String("username", admin.Username))
	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("admin logged out")
	return nil
}

// CurrentAdmin はセッションから現在の管理者名を取得する。
// セッションが無い、または期限切れの場合はErrSessionNotFoundを返す。
func (s *Service) CurrentAdmin(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionNotFound
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return "", ErrSessionNotFound
	}
	return session.Username, nil
}

// EnsureDefaultAdmin は管理者が未登録の場合のみ、指定の認証情報で作成する。
// 作成した場合はtrueを返す。既存の管理者のパスワードは変更しない。
func (s *Service) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, &model.ValidationError{Field: "admin", Reason: "username and password are required"}
	}

	existing, err := s.adminRepo.FindByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to find admin: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return false, err
	}
	if err := s.adminRepo.Save(ctx, model.NewAdmin(username, hash)); err != nil {
		return false, fmt.Errorf("failed to save admin: %w", err)
	}

	slog.Info("default admin created", slog.String("username", username))
	return true, nil
}

// PurgeExpiredSessions は期限切れセッションを削除する。
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx)
}

// SessionMaxAge はセッション有効期間を返す。
func (s *Service) SessionMaxAge() time.Duration {
	return time.Duration(s.config.SessionMaxAge) * time.Second
}

// HashPassword はパスワードのbcryptハッシュを返す。
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), s.config.BcryptCost)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, username string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		Username:  username,
		ExpiresAt: now.Add(s.SessionMaxAge()),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
