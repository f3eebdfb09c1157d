// Package source は収集ソースの登録・照会サービスを提供する。
package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/repository"
)

// URLValidator はURLの安全性検証のインターフェース。
// security.SSRFGuardServiceがこれを満たす。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// CreateInput はソース登録の入力。
type CreateInput struct {
	Name   string
	Type   model.SourceType
	URL    string
	Config map[string]any
	Active *bool // nilの場合はtrue
}

// Service は収集ソースの登録・照会を行うサービス。
type Service struct {
	sources repository.SourceRepository
	guard   URLValidator
	logger  *slog.Logger
	now     func() time.Time // テスト用に現在時刻を差し替え可能
}

// NewService はServiceを生成する。
func NewService(sources repository.SourceRepository, guard URLValidator, logger *slog.Logger) *Service {
	return &Service{
		sources: sources,
		guard:   guard,
		logger:  logger,
		now:     time.Now,
	}
}

// Create はソースを検証して登録する。
// manual以外のソース種別ではURLが必須で、SSRF防止の事前検証を通過する必要がある。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Source, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, model.NewValidationError("ソース名は必須です")
	}
	if !model.ValidSourceType(input.Type) {
		return nil, model.NewInvalidSourceTypeError(string(input.Type))
	}

	if input.Type != model.SourceTypeManual || input.URL != "" {
		if input.URL == "" {
			return nil, model.NewInvalidURLError("URLが空です")
		}
		parsed, err := url.Parse(input.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, model.NewInvalidURLError(input.URL)
		}
		if err := s.guard.ValidateURL(input.URL); err != nil {
			s.logger.Warn("ソースURLがSSRF検証で拒否されました",
				slog.String("url", input.URL),
				slog.String("error", err.Error()),
			)
			return nil, model.NewSSRFBlockedError()
		}
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	now := s.now()
	src := &model.Source{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Type:      input.Type,
		URL:       input.URL,
		Config:    input.Config,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sources.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("ソースの作成に失敗しました: %w", err)
	}

	s.logger.Info("ソースを登録しました",
		slog.String("source_id", src.ID),
		slog.String("type", string(src.Type)),
	)

	return src, nil
}

// Get は指定IDのソースを取得する。見つからない場合はSOURCE_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Source, error) {
	src, err := s.sources.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ソースの取得に失敗しました: %w", err)
	}
	if src == nil {
		return nil, model.NewSourceNotFoundError(id)
	}
	return src, nil
}

// List は全ソースを返す。
func (s *Service) List(ctx context.Context) ([]*model.Source, error) {
	sources, err := s.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ソース一覧の取得に失敗しました: %w", err)
	}
	return sources, nil
}

// SetActive はソースの有効/無効を切り替える。
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*model.Source, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.sources.UpdateActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("ソース状態の更新に失敗しました: %w", err)
	}
	src.Active = active

	s.logger.Info("ソースの状態を変更しました",
		slog.String("source_id", id),
		slog.Bool("active", active),
	)

	return src, nil
}
