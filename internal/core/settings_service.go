package core

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"biblegpt.app/companion/internal/llm"
	"biblegpt.app/companion/internal/store"
)

const (
	settingAIProvider = "ai_provider"
	settingAIModel    = "ai_model"
	settingAIAPIKey   = "ai_api_key"
)

// AIConfigUpdate is a settings change. An empty APIKey keeps the current key
// for the same provider and leaves a new provider unconfigured; an empty Model
// selects the provider's default.
type AIConfigUpdate struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

type SettingsService struct {
	dbStore *store.SQLiteStore
	gateway *llm.Gateway
	logger  *zap.Logger
}

func NewSettingsService(db *store.SQLiteStore, gateway *llm.Gateway, logger *zap.Logger) *SettingsService {
	return &SettingsService{dbStore: db, gateway: gateway, logger: logger}
}

// RestoreAIConfig overlays persisted settings on the gateway's current
// (environment) configuration.
func (s *SettingsService) RestoreAIConfig() error {
	cfg := s.gateway.Config()

	provider, ok, err := s.dbStore.GetSetting(settingAIProvider)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	p, err := llm.ParseProvider(provider)
	if err != nil {
		s.logger.Warn("Ignoring stored AI provider", zap.String("provider", provider), zap.Error(err))
		return nil
	}
	if p != cfg.Provider {
		cfg = llm.Config{Provider: p}
	}
	if model, ok, err := s.dbStore.GetSetting(settingAIModel); err != nil {
		return err
	} else if ok {
		cfg.Model = model
	}
	if key, ok, err := s.dbStore.GetSetting(settingAIAPIKey); err != nil {
		return err
	} else if ok && key != "" {
		cfg.APIKey = key
	}

	s.gateway.SetConfig(cfg)
	s.logger.Info("Restored AI settings", zap.String("provider", string(cfg.Provider)), zap.String("model", cfg.Model))
	return nil
}

func (s *SettingsService) GetAIConfig() llm.Status {
	return s.gateway.Status()
}

func (s *SettingsService) UpdateAIConfig(update AIConfigUpdate) (llm.Status, error) {
	p, err := llm.ParseProvider(update.Provider)
	if err != nil {
		return llm.Status{}, err
	}

	cfg := llm.Config{
		Provider: p,
		APIKey:   strings.TrimSpace(update.APIKey),
		Model:    strings.TrimSpace(update.Model),
	}
	// A key belongs to one vendor; it is only carried over when the provider
	// is unchanged.
	if current := s.gateway.Config(); cfg.APIKey == "" && current.Provider == p {
		cfg.APIKey = current.APIKey
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel(p)
	}

	if err := s.dbStore.SetSettings(map[string]string{
		settingAIProvider: string(cfg.Provider),
		settingAIModel:    cfg.Model,
		settingAIAPIKey:   cfg.APIKey,
	}); err != nil {
		return llm.Status{}, fmt.Errorf("failed to persist AI settings: %w", err)
	}

	s.gateway.SetConfig(cfg)
	s.logger.Info("AI settings updated", zap.String("provider", string(cfg.Provider)), zap.String("model", cfg.Model))
	return s.gateway.Status(), nil
}
