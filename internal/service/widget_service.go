package service

import (
	"context"

	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/liliang-cn/askstream/internal/repository"
)

// WidgetConfigResponse is the response for widget config
type WidgetConfigResponse struct {
	Token   string              `json:"token"`
	Name    string              `json:"name"`
	Config  domain.WidgetConfig `json:"config"`
	BaseURL string              `json:"base_url"`
}

// WidgetService handles widget operations
type WidgetService struct {
	baseURL  string
	siteRepo *repository.SiteRepository
}

// NewWidgetService creates a new widget service
func NewWidgetService(baseURL string, siteRepo *repository.SiteRepository) *WidgetService {
	return &WidgetService{
		baseURL:  baseURL,
		siteRepo: siteRepo,
	}
}

// GetWidgetConfig returns the widget configuration for a site
func (s *WidgetService) GetWidgetConfig(ctx context.Context, token string) (*WidgetConfigResponse, error) {
	site, err := s.siteRepo.Get(token)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, domain.ErrNotFound
	}

	return &WidgetConfigResponse{
		Token:   site.Token,
		Name:    site.Name,
		Config:  site.WidgetConfig,
		BaseURL: s.baseURL,
	}, nil
}

// SiteExists reports whether token names a registered site
func (s *WidgetService) SiteExists(token string) (bool, error) {
	site, err := s.siteRepo.Get(token)
	if err != nil {
		return false, err
	}
	return site != nil, nil
}

// RegisterSites stores the given sites, replacing existing entries
func (s *WidgetService) RegisterSites(sites []domain.Site) error {
	for i := range sites {
		if err := s.siteRepo.Upsert(&sites[i]); err != nil {
			return err
		}
	}
	return nil
}
