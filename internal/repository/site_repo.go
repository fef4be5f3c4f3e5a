package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liliang-cn/askstream/internal/domain"
)

// SiteRepository handles site persistence
type SiteRepository struct {
	db *DB
}

// NewSiteRepository creates a new site repository
func NewSiteRepository(db *DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// Upsert creates the site or replaces the stored one with the same token
func (r *SiteRepository) Upsert(site *domain.Site) error {
	if site.Token == "" {
		return fmt.Errorf("%w: site token is required", domain.ErrInvalidRequest)
	}
	if site.Name == "" {
		site.Name = site.Token
	}

	widgetConfigJSON, err := json.Marshal(site.WidgetConfig.WithDefaults())
	if err != nil {
		return fmt.Errorf("failed to marshal widget config: %w", err)
	}

	now := time.Now()
	_, err = r.db.Exec(`
		INSERT INTO sites (token, name, domain, widget_config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			name = excluded.name,
			domain = excluded.domain,
			widget_config = excluded.widget_config,
			updated_at = excluded.updated_at
	`, site.Token, site.Name, site.Domain, string(widgetConfigJSON), now, now)

	return err
}

// Get retrieves a site by token. It returns nil when no site matches.
func (r *SiteRepository) Get(token string) (*domain.Site, error) {
	site := &domain.Site{}
	var widgetConfigJSON sql.NullString

	err := r.db.QueryRow(`
		SELECT token, name, domain, widget_config
		FROM sites WHERE token = ?
	`, token).Scan(&site.Token, &site.Name, &site.Domain, &widgetConfigJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	site.WidgetConfig = domain.DefaultWidgetConfig()
	if widgetConfigJSON.Valid && widgetConfigJSON.String != "" {
		if err := json.Unmarshal([]byte(widgetConfigJSON.String), &site.WidgetConfig); err != nil {
			return nil, fmt.Errorf("failed to decode widget config: %w", err)
		}
	}

	return site, nil
}

// Count returns the number of registered sites
func (r *SiteRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sites`).Scan(&count)
	return count, err
}
