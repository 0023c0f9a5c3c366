package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"tripmeter/internal/domain"
	"tripmeter/internal/pricing"
	"tripmeter/internal/repository"
)

// LoadCatalog builds the fare catalog once at startup. Profiles come from the
// database; when it has none or cannot be read, from fallbackJSON. An empty
// catalog is valid: every quote then uses the fallback profile.
func LoadCatalog(ctx context.Context, repo repository.FareProfileRepository, fallbackJSON string, logger *slog.Logger) (*pricing.Catalog, error) {
	var profiles []domain.FareProfile

	if repo != nil {
		stored, err := repo.GetAll(ctx)
		if err != nil {
			logger.Warn("fare profiles unavailable from database", "error", err)
		}
		profiles = stored
	}

	if len(profiles) == 0 && fallbackJSON != "" {
		if err := json.Unmarshal([]byte(fallbackJSON), &profiles); err != nil {
			return nil, fmt.Errorf("parse FARE_PROFILES: %w", err)
		}
	}

	catalog, err := pricing.NewCatalog(profiles)
	if err != nil {
		return nil, err
	}
	if catalog.Len() == 0 {
		logger.Warn("no fare profiles configured, quotes will be provisional")
	}
	return catalog, nil
}
