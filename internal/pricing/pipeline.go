package pricing

import (
	"context"
	"fmt"

	"github.com/intellifone/appraisal/internal/logger"
	"github.com/intellifone/appraisal/internal/models"
)

// ListingSource supplies comparable listings matching a model name by
// case-insensitive substring. Implemented by the storage layer.
type ListingSource interface {
	ListByModel(ctx context.Context, model string) ([]models.Listing, error)
}

// Appraiser runs the full estimation pipeline: fetch comparables, fit a
// fresh model, predict, adjust. Each call owns its model; nothing is
// cached between calls, so concurrent appraisals are independent.
type Appraiser struct {
	source ListingSource
	config TrainerConfig
}

func NewAppraiser(source ListingSource, config TrainerConfig) *Appraiser {
	return &Appraiser{source: source, config: config}
}

// EstimatePrice appraises the target listing. Fatal, with no partial
// result, when no comparables match or training fails.
func (a *Appraiser) EstimatePrice(ctx context.Context, target models.Listing, ai models.AIFlags) (models.PriceRange, error) {
	if target.Model == "" {
		return models.PriceRange{}, &models.DataFormatError{Reason: "target listing has no model name"}
	}

	comparables, err := a.source.ListByModel(ctx, target.Model)
	if err != nil {
		return models.PriceRange{}, fmt.Errorf("failed to fetch comparable listings: %w", err)
	}
	if len(comparables) == 0 {
		return models.PriceRange{}, &models.InsufficientDataError{Rows: 0, Min: a.config.MinRows}
	}
	logger.Debug("Fetched %d comparable listings for model %q", len(comparables), target.Model)

	table, dropped, err := TrainingTable(comparables)
	if err != nil {
		return models.PriceRange{}, err
	}
	if dropped > 0 {
		logger.Info("Excluded %d malformed comparable listings for model %q", dropped, target.Model)
	}

	forest, err := Train(table, a.config)
	if err != nil {
		return models.PriceRange{}, err
	}

	return EstimateRange(forest, TargetFeatures(target), target, ai)
}
