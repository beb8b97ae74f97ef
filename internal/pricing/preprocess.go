// Package pricing trains a comparable-listing regression model on demand and
// turns its prediction into a defect-adjusted price range.
package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/intellifone/appraisal/internal/logger"
	"github.com/intellifone/appraisal/internal/models"
)

// featureColumns is the canonical regression feature order, shared by the
// training table and the target vector. Brand and model only ever filter
// the comparable batch; they are never features.
var featureColumns = []string{
	"ram",
	"storage",
	"condition",
	"condition_score",
	"pta_approved",
	"is_panel_changed",
	"screen_crack",
	"panel_dot",
	"panel_line",
	"panel_shade",
	"camera_lens_ok",
	"fingerprint_ok",
	"with_box",
	"with_charger",
}

// FeatureVector holds one listing's numeric features in featureColumns order.
type FeatureVector []float64

// FeatureTable is a preprocessed training batch. Prices aligns with Rows;
// a missing price is NaN and dropped by the trainer.
type FeatureTable struct {
	Columns []string
	Rows    []FeatureVector
	Prices  []float64
}

var digitsRe = regexp.MustCompile(`\d+`)

// defaultSizeGB is substituted when size extraction fails even after the
// batch fallback: assume a mid-range device rather than discard the row.
const defaultSizeGB = 6

// ParseSize extracts the leading digit run from a free-text size string
// such as "8GB" or "128 GB". ok is false when the string is empty or
// carries no digits; absent and malformed are distinguishable to callers
// even though the training path treats them the same.
func ParseSize(s string) (int, bool) {
	match := digitsRe.FindString(s)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

// wellFormedSize reports whether a size string is usable as the batch
// fallback: it names a GB figure with digits to extract.
func wellFormedSize(s string) bool {
	if !strings.Contains(strings.ToUpper(s), "GB") {
		return false
	}
	_, ok := ParseSize(s)
	return ok
}

// TargetFeatures converts the listing being appraised into a feature
// vector. Ram or storage without digits stays unset (NaN); the estimator
// rejects such a vector rather than guessing.
func TargetFeatures(l models.Listing) FeatureVector {
	ram := math.NaN()
	if n, ok := ParseSize(l.Ram); ok {
		ram = float64(n)
	}
	storage := math.NaN()
	if n, ok := ParseSize(l.Storage); ok {
		storage = float64(n)
	}
	return buildVector(ram, storage, l)
}

// TrainingTable converts a comparable-listing batch into a feature table.
// The first record with well-formed ram and storage acts as the fallback
// for records missing either; without one the batch is unusable and a
// MissingFallbackError is returned. Records failing validation are logged
// and excluded, never fatal; their count is returned.
func TrainingTable(listings []models.Listing) (FeatureTable, int, error) {
	var fallbackRam, fallbackStorage string
	for i := range listings {
		if wellFormedSize(listings[i].Ram) && wellFormedSize(listings[i].Storage) {
			fallbackRam = listings[i].Ram
			fallbackStorage = listings[i].Storage
			break
		}
	}
	if fallbackRam == "" || fallbackStorage == "" {
		return FeatureTable{}, 0, &models.MissingFallbackError{}
	}

	table := FeatureTable{Columns: featureColumns}
	dropped := 0

	for i := range listings {
		l := listings[i]
		if err := l.Validate(); err != nil {
			logger.Warn("Skipping listing %q: %v", l.Model, err)
			dropped++
			continue
		}

		ramStr := l.Ram
		if ramStr == "" {
			ramStr = fallbackRam
		}
		storageStr := l.Storage
		if storageStr == "" {
			storageStr = fallbackStorage
		}

		ram := defaultSizeGB
		if n, ok := ParseSize(ramStr); ok {
			ram = n
		}
		storage := defaultSizeGB
		if n, ok := ParseSize(storageStr); ok {
			storage = n
		}

		price := math.NaN()
		if l.Price != nil {
			price = float64(*l.Price)
		}

		table.Rows = append(table.Rows, buildVector(float64(ram), float64(storage), l))
		table.Prices = append(table.Prices, price)
	}

	return table, dropped, nil
}

func buildVector(ram, storage float64, l models.Listing) FeatureVector {
	return FeatureVector{
		ram,
		storage,
		float64(l.Condition),
		l.ConditionScore,
		boolFeature(l.PTAApproved),
		boolFeature(l.IsPanelChanged),
		boolFeature(l.ScreenCrack),
		boolFeature(l.PanelDot),
		boolFeature(l.PanelLine),
		boolFeature(l.PanelShade),
		boolFeature(l.CameraLensOK),
		boolFeature(l.FingerprintOK),
		boolFeature(l.WithBox),
		boolFeature(l.WithCharger),
	}
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
