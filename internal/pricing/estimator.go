package pricing

import (
	"math"

	"github.com/intellifone/appraisal/internal/models"
)

// Predictor is the fitted regression model consumed by the estimator.
type Predictor interface {
	Predict(FeatureVector) float64
}

// Symmetric spread applied around the adjusted base prediction, each bound
// rounded to the nearest roundStep.
const (
	spreadLow  = 0.92
	spreadHigh = 1.08
	roundStep  = 500
)

// MergeFlags fuses AI detection with the user's self-report. The three
// AI-observable defects are OR'd; the detector cannot see shade, panel
// swaps, or the hardware checks, so those pass through unchanged.
func MergeFlags(ai models.AIFlags, l models.Listing) models.FusedFlags {
	return models.FusedFlags{
		ScreenCrack:    ai.ScreenCrack || l.ScreenCrack,
		PanelDot:       ai.PanelDot || l.PanelDot,
		PanelLine:      ai.PanelLine || l.PanelLine,
		PanelShade:     l.PanelShade,
		IsPanelChanged: l.IsPanelChanged,
		CameraLensOK:   l.CameraLensOK,
		FingerprintOK:  l.FingerprintOK,
		PTAApproved:    l.PTAApproved,
	}
}

// EstimateRange predicts a base price for the target features and adjusts
// it with independent multiplicative penalties. AI-confirmed defects are
// assumed already priced into the comparables, so the screen/panel
// penalties fire only when the user reported a defect the detector missed.
func EstimateRange(model Predictor, features FeatureVector, target models.Listing, ai models.AIFlags) (models.PriceRange, error) {
	for i, v := range features {
		if math.IsNaN(v) {
			return models.PriceRange{}, &models.DataFormatError{
				Reason: "target feature " + featureColumns[i] + " is unset",
			}
		}
	}

	base := model.Predict(features)
	fused := MergeFlags(ai, target)

	if target.ScreenCrack && !ai.ScreenCrack {
		base *= 0.70
	}
	if target.PanelDot && !ai.PanelDot {
		base *= 0.75
	}
	if target.PanelLine && !ai.PanelLine {
		base *= 0.70
	}
	if fused.PanelShade {
		base *= 0.75
	}
	if fused.IsPanelChanged {
		base *= 0.80
	}
	if !fused.CameraLensOK {
		base *= 0.90
	}
	if !fused.FingerprintOK {
		base *= 0.85
	}
	if !fused.PTAApproved {
		base *= 0.80
	}

	return models.PriceRange{
		MinPrice: roundTo(base*spreadLow, roundStep),
		MaxPrice: roundTo(base*spreadHigh, roundStep),
	}, nil
}

func roundTo(v float64, step int) int {
	return int(math.Round(v/float64(step))) * step
}
