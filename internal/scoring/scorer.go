package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/intellifone/appraisal/internal/models"
)

// Score computes the condition score for a defect map. Pure function: for
// each (side, class) pair the observation magnitudes are summed and
// penalised as severity * sideWeight * ln(1 + totalMagnitude), then the
// accumulated penalty is normalised into a 0–20 score. Detection flags are
// presence indicators, set whenever a class appears on any side regardless
// of magnitude.
func Score(m models.DefectMap) models.ConditionScore {
	var totalPenalty float64
	var flags models.DetectedFlags

	for side, defects := range m.Damages {
		if len(defects) == 0 {
			continue
		}
		weight := SideWeight(side)

		for class, observations := range defects {
			switch class {
			case models.DefectCrack:
				flags.ScreenCrack = true
			case models.DefectDot:
				flags.PanelDot = true
			case models.DefectLine:
				flags.PanelLine = true
			case models.DefectScratch:
				flags.PanelScratch = true
			}

			var totalMagnitude float64
			for _, obs := range observations {
				totalMagnitude += obs.Value
			}

			totalPenalty += Severity(class) * weight * math.Log1p(totalMagnitude)
		}
	}

	score := math.Max(20-totalPenalty/Scale, 0)

	return models.ConditionScore{
		Score:        round2(score),
		PenaltyTotal: round2(totalPenalty),
		Detected:     flags,
	}
}

// ScoreFile scores a defect map serialized as JSON on disk. Thin I/O wrapper
// around Score; a map that fails to decode is a DataFormatError.
func ScoreFile(path string) (models.ConditionScore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ConditionScore{}, fmt.Errorf("failed to read defect map: %w", err)
	}
	return ScoreJSON(data)
}

// ScoreJSON decodes a serialized defect map and scores it.
func ScoreJSON(data []byte) (models.ConditionScore, error) {
	var m models.DefectMap
	if err := json.Unmarshal(data, &m); err != nil {
		var dfe *models.DataFormatError
		if errors.As(err, &dfe) {
			return models.ConditionScore{}, err
		}
		return models.ConditionScore{}, &models.DataFormatError{Reason: "defect map is not valid JSON", Err: err}
	}
	return Score(m), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
