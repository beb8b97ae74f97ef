// Package scoring turns a detected defect map into a bounded 0–20 condition
// score with AI-detection flags.
package scoring

import "github.com/intellifone/appraisal/internal/models"

// Scale divides the accumulated penalty before it is subtracted from the
// perfect score; it controls overall harshness.
const Scale = 10.0

// Side weights reflect visual prominence: the front face dominates, edges
// barely matter. Unknown sides score like edges.
var sideWeights = map[string]float64{
	"front":  1.0,
	"back":   0.6,
	"left":   0.3,
	"right":  0.3,
	"top":    0.3,
	"bottom": 0.3,
}

const defaultSideWeight = 0.3

// Per-class severity. Classes absent from the table still score with the
// default; the open-ended class space must never crash scoring.
var classSeverity = map[models.DefectClass]float64{
	models.DefectCrack: 8,
	models.DefectLine:  7,
	models.DefectDot:   6,
}

const defaultSeverity = 5

// SideWeight returns the positional weight for a side name.
func SideWeight(side string) float64 {
	if w, ok := sideWeights[side]; ok {
		return w
	}
	return defaultSideWeight
}

// Severity returns the importance multiplier for a defect class.
func Severity(class models.DefectClass) float64 {
	if s, ok := classSeverity[class]; ok {
		return s
	}
	return defaultSeverity
}
