package models

import (
	"encoding/json"
	"fmt"
)

// DefectClass categorises detected surface damage. The key space is open:
// classes outside the known set still score, with a default severity.
type DefectClass string

const (
	DefectCrack   DefectClass = "crack"
	DefectDot     DefectClass = "dot"
	DefectLine    DefectClass = "line"
	DefectScratch DefectClass = "scratch"
)

// Observation is one detected defect instance. The detector emits exactly
// one magnitude measurement per instance, keyed by metric name
// (e.g. "area_px" or "length_px"), unit pixels.
type Observation struct {
	Metric string
	Value  float64
}

// UnmarshalJSON decodes the detector's singleton-object form,
// e.g. {"length_px": 345.6}.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return &DataFormatError{Reason: "observation must be an object with a numeric magnitude", Err: err}
	}
	if len(raw) != 1 {
		return &DataFormatError{Reason: fmt.Sprintf("observation must carry exactly one magnitude, got %d", len(raw))}
	}
	for metric, value := range raw {
		o.Metric = metric
		o.Value = value
	}
	return nil
}

// MarshalJSON re-encodes the singleton-object form.
func (o Observation) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{o.Metric: o.Value})
}

// SideDefects maps defect class to the detections found on one side.
type SideDefects map[DefectClass][]Observation

// DefectMap is the detector's per-device output: side name (front, back,
// left, right, top, bottom) to the defects found there. Sides that are
// absent or empty contribute nothing to scoring.
type DefectMap struct {
	Damages map[string]SideDefects `json:"damages"`
}

// DetectedFlags are presence indicators set while scoring, independent of
// defect magnitude or severity.
type DetectedFlags struct {
	ScreenCrack  bool `json:"screen_crack"`
	PanelDot     bool `json:"panel_dot"`
	PanelLine    bool `json:"panel_line"`
	PanelScratch bool `json:"panel_scratch"`
}

// AI returns the subset of flags the price estimator fuses with user input.
// Scratches are visible to the detector but carry no price penalty.
func (d DetectedFlags) AI() AIFlags {
	return AIFlags{
		ScreenCrack: d.ScreenCrack,
		PanelDot:    d.PanelDot,
		PanelLine:   d.PanelLine,
	}
}

// ConditionScore is the scorer's output: a bounded 0–20 score, the raw
// penalty total behind it, and the detection flags.
type ConditionScore struct {
	Score        float64       `json:"condition_score"`
	PenaltyTotal float64       `json:"penalty_total"`
	Detected     DetectedFlags `json:"ai_detected"`
}
