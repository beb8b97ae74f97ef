// Package models defines the core domain entities: listings, defect maps,
// condition scores, and price ranges.
package models

import (
	"errors"
	"time"
)

// Listing represents one used-phone marketplace record. Comparable listings
// come from the ingestion collaborator with Price set; the listing being
// appraised has Price nil and ConditionScore attached by the scorer.
type Listing struct {
	Brand   string `json:"brand,omitempty"`
	Model   string `json:"model,omitempty"`
	Ram     string `json:"ram,omitempty"`     // free text, e.g. "8GB"
	Storage string `json:"storage,omitempty"` // free text, e.g. "128GB"

	Condition      int     `json:"condition,omitempty"`       // seller-declared grade
	ConditionScore float64 `json:"condition_score,omitempty"` // 0–20, from the scorer

	PTAApproved    bool `json:"pta_approved"`
	IsPanelChanged bool `json:"is_panel_changed"`
	ScreenCrack    bool `json:"screen_crack"`
	PanelDot       bool `json:"panel_dot"`
	PanelLine      bool `json:"panel_line"`
	PanelShade     bool `json:"panel_shade"`
	CameraLensOK   bool `json:"camera_lens_ok"`
	FingerprintOK  bool `json:"fingerprint_ok"`
	WithBox        bool `json:"with_box"`
	WithCharger    bool `json:"with_charger"`

	Price *int `json:"price,omitempty"`

	// Metadata never used as regression features.
	City          string    `json:"city,omitempty"`
	ListingSource string    `json:"listing_source,omitempty"`
	Images        []string  `json:"images,omitempty"`
	PostDate      time.Time `json:"post_date,omitempty"`
}

// Validate checks listing field constraints.
func (l *Listing) Validate() error {
	if l.Model == "" {
		return errors.New("listing model must not be empty")
	}
	if l.Price != nil && *l.Price < 0 {
		return errors.New("listing price must not be negative")
	}
	if l.ConditionScore < 0 || l.ConditionScore > 20 {
		return errors.New("condition score must be between 0 and 20")
	}
	return nil
}

// AIFlags carries the defect indicators the detection collaborator can
// observe. Everything else on a Listing is self-reported only.
type AIFlags struct {
	ScreenCrack bool `json:"screen_crack"`
	PanelDot    bool `json:"panel_dot"`
	PanelLine   bool `json:"panel_line"`
}

// FusedFlags is the trust-resolved merge of AI detection and user
// self-report. AI-observable fields are OR'd; the rest pass through the
// user-declared value unchanged.
type FusedFlags struct {
	ScreenCrack    bool `json:"screen_crack"`
	PanelDot       bool `json:"panel_dot"`
	PanelLine      bool `json:"panel_line"`
	PanelShade     bool `json:"panel_shade"`
	IsPanelChanged bool `json:"is_panel_changed"`
	CameraLensOK   bool `json:"camera_lens_ok"`
	FingerprintOK  bool `json:"fingerprint_ok"`
	PTAApproved    bool `json:"pta_approved"`
}

// PriceRange is the appraisal output. Min and max are symmetric offsets of
// the adjusted base prediction rounded to the nearest 500, not a confidence
// interval around it.
type PriceRange struct {
	MinPrice int `json:"min_price"`
	MaxPrice int `json:"max_price"`
}
