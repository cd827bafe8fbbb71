// Package config holds the tunable constants of the detection engine.
//
// The scoring weights and geometric limits here are empirically tuned, not
// derived; they are configuration rather than invariants, and can be
// overridden from a YAML file. Zero values fall back to the defaults below.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tunables are the engine's adjustable constants.
type Tunables struct {
	// Classification.
	MinIntentScore  int `yaml:"min_intent_score"`  // weakest final score still classified
	MultiMatchBonus int `yaml:"multi_match_bonus"` // per-match bonus when several rules converge
	VetoScore       int `yaml:"veto_score"`        // fixed score for vetoed text

	// Ranking bonuses.
	RelBonus        int `yaml:"rel_bonus"`         // explicit rel=next|prev
	PaginationBonus int `yaml:"pagination_bonus"`  // pagination/pager class marker
	NavClassBonus   int `yaml:"nav_class_bonus"`   // direction/nav class token
	ProximityMax    int `yaml:"proximity_max"`     // peak of the vertical-center falloff
	AnchorBonus     int `yaml:"anchor_bonus"`
	ButtonBonus     int `yaml:"button_bonus"`
	HalfBonus       int `yaml:"half_bonus"`        // traditional viewport half for the intent
	OverlayBonus    int `yaml:"overlay_bonus"`     // lightbox/overlay context
	EpisodicBonus   int `yaml:"episodic_bonus"`    // paginated-media/episode context

	// Ranking adjustments.
	TinyAreaPenalty  int `yaml:"tiny_area_penalty"`  // area < 16px²
	LargeAreaPenalty int `yaml:"large_area_penalty"` // area > 10000px²
	EmptyTextPenalty int `yaml:"empty_text_penalty"`
	SingleCharBonus  int `yaml:"single_char_bonus"`
	LongTextPenalty  int `yaml:"long_text_penalty"` // > LongTextChars
	LongTextChars    int `yaml:"long_text_chars"`

	// Geometry.
	CenterTolerance float64 `yaml:"center_tolerance"` // fraction of viewport height where proximity reaches zero
	PrevHalfRight   float64 `yaml:"prev_half_right"`  // previous intent's traditional half: left of this fraction
	NextHalfLeft    float64 `yaml:"next_half_left"`   // next intent's traditional half: right of this fraction

	// Exclusion filter.
	ChromeZonePx      float64 `yaml:"chrome_zone_px"`      // reserved top strip
	EdgeSlackPx       float64 `yaml:"edge_slack_px"`       // glued-to-edge detection
	OffscreenSlackPx  float64 `yaml:"offscreen_slack_px"`  // allowed out-of-viewport overhang
	MinDimensionPx    float64 `yaml:"min_dimension_px"`
	MaxWidthPx        float64 `yaml:"max_width_px"`
	MaxHeightPx       float64 `yaml:"max_height_px"`
	MinAreaPx         float64 `yaml:"min_area_px"`
	HighZIndex        int     `yaml:"high_z_index"`
	SuspiciousZIndex  int     `yaml:"suspicious_z_index"`

	// Rescan scheduler.
	MutationDebounce time.Duration `yaml:"mutation_debounce"`
	NavigationSettle time.Duration `yaml:"navigation_settle"`
	InitRetries      int           `yaml:"init_retries"`
	InitRetryDelay   time.Duration `yaml:"init_retry_delay"`
}

// Defaults returns the engine defaults.
func Defaults() Tunables {
	var t Tunables
	t.applyDefaults()
	return t
}

// LoadFile reads tunables from a YAML file, filling gaps with defaults.
func LoadFile(path string) (Tunables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tunables{}, err
	}
	var t Tunables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tunables{}, err
	}
	t.applyDefaults()
	return t, nil
}

func (t *Tunables) applyDefaults() {
	if t.MinIntentScore <= 0 {
		t.MinIntentScore = 8
	}
	if t.MultiMatchBonus <= 0 {
		t.MultiMatchBonus = 2
	}
	if t.VetoScore >= 0 {
		t.VetoScore = -50
	}
	if t.RelBonus <= 0 {
		t.RelBonus = 25
	}
	if t.PaginationBonus <= 0 {
		t.PaginationBonus = 20
	}
	if t.NavClassBonus <= 0 {
		t.NavClassBonus = 15
	}
	if t.ProximityMax <= 0 {
		t.ProximityMax = 12
	}
	if t.AnchorBonus <= 0 {
		t.AnchorBonus = 5
	}
	if t.ButtonBonus <= 0 {
		t.ButtonBonus = 3
	}
	if t.HalfBonus <= 0 {
		t.HalfBonus = 5
	}
	if t.OverlayBonus <= 0 {
		t.OverlayBonus = 20
	}
	if t.EpisodicBonus <= 0 {
		t.EpisodicBonus = 25
	}
	if t.TinyAreaPenalty >= 0 {
		t.TinyAreaPenalty = -5
	}
	if t.LargeAreaPenalty >= 0 {
		t.LargeAreaPenalty = -8
	}
	if t.EmptyTextPenalty >= 0 {
		t.EmptyTextPenalty = -5
	}
	if t.SingleCharBonus <= 0 {
		t.SingleCharBonus = 5
	}
	if t.LongTextPenalty >= 0 {
		t.LongTextPenalty = -15
	}
	if t.LongTextChars <= 0 {
		t.LongTextChars = 75
	}
	if t.CenterTolerance <= 0 {
		t.CenterTolerance = 0.30
	}
	if t.PrevHalfRight <= 0 {
		t.PrevHalfRight = 0.40
	}
	if t.NextHalfLeft <= 0 {
		t.NextHalfLeft = 0.60
	}
	if t.ChromeZonePx <= 0 {
		t.ChromeZonePx = 120
	}
	if t.EdgeSlackPx <= 0 {
		t.EdgeSlackPx = 5
	}
	if t.OffscreenSlackPx <= 0 {
		t.OffscreenSlackPx = 50
	}
	if t.MinDimensionPx <= 0 {
		t.MinDimensionPx = 8
	}
	if t.MaxWidthPx <= 0 {
		t.MaxWidthPx = 500
	}
	if t.MaxHeightPx <= 0 {
		t.MaxHeightPx = 200
	}
	if t.MinAreaPx <= 0 {
		t.MinAreaPx = 64
	}
	if t.HighZIndex <= 0 {
		t.HighZIndex = 999_999
	}
	if t.SuspiciousZIndex <= 0 {
		t.SuspiciousZIndex = 2_147_483_647
	}
	if t.MutationDebounce <= 0 {
		t.MutationDebounce = 500 * time.Millisecond
	}
	if t.NavigationSettle <= 0 {
		t.NavigationSettle = time.Second
	}
	if t.InitRetries <= 0 {
		t.InitRetries = 3
	}
	if t.InitRetryDelay <= 0 {
		t.InitRetryDelay = 2 * time.Second
	}
}
