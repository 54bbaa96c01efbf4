package models

import (
	"errors"
	"fmt"
)

// Tier is the severity classification of a CO2 reading.
type Tier int

const (
	TierNone Tier = iota
	TierYellow
	TierOrange
	TierRed
)

func (t Tier) String() string {
	switch t {
	case TierYellow:
		return "yellow"
	case TierOrange:
		return "orange"
	case TierRed:
		return "red"
	default:
		return "none"
	}
}

// MarshalText lets tiers travel as their names in JSON.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	*t = ParseTier(string(b))
	return nil
}

// ParseTier is the inverse of Tier.String. Unknown names map to TierNone.
func ParseTier(s string) Tier {
	switch s {
	case "yellow":
		return TierYellow
	case "orange":
		return TierOrange
	case "red":
		return TierRed
	default:
		return TierNone
	}
}

// Boundaries are the ppm floors of each tier.
type Boundaries struct {
	Yellow float64 `json:"yellow"`
	Orange float64 `json:"orange"`
	Red    float64 `json:"red"`
}

// DefaultBoundaries are the out-of-the-box ppm thresholds.
var DefaultBoundaries = Boundaries{Yellow: 800, Orange: 1000, Red: 1500}

var ErrBoundariesOrder = errors.New("boundaries must satisfy yellow < orange < red")

// Validate rejects non-monotonic input from the options editor.
func (b Boundaries) Validate() error {
	if b.Yellow < 0 {
		return fmt.Errorf("yellow boundary %.0f: must not be negative", b.Yellow)
	}
	if !(b.Yellow < b.Orange && b.Orange < b.Red) {
		return ErrBoundariesOrder
	}
	return nil
}

// Floor returns the lower bound of t. TierNone has no floor.
func (b Boundaries) Floor(t Tier) (float64, bool) {
	switch t {
	case TierYellow:
		return b.Yellow, true
	case TierOrange:
		return b.Orange, true
	case TierRed:
		return b.Red, true
	default:
		return 0, false
	}
}

// StatusLevel extends Tier with the unknown state of an unset reading.
type StatusLevel string

const (
	StatusUnknown StatusLevel = "unknown"
	StatusGreen   StatusLevel = "green"
	StatusYellow  StatusLevel = "yellow"
	StatusOrange  StatusLevel = "orange"
	StatusRed     StatusLevel = "red"
)

// Status is what the host renders as the toolbar icon and title.
type Status struct {
	Level           StatusLevel `json:"level"`
	Tier            Tier        `json:"tier"`
	Icon            string      `json:"icon"`
	AccentColor     string      `json:"accent_color,omitempty"`
	DarkAccentColor string      `json:"dark_accent_color,omitempty"`
	Title           string      `json:"title"`
}

// BadgeSpec is the text and colour of the badge overlay.
type BadgeSpec struct {
	Text         string `json:"text"`
	Color        string `json:"color,omitempty"`
	WindowMarker bool   `json:"window_marker"`
}

// ThemeSpec tells the host whether to tint or reset its accent colour.
type ThemeSpec struct {
	Update bool   `json:"update"`
	Reset  bool   `json:"reset"`
	Color  string `json:"color,omitempty"`
}
