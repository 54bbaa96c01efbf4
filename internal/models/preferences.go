package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Store keys shared by the agent and the options collaborator.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyExpires      = "expires"
	KeyDevice       = "device"
	KeyOutdoor      = "outdoorModule"

	KeyBoundaries         = "boundaries"
	KeyInterval           = "interval"
	KeyUpdateTheme        = "updateTheme"
	KeyOnlyWarnTheme      = "onlyWarnTheme"
	KeyPPMOnBadge         = "ppmOnBadge"
	KeyRedNotification    = "redNotification"
	KeyOrangeNotification = "orangeNotification"
	KeyYellowNotification = "yellowNotification"
	KeyGreenNotification  = "greenNotification"
	KeyWindowBadge        = "windowBadge"
	KeyAlwaysWindowBadge  = "alwaysWindowBadge"
	KeyWindowDelta        = "windowDelta"
	KeyWindowMin          = "windowMin"
)

// PreferenceKeys lists every key the options screen may write.
var PreferenceKeys = []string{
	KeyBoundaries,
	KeyInterval,
	KeyUpdateTheme,
	KeyOnlyWarnTheme,
	KeyPPMOnBadge,
	KeyRedNotification,
	KeyOrangeNotification,
	KeyYellowNotification,
	KeyGreenNotification,
	KeyWindowBadge,
	KeyAlwaysWindowBadge,
	KeyWindowDelta,
	KeyWindowMin,
}

// TierToggles holds the per-tier notification switches. Green is the
// "back to normal" notification.
type TierToggles struct {
	Red    bool `json:"red"`
	Orange bool `json:"orange"`
	Yellow bool `json:"yellow"`
	Green  bool `json:"green"`
}

// Enabled reports whether notifications for t are switched on.
func (tt TierToggles) Enabled(t Tier) bool {
	switch t {
	case TierRed:
		return tt.Red
	case TierOrange:
		return tt.Orange
	case TierYellow:
		return tt.Yellow
	default:
		return tt.Green
	}
}

// Preferences is the decoded view of the options keys.
type Preferences struct {
	Boundaries        Boundaries  `json:"boundaries"`
	IntervalMinutes   float64     `json:"interval"`
	UpdateTheme       bool        `json:"updateTheme"`
	OnlyWarnTheme     bool        `json:"onlyWarnTheme"`
	PPMOnBadge        bool        `json:"ppmOnBadge"`
	Notifications     TierToggles `json:"-"`
	WindowBadge       bool        `json:"windowBadge"`
	AlwaysWindowBadge bool        `json:"alwaysWindowBadge"`
	WindowDelta       float64     `json:"windowDelta"`
	WindowMin         float64     `json:"windowMin"`
}

// DefaultPreferences is what a fresh install starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Boundaries:      DefaultBoundaries,
		IntervalMinutes: 10,
		WindowDelta:     2,
		WindowMin:       21,
	}
}

// Interval converts the minutes preference to a duration.
func (p Preferences) Interval() time.Duration {
	if p.IntervalMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(p.IntervalMinutes * float64(time.Minute))
}

// Values flattens p into store keys.
func (p Preferences) Values() map[string]any {
	return map[string]any{
		KeyBoundaries:         p.Boundaries,
		KeyInterval:           p.IntervalMinutes,
		KeyUpdateTheme:        p.UpdateTheme,
		KeyOnlyWarnTheme:      p.OnlyWarnTheme,
		KeyPPMOnBadge:         p.PPMOnBadge,
		KeyRedNotification:    p.Notifications.Red,
		KeyOrangeNotification: p.Notifications.Orange,
		KeyYellowNotification: p.Notifications.Yellow,
		KeyGreenNotification:  p.Notifications.Green,
		KeyWindowBadge:        p.WindowBadge,
		KeyAlwaysWindowBadge:  p.AlwaysWindowBadge,
		KeyWindowDelta:        p.WindowDelta,
		KeyWindowMin:          p.WindowMin,
	}
}

// Apply decodes one stored key onto p. Unknown keys are ignored; a null
// value keeps the current setting.
func (p *Preferences) Apply(key string, raw json.RawMessage) error {
	if IsNull(raw) {
		return nil
	}
	var dst any
	switch key {
	case KeyBoundaries:
		dst = &p.Boundaries
	case KeyInterval:
		dst = &p.IntervalMinutes
	case KeyUpdateTheme:
		dst = &p.UpdateTheme
	case KeyOnlyWarnTheme:
		dst = &p.OnlyWarnTheme
	case KeyPPMOnBadge:
		dst = &p.PPMOnBadge
	case KeyRedNotification:
		dst = &p.Notifications.Red
	case KeyOrangeNotification:
		dst = &p.Notifications.Orange
	case KeyYellowNotification:
		dst = &p.Notifications.Yellow
	case KeyGreenNotification:
		dst = &p.Notifications.Green
	case KeyWindowBadge:
		dst = &p.WindowBadge
	case KeyAlwaysWindowBadge:
		dst = &p.AlwaysWindowBadge
	case KeyWindowDelta:
		dst = &p.WindowDelta
	case KeyWindowMin:
		dst = &p.WindowMin
	default:
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("preference %q: %w", key, err)
	}
	return nil
}

// CopyKey copies the setting stored under key from p onto dst.
func (p Preferences) CopyKey(key string, dst *Preferences) error {
	v, ok := p.Values()[key]
	if !ok {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("preference %q: %w", key, err)
	}
	return dst.Apply(key, raw)
}
