// Package notification derives status, badge, theme and threshold-crossing
// notifications from successive CO2 readings. Everything here is pure.
package notification

import (
	"fmt"
	"math"

	"co2_monitor/internal/models"
)

const (
	iconPath = "status/%s.svg"

	windowHintText = "Open a window, it is cooler outside."
)

var palette = map[models.StatusLevel]struct{ accent, dark string }{
	models.StatusRed:    {"#ff0039", "#5a0002"},
	models.StatusOrange: {"#ff9400", "#712b00"},
	models.StatusYellow: {"#ffe900", "#715100"},
	models.StatusGreen:  {"#30e60b", "#006504"},
}

// descending is the evaluation order used everywhere so that an invalid
// boundary set still yields a deterministic tier.
var descending = []models.Tier{models.TierRed, models.TierOrange, models.TierYellow}

// Classify maps a reading to its tier. An unset reading is TierNone.
func Classify(co2 *float64, b models.Boundaries) models.Tier {
	if co2 == nil {
		return models.TierNone
	}
	for _, t := range descending {
		floor, _ := b.Floor(t)
		if *co2 >= floor {
			return t
		}
	}
	return models.TierNone
}

// Level extends Classify with the unknown level of an unset reading.
func Level(co2 *float64, b models.Boundaries) models.StatusLevel {
	if co2 == nil {
		return models.StatusUnknown
	}
	switch Classify(co2, b) {
	case models.TierRed:
		return models.StatusRed
	case models.TierOrange:
		return models.StatusOrange
	case models.TierYellow:
		return models.StatusYellow
	default:
		return models.StatusGreen
	}
}

// StatusFor builds the icon, colours and title for d.
func StatusFor(d models.Device, b models.Boundaries) models.Status {
	level := Level(d.CO2, b)
	colors := palette[level]
	return models.Status{
		Level:           level,
		Tier:            Classify(d.CO2, b),
		Icon:            fmt.Sprintf(iconPath, iconName(level)),
		AccentColor:     colors.accent,
		DarkAccentColor: colors.dark,
		Title:           statusTitle(d),
	}
}

func iconName(level models.StatusLevel) string {
	if level == models.StatusUnknown {
		return "gray"
	}
	return string(level)
}

func statusTitle(d models.Device) string {
	if d.IsZero() {
		return "No device selected"
	}
	if d.CO2 == nil {
		return fmt.Sprintf("%s: no reading", d.Title())
	}
	return fmt.Sprintf("%s: %.0fppm", d.Title(), *d.CO2)
}

// Crossing is the outcome of ShouldNotify.
type Crossing struct {
	Kind models.NotificationKind
	Tier models.Tier
}

// ShouldNotify compares the two most recent readings. It reports at most one
// crossing: the highest enabled tier whose floor was crossed upward, or a
// return below the yellow floor when no upward crossing happened.
func ShouldNotify(prev, cur *float64, b models.Boundaries, enabled models.TierToggles) (Crossing, bool) {
	if prev == nil || cur == nil {
		return Crossing{}, false
	}

	crossedUp := false
	for _, t := range descending {
		floor, _ := b.Floor(t)
		if *prev < floor && *cur >= floor {
			crossedUp = true
			if enabled.Enabled(t) {
				return Crossing{Kind: models.NotificationCrossing, Tier: t}, true
			}
		}
	}
	if crossedUp {
		return Crossing{}, false
	}

	if *prev >= b.Yellow && *cur < b.Yellow && enabled.Enabled(models.TierNone) {
		return Crossing{Kind: models.NotificationNormal, Tier: models.TierNone}, true
	}
	return Crossing{}, false
}

// WindowHint reports whether ventilating would help. A NaN temperature,
// including a missing outdoor reference, never qualifies.
func WindowHint(indoor, outdoor, minIndoor, minDelta float64) bool {
	if math.IsNaN(indoor) || math.IsNaN(outdoor) {
		return false
	}
	return indoor >= minIndoor && indoor-outdoor >= minDelta
}

// DeviceWindowHint applies WindowHint to a device and its outdoor reference.
func DeviceWindowHint(d, outdoor models.Device, p models.Preferences) bool {
	if outdoor.IsZero() {
		return false
	}
	return WindowHint(d.Temperature, outdoor.Temperature, p.WindowMin, p.WindowDelta)
}

// Compose turns a crossing into the notification shown to the user. The
// window hint is only appended to upward crossings.
func Compose(c Crossing, d models.Device, windowHint bool) models.Notification {
	n := models.Notification{
		Kind:     c.Kind,
		Tier:     c.Tier,
		Title:    d.Title(),
		DeviceID: d.ID,
		ModuleID: d.ModuleID,
	}
	if d.CO2 != nil {
		n.CO2 = *d.CO2
	}

	switch c.Kind {
	case models.NotificationNormal:
		n.Message = fmt.Sprintf("CO2 is back to normal at %.0fppm.", n.CO2)
	default:
		n.Message = fmt.Sprintf("CO2 reached the %s level at %.0fppm.", c.Tier, n.CO2)
		if windowHint {
			n.WindowHint = true
			n.Message += " " + windowHintText
		}
	}
	return n
}
