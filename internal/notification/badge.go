package notification

import (
	"strconv"

	"co2_monitor/internal/models"
)

const (
	// BadgeBudget is the number of characters the host badge can show.
	BadgeBudget  = 4
	WindowMarker = "!"
)

// Badge composes the badge overlay for the monitored device. The window
// marker wins over the numeric reading when both do not fit.
func Badge(d, outdoor models.Device, p models.Preferences) models.BadgeSpec {
	var numeric, marker string
	if p.PPMOnBadge && d.CO2 != nil {
		numeric = strconv.FormatFloat(*d.CO2, 'f', 0, 64)
	}
	if showWindowMarker(d, outdoor, p) {
		marker = WindowMarker
	}

	text := numeric + marker
	if len(text) > BadgeBudget && marker != "" {
		text = marker
	}
	if text == "" {
		return models.BadgeSpec{}
	}
	return models.BadgeSpec{
		Text:         text,
		Color:        palette[Level(d.CO2, p.Boundaries)].dark,
		WindowMarker: marker != "",
	}
}

func showWindowMarker(d, outdoor models.Device, p models.Preferences) bool {
	if !p.WindowBadge || !DeviceWindowHint(d, outdoor, p) {
		return false
	}
	return p.AlwaysWindowBadge || Classify(d.CO2, p.Boundaries) >= models.TierYellow
}

// Theme decides how the host accent colour follows the reading. With
// theming disabled nothing is requested.
func Theme(d models.Device, p models.Preferences) models.ThemeSpec {
	if !p.UpdateTheme {
		return models.ThemeSpec{}
	}
	level := Level(d.CO2, p.Boundaries)
	if level == models.StatusUnknown {
		return models.ThemeSpec{Reset: true}
	}
	if p.OnlyWarnTheme && Classify(d.CO2, p.Boundaries) < models.TierYellow {
		return models.ThemeSpec{Reset: true}
	}
	return models.ThemeSpec{Update: true, Color: palette[level].accent}
}
