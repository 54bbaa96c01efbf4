// Package devices reshapes raw Netatmo payloads into models.Device records.
package devices

import (
	"math"
	"slices"

	"co2_monitor/internal/models"
	"co2_monitor/internal/netatmo"
)

const defaultCoachGroup = "Home Coach"

// NormalizeStationList flattens every station and each of its CO2-capable
// modules into independent devices. Stations without any CO2 source are
// left out.
func NormalizeStationList(raw netatmo.StationsData) []models.Device {
	out := make([]models.Device, 0, len(raw.Devices))
	for _, st := range raw.Devices {
		if reportsCO2(st.DataType, st.DashboardData) {
			out = append(out, stationDevice(st))
		}
		for _, m := range st.Modules {
			if reportsCO2(m.DataType, m.DashboardData) {
				out = append(out, moduleDevice(st, m))
			}
		}
	}
	return out
}

// NormalizeHealthCoaches lists every health coach that reports CO2.
func NormalizeHealthCoaches(raw netatmo.HomeCoachData) []models.Device {
	out := make([]models.Device, 0, len(raw.Devices))
	for _, hc := range raw.Devices {
		if reportsCO2(hc.DataType, hc.DashboardData) {
			out = append(out, coachDevice(hc))
		}
	}
	return out
}

// ExtractOutdoorReferences lists the outdoor temperature modules.
func ExtractOutdoorReferences(raw netatmo.StationsData) []models.Device {
	var out []models.Device
	for _, st := range raw.Devices {
		for _, m := range st.Modules {
			if m.Type == netatmo.TypeOutdoor {
				out = append(out, moduleDevice(st, m))
			}
		}
	}
	return out
}

// Selectable groups everything the options list can offer.
func Selectable(stations netatmo.StationsData, coaches netatmo.HomeCoachData) models.SelectableDevices {
	list := NormalizeStationList(stations)
	list = append(list, NormalizeHealthCoaches(coaches)...)
	outdoor := ExtractOutdoorReferences(stations)
	if outdoor == nil {
		outdoor = []models.Device{}
	}
	return models.SelectableDevices{Stations: list, OutdoorModules: outdoor}
}

// Resolve finds the station or module addressed by sel. A miss means the
// device is no longer present and is reported with ok == false.
func Resolve(raw netatmo.StationsData, sel models.Selector) (models.Device, bool) {
	idx := slices.IndexFunc(raw.Devices, func(st netatmo.Station) bool { return st.ID == sel.ID })
	if idx < 0 {
		return models.Device{}, false
	}
	st := raw.Devices[idx]
	if sel.ModuleID == "" {
		return stationDevice(st), true
	}
	for _, m := range st.Modules {
		if m.ID == sel.ModuleID {
			return moduleDevice(st, m), true
		}
	}
	return models.Device{}, false
}

// ResolveHealthCoach is Resolve for health-coach payloads.
func ResolveHealthCoach(raw netatmo.HomeCoachData, sel models.Selector) (models.Device, bool) {
	if sel.ModuleID != "" {
		return models.Device{}, false
	}
	for _, hc := range raw.Devices {
		if hc.ID == sel.ID {
			return coachDevice(hc), true
		}
	}
	return models.Device{}, false
}

func stationDevice(st netatmo.Station) models.Device {
	d := models.NewDevice(st.ID, "", models.KindStation)
	d.GroupName = stationGroup(st)
	d.DisplayName = st.ModuleName
	applyReadings(&d, st.DashboardData)
	return d
}

func moduleDevice(st netatmo.Station, m netatmo.Module) models.Device {
	kind := models.KindModule
	if m.Type == netatmo.TypeOutdoor {
		kind = models.KindOutdoor
	}
	d := models.NewDevice(st.ID, m.ID, kind)
	d.GroupName = stationGroup(st)
	d.DisplayName = m.ModuleName
	applyReadings(&d, m.DashboardData)
	if kind == models.KindOutdoor {
		d.CO2 = nil
	}
	return d
}

func coachDevice(hc netatmo.HomeCoach) models.Device {
	d := models.NewDevice(hc.ID, "", models.KindHealthCoach)
	d.GroupName = firstNonEmpty(hc.StationName, defaultCoachGroup)
	d.DisplayName = firstNonEmpty(hc.Name, hc.ModuleName)
	applyReadings(&d, hc.DashboardData)
	return d
}

func stationGroup(st netatmo.Station) string {
	return firstNonEmpty(st.StationName, st.HomeName)
}

func applyReadings(d *models.Device, dash *netatmo.DashboardData) {
	if dash == nil {
		return
	}
	if dash.CO2 != nil {
		d.CO2 = models.CO2Ptr(*dash.CO2)
	}
	if dash.Temperature != nil && !math.IsNaN(*dash.Temperature) {
		d.Temperature = *dash.Temperature
	}
}

func reportsCO2(dataTypes []string, dash *netatmo.DashboardData) bool {
	if slices.Contains(dataTypes, netatmo.DataTypeCO2) {
		return true
	}
	return dash != nil && dash.CO2 != nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
