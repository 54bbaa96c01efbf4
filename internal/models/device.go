package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// DeviceKind distinguishes the device shapes the API reports.
type DeviceKind string

const (
	KindStation     DeviceKind = "weather-station"
	KindModule      DeviceKind = "weather-module"
	KindHealthCoach DeviceKind = "health-coach"
	KindOutdoor     DeviceKind = "outdoor"
)

// Device is one monitored sensor snapshot. A station and one of its modules
// share ID and differ by ModuleID.
type Device struct {
	ID          string
	ModuleID    string
	Kind        DeviceKind
	DisplayName string
	GroupName   string
	CO2         *float64
	Temperature float64 // NaN when unknown
}

// Selector identifies a device across snapshots.
type Selector struct {
	ID       string `json:"id"`
	ModuleID string `json:"module_id,omitempty"`
}

// NewDevice returns a device with an unknown reading.
func NewDevice(id, moduleID string, kind DeviceKind) Device {
	return Device{ID: id, ModuleID: moduleID, Kind: kind, Temperature: math.NaN()}
}

// IsZero reports whether the device carries no identity.
func (d Device) IsZero() bool {
	return d.ID == ""
}

// SameAs compares identity, not readings.
func (d Device) SameAs(o Device) bool {
	return d.ID == o.ID && d.ModuleID == o.ModuleID
}

// Selector returns the identity of d.
func (d Device) Selector() Selector {
	return Selector{ID: d.ID, ModuleID: d.ModuleID}
}

// HasCO2 reports whether a CO2 reading is present.
func (d Device) HasCO2() bool {
	return d.CO2 != nil
}

// HasTemperature reports whether a temperature reading is present.
func (d Device) HasTemperature() bool {
	return !math.IsNaN(d.Temperature)
}

// Cleared keeps the identity and naming of d and drops its readings.
func (d Device) Cleared() Device {
	d.CO2 = nil
	d.Temperature = math.NaN()
	return d
}

// Title is the label used for the status title and option lists.
func (d Device) Title() string {
	switch {
	case d.GroupName == "":
		return d.DisplayName
	case d.DisplayName == "":
		return d.GroupName
	default:
		return fmt.Sprintf("%s - %s", d.GroupName, d.DisplayName)
	}
}

// CO2Ptr is a helper for building readings in literals.
func CO2Ptr(v float64) *float64 {
	return &v
}

type deviceJSON struct {
	ID          string     `json:"id"`
	ModuleID    string     `json:"module_id,omitempty"`
	Kind        DeviceKind `json:"kind,omitempty"`
	DisplayName string     `json:"module"`
	GroupName   string     `json:"group"`
	CO2         *float64   `json:"co2"`
	Temperature *float64   `json:"temperature"`
}

// MarshalJSON encodes an unknown temperature as null.
func (d Device) MarshalJSON() ([]byte, error) {
	out := deviceJSON{
		ID:          d.ID,
		ModuleID:    d.ModuleID,
		Kind:        d.Kind,
		DisplayName: d.DisplayName,
		GroupName:   d.GroupName,
		CO2:         d.CO2,
	}
	if d.HasTemperature() {
		t := d.Temperature
		out.Temperature = &t
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null or missing temperature as NaN.
func (d *Device) UnmarshalJSON(b []byte) error {
	var in deviceJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*d = Device{
		ID:          in.ID,
		ModuleID:    in.ModuleID,
		Kind:        in.Kind,
		DisplayName: in.DisplayName,
		GroupName:   in.GroupName,
		CO2:         in.CO2,
		Temperature: math.NaN(),
	}
	if in.Temperature != nil {
		d.Temperature = *in.Temperature
	}
	return nil
}
