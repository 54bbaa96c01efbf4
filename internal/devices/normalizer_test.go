package devices

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2_monitor/internal/models"
	"co2_monitor/internal/netatmo"
)

const stationsFixture = `{"devices":[
 {"_id":"70:ee:50:00:00:01","type":"NAMain","station_name":"Home","home_name":"Flat",
  "module_name":"Living room","data_type":["Temperature","CO2","Humidity"],
  "dashboard_data":{"CO2":912,"Temperature":22.5},
  "modules":[
   {"_id":"02:00:00:00:00:01","type":"NAModule1","module_name":"Garden",
    "data_type":["Temperature","Humidity"],"dashboard_data":{"Temperature":11.2}},
   {"_id":"03:00:00:00:00:01","type":"NAModule4","module_name":"Bedroom",
    "data_type":["Temperature","CO2"],"dashboard_data":{"CO2":640,"Temperature":20.1}},
   {"_id":"05:00:00:00:00:01","type":"NAModule3","module_name":"Rain","data_type":["Rain"]}
  ]},
 {"_id":"70:ee:50:00:00:02","type":"NAMain","station_name":"","home_name":"Cabin",
  "module_name":"Hall","data_type":["Temperature"],"dashboard_data":{"Temperature":18},
  "modules":[
   {"_id":"03:00:00:00:00:02","type":"NAModule4","module_name":"Kitchen",
    "data_type":["Temperature","CO2"]}
  ]},
 {"_id":"70:ee:50:00:00:03","type":"NAMain","station_name":"Office","module_name":"Desk",
  "data_type":["Temperature"],"dashboard_data":{"Temperature":21}}
]}`

func loadStations(t *testing.T) netatmo.StationsData {
	t.Helper()
	var raw netatmo.StationsData
	require.NoError(t, json.Unmarshal([]byte(stationsFixture), &raw))
	return raw
}

func assertEquivalent(t *testing.T, want, got models.Device) {
	t.Helper()
	assert.True(t, want.SameAs(got), "identity %v vs %v", want.Selector(), got.Selector())
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.DisplayName, got.DisplayName)
	assert.Equal(t, want.GroupName, got.GroupName)
	assert.Equal(t, want.CO2, got.CO2)
	if math.IsNaN(want.Temperature) {
		assert.True(t, math.IsNaN(got.Temperature))
	} else {
		assert.Equal(t, want.Temperature, got.Temperature)
	}
}

func TestNormalizeStationList(t *testing.T) {
	list := NormalizeStationList(loadStations(t))

	require.Len(t, list, 3)

	assert.Equal(t, models.KindStation, list[0].Kind)
	assert.Equal(t, "Home - Living room", list[0].Title())
	assert.Equal(t, 912.0, *list[0].CO2)
	assert.Equal(t, 22.5, list[0].Temperature)

	assert.Equal(t, models.KindModule, list[1].Kind)
	assert.Equal(t, "03:00:00:00:00:01", list[1].ModuleID)
	assert.Equal(t, "Home - Bedroom", list[1].Title())

	// Station without own CO2 still contributes its CO2 module, named after
	// the home when the station has no name.
	assert.Equal(t, "70:ee:50:00:00:02", list[2].ID)
	assert.Equal(t, "Cabin - Kitchen", list[2].Title())
	assert.Nil(t, list[2].CO2)
	assert.True(t, math.IsNaN(list[2].Temperature))
}

func TestNormalizeStationList_Empty(t *testing.T) {
	assert.Empty(t, NormalizeStationList(netatmo.StationsData{}))
}

func TestExtractOutdoorReferences(t *testing.T) {
	refs := ExtractOutdoorReferences(loadStations(t))

	require.Len(t, refs, 1)
	assert.Equal(t, models.KindOutdoor, refs[0].Kind)
	assert.Equal(t, "02:00:00:00:00:01", refs[0].ModuleID)
	assert.Equal(t, 11.2, refs[0].Temperature)
	assert.Nil(t, refs[0].CO2)
}

func TestResolve_RoundTrip(t *testing.T) {
	raw := loadStations(t)
	emitted := append(NormalizeStationList(raw), ExtractOutdoorReferences(raw)...)

	for _, d := range emitted {
		got, ok := Resolve(raw, d.Selector())
		require.True(t, ok, "resolve %v", d.Selector())
		assertEquivalent(t, d, got)
	}
}

func TestResolve_StationWithoutCO2StillResolvable(t *testing.T) {
	got, ok := Resolve(loadStations(t), models.Selector{ID: "70:ee:50:00:00:03"})

	require.True(t, ok)
	assert.Equal(t, "Office - Desk", got.Title())
	assert.False(t, got.HasCO2())
	assert.Equal(t, 21.0, got.Temperature)
}

func TestResolve_Miss(t *testing.T) {
	raw := loadStations(t)

	_, ok := Resolve(raw, models.Selector{ID: "70:ee:50:ff:ff:ff"})
	assert.False(t, ok)

	_, ok = Resolve(raw, models.Selector{ID: "70:ee:50:00:00:01", ModuleID: "gone"})
	assert.False(t, ok)
}

func TestHealthCoaches(t *testing.T) {
	var raw netatmo.HomeCoachData
	require.NoError(t, json.Unmarshal([]byte(`{"devices":[
		{"_id":"70:ee:50:00:00:09","type":"NHC","name":"Bedroom","data_type":["CO2","Temperature"],
		 "dashboard_data":{"CO2":1203,"Temperature":23.4}},
		{"_id":"70:ee:50:00:00:0a","type":"NHC","station_name":"Parents","module_name":"Nursery",
		 "dashboard_data":{"CO2":500}}]}`), &raw))

	list := NormalizeHealthCoaches(raw)
	require.Len(t, list, 2)
	assert.Equal(t, "Home Coach - Bedroom", list[0].Title())
	assert.Equal(t, "Parents - Nursery", list[1].Title())
	assert.True(t, math.IsNaN(list[1].Temperature))

	for _, d := range list {
		got, ok := ResolveHealthCoach(raw, d.Selector())
		require.True(t, ok)
		assertEquivalent(t, d, got)
	}

	_, ok := ResolveHealthCoach(raw, models.Selector{ID: "70:ee:50:00:00:09", ModuleID: "x"})
	assert.False(t, ok)
}

func TestSelectable(t *testing.T) {
	sel := Selectable(loadStations(t), netatmo.HomeCoachData{})

	assert.Len(t, sel.Stations, 3)
	assert.Len(t, sel.OutdoorModules, 1)

	empty := Selectable(netatmo.StationsData{}, netatmo.HomeCoachData{})
	assert.NotNil(t, empty.OutdoorModules)
	assert.Empty(t, empty.Stations)
}
