package netatmo

// Module types reported by the weather station API.
const (
	TypeMainStation = "NAMain"
	TypeOutdoor     = "NAModule1"
	TypeWind        = "NAModule2"
	TypeRain        = "NAModule3"
	TypeIndoor      = "NAModule4"
	TypeHomeCoach   = "NHC"

	DataTypeCO2 = "CO2"
)

// DashboardData holds the latest measurements of a station or module.
// Absent fields stay nil.
type DashboardData struct {
	TimeUTC     int64    `json:"time_utc"`
	CO2         *float64 `json:"CO2,omitempty"`
	Temperature *float64 `json:"Temperature,omitempty"`
	Humidity    *float64 `json:"Humidity,omitempty"`
	Noise       *float64 `json:"Noise,omitempty"`
	Pressure    *float64 `json:"Pressure,omitempty"`
}

// Module is a sub-sensor attached to a station.
type Module struct {
	ID            string         `json:"_id"`
	Type          string         `json:"type"`
	ModuleName    string         `json:"module_name"`
	DataType      []string       `json:"data_type"`
	Reachable     bool           `json:"reachable"`
	DashboardData *DashboardData `json:"dashboard_data,omitempty"`
}

// Station is a main weather station with its modules.
type Station struct {
	ID            string         `json:"_id"`
	Type          string         `json:"type"`
	StationName   string         `json:"station_name"`
	ModuleName    string         `json:"module_name"`
	HomeName      string         `json:"home_name"`
	DataType      []string       `json:"data_type"`
	DashboardData *DashboardData `json:"dashboard_data,omitempty"`
	Modules       []Module       `json:"modules"`
}

// StationsData is the body of getstationsdata.
type StationsData struct {
	Devices []Station `json:"devices"`
}

// HomeCoach is a health-coach device.
type HomeCoach struct {
	ID            string         `json:"_id"`
	Type          string         `json:"type"`
	Name          string         `json:"name"`
	StationName   string         `json:"station_name"`
	ModuleName    string         `json:"module_name"`
	DataType      []string       `json:"data_type"`
	DashboardData *DashboardData `json:"dashboard_data,omitempty"`
}

// HomeCoachData is the body of gethomecoachsdata.
type HomeCoachData struct {
	Devices []HomeCoach `json:"devices"`
}

type envelope[T any] struct {
	Status string `json:"status"`
	Body   T      `json:"body"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// TokenGrant is the result of a token endpoint exchange.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}
