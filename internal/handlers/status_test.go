package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"co2_monitor/internal/models"
	"co2_monitor/internal/service"
)

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{Authorization: &mockAuthz{enabled: true, key: "k"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); body != `{"status":"ok"}` {
		t.Fatalf("body: got %s", body)
	}
}

func TestMetricsRoute(t *testing.T) {
	gotMetrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("co2_monitor_polls_total 1\n"))
	})
	r := NewHandler(&service.Service{}, nil, gotMetrics).InitRoutes()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.String() != "co2_monitor_polls_total 1\n" {
		t.Fatalf("unexpected /metrics response: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	newTestRouter(&service.Service{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("without metrics handler: got %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestStatusEndpoints(t *testing.T) {
	snap := models.Snapshot{
		Authorized: true,
		Status: models.Status{
			Level:       models.StatusOrange,
			Tier:        models.TierOrange,
			Icon:        "status/orange.svg",
			AccentColor: "#ff9400",
			Title:       "Home - Living: 1200ppm",
		},
		Badge: models.BadgeSpec{Text: "1200", Color: "#712b00"},
		Theme: models.ThemeSpec{Update: true, Color: "#ff9400"},
	}
	r := newTestRouter(&service.Service{Monitor: &mockMonitor{snap: snap}})

	get := func(path string, out any) {
		t.Helper()
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: got %d, want %d", path, w.Code, http.StatusOK)
		}
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s: unmarshal: %v", path, err)
		}
	}

	var gotSnap models.Snapshot
	get("/api/v1/status", &gotSnap)
	if gotSnap.Status.Title != snap.Status.Title || gotSnap.Status.Tier != models.TierOrange {
		t.Fatalf("status: %+v", gotSnap.Status)
	}

	var badge models.BadgeSpec
	get("/api/v1/badge", &badge)
	if badge != snap.Badge {
		t.Fatalf("badge: got %+v, want %+v", badge, snap.Badge)
	}

	var theme models.ThemeSpec
	get("/api/v1/theme", &theme)
	if theme != snap.Theme {
		t.Fatalf("theme: got %+v, want %+v", theme, snap.Theme)
	}
}

func TestListDevices(t *testing.T) {
	station := models.NewDevice("70:ee:50:00:00:01", "", models.KindStation)
	station.GroupName, station.DisplayName = "Home", "Living"
	mon := &mockMonitor{devices: models.SelectableDevices{Stations: []models.Device{station}, OutdoorModules: []models.Device{}}}
	r := newTestRouter(&service.Service{Monitor: mon})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	var out models.SelectableDevices
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Stations) != 1 || out.Stations[0].ID != station.ID || out.Stations[0].Title() != "Home - Living" {
		t.Fatalf("stations: %+v", out.Stations)
	}
}

func TestListDevices_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNetworkUnavailable, http.StatusServiceUnavailable},
		{service.ErrTransientServer, http.StatusBadGateway},
		{service.ErrNotAuthorized, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := newTestRouter(&service.Service{Monitor: &mockMonitor{listErr: tc.err}})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))
			if w.Code != tc.want {
				t.Fatalf("got %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestSelectedDevice(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(&service.Service{Monitor: &mockMonitor{}}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/devices/selected", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("none selected: got %d, want %d", w.Code, http.StatusNotFound)
	}

	d := models.NewDevice("70:ee:50:00:00:01", "", models.KindStation)
	d.CO2 = models.CO2Ptr(650)
	w = httptest.NewRecorder()
	newTestRouter(&service.Service{Monitor: &mockMonitor{selected: &d}}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/devices/selected", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("selected: got %d, want %d", w.Code, http.StatusOK)
	}
	var out models.Device
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID != d.ID || out.CO2 == nil || *out.CO2 != 650 {
		t.Fatalf("device: %+v", out)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		service.ErrInvalidPreferences: http.StatusBadRequest,
		service.ErrInvalidLoginState:  http.StatusBadRequest,
		service.ErrInvalidTimeRange:   http.StatusBadRequest,
		service.ErrNotAuthorized:      http.StatusUnauthorized,
		service.ErrAuthRejected:       http.StatusUnauthorized,
		service.ErrDeviceNotFound:     http.StatusNotFound,
		service.ErrNetworkUnavailable: http.StatusServiceUnavailable,
		service.ErrTransientServer:    http.StatusBadGateway,
		service.ErrInvalidAPIKey:      http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Errorf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
