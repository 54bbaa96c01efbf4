package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"co2_monitor/internal/models"
	"co2_monitor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 30 * time.Second},
		{"interval_string_valid", "/ws?interval=2s", 2 * time.Second},
		{"interval_ms_valid", "/ws?interval_ms=1500", 1500 * time.Millisecond},
		{"interval_too_small", "/ws?interval=200ms", 30 * time.Second},
		{"interval_too_large", "/ws?interval=20m", 30 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=900000", 30 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 30 * time.Second},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", 30 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=1500", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=2500", 2500 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

// --- websocket integration tests ---

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialStatus(t *testing.T, s *service.Service, query url.Values, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	srv := httptest.NewServer(newTestRouter(s))
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	return dialer.Dial(u.String(), header)
}

func readSnapshot(t *testing.T, conn *websocket.Conn) models.Snapshot {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != "status" || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	return snap
}

func TestWebSocket_InitialSnapshotThenPushedUpdate(t *testing.T) {
	mon := &mockMonitor{snap: models.Snapshot{
		Authorized: true,
		Status:     models.Status{Level: models.StatusGreen, Title: "Home - Living: 650ppm"},
		Badge:      models.BadgeSpec{Text: "650"},
	}, updates: make(chan models.Snapshot, 1)}
	conn, _, err := dialStatus(t, &service.Service{Monitor: mon}, url.Values{"interval": {"10m"}}, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	first := readSnapshot(t, conn)
	if first.Status.Title != "Home - Living: 650ppm" || first.Badge.Text != "650" {
		t.Fatalf("unexpected initial snapshot: %+v", first)
	}

	mon.updates <- models.Snapshot{
		Authorized: true,
		Status:     models.Status{Level: models.StatusYellow, Tier: models.TierYellow, Title: "Home - Living: 810ppm"},
	}
	pushed := readSnapshot(t, conn)
	if pushed.Status.Tier != models.TierYellow || pushed.Status.Title != "Home - Living: 810ppm" {
		t.Fatalf("unexpected pushed snapshot: %+v", pushed)
	}
}

func TestWebSocket_PeriodicResend(t *testing.T) {
	mon := &mockMonitor{snap: models.Snapshot{Status: models.Status{Level: models.StatusUnknown}}}
	conn, _, err := dialStatus(t, &service.Service{Monitor: mon}, url.Values{"interval_ms": {"1000"}}, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	_ = readSnapshot(t, conn)
	if snap := readSnapshot(t, conn); snap.Status.Level != models.StatusUnknown {
		t.Fatalf("unexpected tick snapshot: %+v", snap)
	}
}

func TestWebSocket_RequiresAPIKey(t *testing.T) {
	s := &service.Service{
		Monitor:       &mockMonitor{},
		Authorization: &mockAuthz{enabled: true, key: "secret"},
	}

	_, resp, err := dialStatus(t, s, nil, nil)
	if err == nil {
		t.Fatal("expected handshake failure without key")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}

	conn, _, err := dialStatus(t, s, nil, authHeader("secret"))
	if err != nil {
		t.Fatalf("dial with key: %v", err)
	}
	defer conn.Close()
	_ = readSnapshot(t, conn)
}
