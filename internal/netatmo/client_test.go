package netatmo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:8080/auth/callback",
	}, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func readForm(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	v, err := url.ParseQuery(string(b))
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return v
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{ClientID: "id"}); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestGetStationsData_PostsFormAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/getstationsdata" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
			t.Errorf("content type = %s", ct)
		}
		form := readForm(t, r)
		if form.Get("access_token") != "tok" || form.Get("device_id") != "70:ee:50:00:00:01" {
			t.Errorf("form = %v", form)
		}
		_, _ = io.WriteString(w, `{"status":"ok","body":{"devices":[{"_id":"70:ee:50:00:00:01","type":"NAMain",
			"station_name":"Home","module_name":"Living","data_type":["Temperature","CO2"],
			"dashboard_data":{"CO2":912,"Temperature":22.5},
			"modules":[{"_id":"02:00:00:00:00:01","type":"NAModule1","module_name":"Garden",
			"data_type":["Temperature"],"dashboard_data":{"Temperature":11.2}}]}]}}`)
	}))
	defer srv.Close()

	data, err := newTestClient(t, srv).GetStationsData(context.Background(), "tok", "70:ee:50:00:00:01")
	if err != nil {
		t.Fatalf("GetStationsData: %v", err)
	}
	if len(data.Devices) != 1 {
		t.Fatalf("devices = %d", len(data.Devices))
	}
	st := data.Devices[0]
	if st.DashboardData == nil || st.DashboardData.CO2 == nil || *st.DashboardData.CO2 != 912 {
		t.Fatalf("unexpected dashboard %+v", st.DashboardData)
	}
	if len(st.Modules) != 1 || st.Modules[0].Type != TypeOutdoor {
		t.Fatalf("unexpected modules %+v", st.Modules)
	}
}

func TestGetHomeCoachsData_OmitsEmptyDeviceID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form := readForm(t, r)
		if _, ok := form["device_id"]; ok {
			t.Errorf("device_id should be omitted, form = %v", form)
		}
		_, _ = io.WriteString(w, `{"status":"ok","body":{"devices":[{"_id":"70:ee:50:00:00:09","type":"NHC","name":"Bedroom"}]}}`)
	}))
	defer srv.Close()

	data, err := newTestClient(t, srv).GetHomeCoachsData(context.Background(), "tok", "")
	if err != nil {
		t.Fatalf("GetHomeCoachsData: %v", err)
	}
	if len(data.Devices) != 1 || data.Devices[0].Name != "Bedroom" {
		t.Fatalf("unexpected devices %+v", data.Devices)
	}
}

func TestDataCalls_ClassifyStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"server", http.StatusBadGateway, ErrServer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, `{"error":{"code":3,"message":"Access token expired"}}`)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).GetStationsData(context.Background(), "tok", "")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			var apiErr *Error
			if !errors.As(err, &apiErr) || apiErr.Status != tc.status {
				t.Fatalf("expected *Error with status %d, got %v", tc.status, err)
			}
		})
	}
}

func TestDataCalls_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.GetStationsData(context.Background(), "tok", "")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestRefreshToken_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		form := readForm(t, r)
		if form.Get("grant_type") != "refresh_token" || form.Get("refresh_token") != "r1" {
			t.Errorf("form = %v", form)
		}
		if form.Get("client_id") != "client" || form.Get("client_secret") != "secret" {
			t.Errorf("client credentials not in body: %v", form)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"a2","refresh_token":"r2","expires_in":10800}`)
	}))
	defer srv.Close()

	grant, err := newTestClient(t, srv).RefreshToken(context.Background(), "r1")
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if grant.AccessToken != "a2" || grant.RefreshToken != "r2" || grant.ExpiresIn != 10800 {
		t.Fatalf("unexpected grant %+v", grant)
	}
}

func TestRefreshToken_Classification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"invalid grant", http.StatusBadRequest, `{"error":"invalid_grant"}`, ErrRejected},
		{"forbidden", http.StatusForbidden, `{"error":"invalid_client"}`, ErrRejected},
		{"server", http.StatusServiceUnavailable, `oops`, ErrServer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).RefreshToken(context.Background(), "r1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRefreshToken_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.RefreshToken(context.Background(), "r1")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestExchangeCode_SendsScope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form := readForm(t, r)
		if form.Get("grant_type") != "authorization_code" || form.Get("code") != "abc" {
			t.Errorf("form = %v", form)
		}
		if form.Get("scope") != "read_station read_homecoach" {
			t.Errorf("scope = %q", form.Get("scope"))
		}
		if form.Get("redirect_uri") != "http://localhost:8080/auth/callback" {
			t.Errorf("redirect_uri = %q", form.Get("redirect_uri"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"a1","refresh_token":"r1","expires_in":"10800"}`)
	}))
	defer srv.Close()

	grant, err := newTestClient(t, srv).ExchangeCode(context.Background(), "abc")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if grant.AccessToken != "a1" || grant.ExpiresIn != 10800 {
		t.Fatalf("unexpected grant %+v", grant)
	}
}

func TestAuthorizeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	raw := newTestClient(t, srv).AuthorizeURL("state-1")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if u.Path != "/oauth2/authorize" || q.Get("state") != "state-1" || q.Get("client_id") != "client" {
		t.Fatalf("unexpected url %s", raw)
	}
	if q.Get("scope") != "read_station read_homecoach" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected query %v", q)
	}
}
