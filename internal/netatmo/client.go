package netatmo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.netatmo.com/"

	stationsPath   = "api/getstationsdata"
	homeCoachsPath = "api/gethomecoachsdata"
	tokenPath      = "oauth2/token"
	authorizePath  = "oauth2/authorize"

	defaultTimeout = 30 * time.Second
)

// DefaultScopes are requested on login.
var DefaultScopes = []string{"read_station", "read_homecoach"}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	Timeout      time.Duration
}

// Client talks to the Netatmo HTTP API. It performs no retries; callers
// decide what to do with each outcome class.
type Client struct {
	baseURL string
	http    *http.Client
	oauth   *oauth2.Config
}

type Option func(*Client)

// WithHTTPClient replaces the transport used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("netatmo: client id and secret are required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, errors.Wrap(err, "netatmo: parse base url")
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + authorizePath,
				TokenURL:  base + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetStationsData fetches weather stations. An empty deviceID lists all
// stations visible to the token.
func (c *Client) GetStationsData(ctx context.Context, accessToken, deviceID string) (StationsData, error) {
	var env envelope[StationsData]
	if err := c.postData(ctx, "getstationsdata", stationsPath, accessToken, deviceID, &env); err != nil {
		return StationsData{}, err
	}
	return env.Body, nil
}

// GetHomeCoachsData fetches health-coach devices.
func (c *Client) GetHomeCoachsData(ctx context.Context, accessToken, deviceID string) (HomeCoachData, error) {
	var env envelope[HomeCoachData]
	if err := c.postData(ctx, "gethomecoachsdata", homeCoachsPath, accessToken, deviceID, &env); err != nil {
		return HomeCoachData{}, err
	}
	return env.Body, nil
}

func (c *Client) postData(ctx context.Context, op, path, accessToken, deviceID string, out any) error {
	form := url.Values{}
	form.Set("access_token", accessToken)
	if deviceID != "" {
		form.Set("device_id", deviceID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrapf(err, "%s: build request", op)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Kind: ErrNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apiErrorBody{}
		_ = json.Unmarshal(body, &apiErr)
		return &Error{
			Op:      op,
			Status:  resp.StatusCode,
			Message: apiErr.Error.Message,
			Kind:    classifyDataStatus(resp.StatusCode),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Kind: ErrServer, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}
