// Package webapi
// Author: momentics <momentics@gmail.com>
//
// Web API calls used to bootstrap a realtime session: rtm.connect and
// rtm.start for the socket URL and team snapshot, oauth.access for tokens
// and the history methods for backfill.
package webapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

const (
	DefaultBase    = "https://slack.com/api"
	DefaultTimeout = 30 * time.Second
	maxResponse    = 8 << 20
)

// ErrNoToken is returned by calls that need an access token.
var ErrNoToken = errors.New("webapi: no access token")

// APIError is a response with ok=false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("webapi: %s: %s", e.Method, e.Code)
}

// Client calls Web API methods under Base.
type Client struct {
	Base         string
	Token        string
	ClientID     string
	ClientSecret string
	HTTP         *http.Client
}

// New returns a client for base authenticated by token. Empty base means
// DefaultBase.
func New(base, token string) *Client {
	if base == "" {
		base = DefaultBase
	}
	return &Client{
		Base:  strings.TrimRight(base, "/"),
		Token: token,
		HTTP:  &http.Client{Timeout: DefaultTimeout},
	}
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// call GETs method with params and decodes the body into out once ok is
// confirmed.
func (c *Client) call(ctx context.Context, method string, params url.Values, auth bool, out any) error {
	if auth && c.Token == "" {
		return ErrNoToken
	}
	u := c.Base + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("webapi: %s: %w", method, err)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("webapi: %s: %w", method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return fmt.Errorf("webapi: %s: read body: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webapi: %s: http status %d", method, resp.StatusCode)
	}

	var env envelope
	if err := sonnet.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("webapi: %s: decode: %w", method, err)
	}
	if !env.OK {
		code := env.Error
		if code == "" {
			code = "unknown_error"
		}
		return &APIError{Method: method, Code: code}
	}
	if out == nil {
		return nil
	}
	if err := sonnet.Unmarshal(body, out); err != nil {
		return fmt.Errorf("webapi: %s: decode: %w", method, err)
	}
	return nil
}

// ConnectURL asks rtm.connect for a fresh socket URL.
func (c *Client) ConnectURL(ctx context.Context) (string, error) {
	var r struct {
		URL string `json:"url"`
	}
	if err := c.call(ctx, "rtm.connect", nil, true, &r); err != nil {
		return "", err
	}
	if r.URL == "" {
		return "", fmt.Errorf("webapi: rtm.connect: response has no url")
	}
	return r.URL, nil
}

// ExchangeCode trades an OAuth code for an access token via oauth.access.
func (c *Client) ExchangeCode(ctx context.Context, code, redirect string) (string, error) {
	params := url.Values{
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirect},
	}
	var r struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.call(ctx, "oauth.access", params, false, &r); err != nil {
		return "", err
	}
	if r.AccessToken == "" {
		return "", fmt.Errorf("webapi: oauth.access: response has no access_token")
	}
	return r.AccessToken, nil
}
