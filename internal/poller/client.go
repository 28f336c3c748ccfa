// Package poller contains the two client-side reconciliation loops
// that sit on either end of a call: the kiosk caller and the
// restaurant dashboard callee.  Both poll the backend on fixed
// intervals and converge on the authoritative call state; neither
// talks to the other directly.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kioskconnect/backend/internal/model"
)

// Sentinel errors the pollers branch on.  Anything retryable is
// wrapped in ErrRetryable so a loop can silently try again on the
// next tick; ErrConflict and ErrGone mean the world moved on and
// the poller should refetch instead of retrying the same action.
var (
	ErrRetryable = errors.New("temporarily unavailable")
	ErrConflict  = errors.New("call state changed")
	ErrGone      = errors.New("call no longer exists")
)

// Client is a thin HTTP client over the call API.  Token is the
// bearer access token for staff endpoints; kiosk endpoints do not
// need one.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient builds a Client with a bounded request timeout.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateCall places a call from originID against restaurantID.
func (c *Client) CreateCall(ctx context.Context, restaurantID, originID uint64) (model.Call, error) {
	body := map[string]uint64{"restaurant_id": restaurantID, "origin_id": originID}
	var call model.Call
	err := c.do(ctx, http.MethodPost, "/v1/calls", body, &call)
	return call, err
}

// GetCall fetches one call by id.
func (c *Client) GetCall(ctx context.Context, id string) (model.Call, error) {
	var call model.Call
	err := c.do(ctx, http.MethodGet, "/v1/calls/"+id, nil, &call)
	return call, err
}

// ListCalls fetches every call for a restaurant, newest first.
func (c *Client) ListCalls(ctx context.Context, restaurantID uint64) ([]model.Call, error) {
	var out struct {
		Calls []model.Call `json:"calls"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/calls?restaurant_id="+strconv.FormatUint(restaurantID, 10), nil, &out)
	return out.Calls, err
}

// AcceptCall accepts a pending call.
func (c *Client) AcceptCall(ctx context.Context, id string) (model.Call, error) {
	var out struct {
		Call model.Call `json:"call"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/calls/"+id+"/accept", nil, &out)
	return out.Call, err
}

// EndCall ends an active call.
func (c *Client) EndCall(ctx context.Context, id string) (model.Call, error) {
	var call model.Call
	err := c.do(ctx, http.MethodPost, "/v1/calls/"+id+"/end", nil, &call)
	return call, err
}

// do performs the request and maps the response status onto the
// sentinel taxonomy: 409 -> ErrConflict, 404 -> ErrGone, 429/5xx
// and transport failures -> ErrRetryable.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rdr *bytes.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(bs)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRetryable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode == http.StatusNotFound:
		return ErrGone
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: http %d", ErrRetryable, resp.StatusCode)
	default:
		return fmt.Errorf("http %d on %s %s", resp.StatusCode, method, path)
	}
}
