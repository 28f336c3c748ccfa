package poller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kioskconnect/backend/internal/model"
)

func TestClientErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusConflict, ErrConflict},
		{http.StatusNotFound, ErrGone},
		{http.StatusInternalServerError, ErrRetryable},
		{http.StatusServiceUnavailable, ErrRetryable},
		{http.StatusTooManyRequests, ErrRetryable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewClient(srv.URL, "")
		_, err := c.GetCall(context.Background(), "some-id")
		srv.Close()
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestClientNetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // dead endpoint
	c := NewClient(srv.URL, "")
	if _, err := c.GetCall(context.Background(), "id"); !errors.Is(err, ErrRetryable) {
		t.Fatalf("err = %v, want ErrRetryable", err)
	}
}

func TestClientRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /v1/calls":
			var body map[string]uint64
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["restaurant_id"] != 4 || body["origin_id"] != 9 {
				t.Errorf("create body = %v", body)
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(model.Call{ID: "c1", Status: model.CallPending, Revision: 1})
		case "GET /v1/calls":
			if r.URL.RawQuery != "restaurant_id=4" {
				t.Errorf("list query = %q", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode(map[string][]model.Call{
				"calls": {{ID: "c1", Status: model.CallPending}},
			})
		case "POST /v1/calls/c1/accept":
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing bearer on accept")
			}
			_ = json.NewEncoder(w).Encode(map[string]model.Call{
				"call": {ID: "c1", Status: model.CallActive, Revision: 2},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.URL, "tok")

	created, err := c.CreateCall(ctx, 4, 9)
	if err != nil || created.ID != "c1" {
		t.Fatalf("create = %+v, %v", created, err)
	}
	calls, err := c.ListCalls(ctx, 4)
	if err != nil || len(calls) != 1 {
		t.Fatalf("list = %+v, %v", calls, err)
	}
	accepted, err := c.AcceptCall(ctx, "c1")
	if err != nil || accepted.Status != model.CallActive {
		t.Fatalf("accept = %+v, %v", accepted, err)
	}
}
