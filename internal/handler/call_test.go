package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kioskconnect/backend/internal/coordinator"
	"github.com/kioskconnect/backend/internal/coordinator/memstore"
	"github.com/kioskconnect/backend/internal/model"
	"github.com/kioskconnect/backend/internal/queue"
)

func newCallHandler(restaurants ...uint64) (*CallHandler, *coordinator.Coordinator) {
	store := memstore.New()
	for _, id := range restaurants {
		store.AddRestaurant(id, model.StatusAvailable)
	}
	co := coordinator.New(store)
	h := NewCallHandler(co)
	h.Publish = func(context.Context, queue.CallLifecycleEvent) error { return nil }
	return h, co
}

// request builds an echo context around a recorded request.  userID
// and restaurantScope mimic what the JWT middleware would set.
func request(e *echo.Echo, method, target, body string, userID uint64, scope *uint64) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user_id", float64(userID)) // JWT numerics decode as float64
	}
	if scope != nil {
		c.Set("restaurant_id", float64(*scope))
	}
	return c, rec
}

func TestCreateCall(t *testing.T) {
	e := echo.New()
	h, _ := newCallHandler(1)

	c, rec := request(e, http.MethodPost, "/v1/calls", `{"restaurant_id":1,"origin_id":5}`, 0, nil)
	if err := h.CreateCall(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var call model.Call
	if err := json.Unmarshal(rec.Body.Bytes(), &call); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call.Status != model.CallPending || call.RestaurantID != 1 || call.OriginID != 5 {
		t.Fatalf("created call = %+v", call)
	}
}

func TestCreateCallValidation(t *testing.T) {
	e := echo.New()
	h, _ := newCallHandler(1)

	cases := []struct {
		body string
		want int
	}{
		{`{"restaurant_id":0,"origin_id":5}`, http.StatusBadRequest},
		{`{"restaurant_id":1}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
		{`{"restaurant_id":99,"origin_id":5}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		c, rec := request(e, http.MethodPost, "/v1/calls", tc.body, 0, nil)
		if err := h.CreateCall(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != tc.want {
			t.Errorf("body %q: status = %d, want %d", tc.body, rec.Code, tc.want)
		}
	}
}

func TestCreateCallBusyConflict(t *testing.T) {
	e := echo.New()
	h, co := newCallHandler(1)

	call, err := co.Create(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}
	if _, _, err := co.Accept(context.Background(), call.ID, 7); err != nil {
		t.Fatalf("seed accept: %v", err)
	}

	c, rec := request(e, http.MethodPost, "/v1/calls", `{"restaurant_id":1,"origin_id":6}`, 0, nil)
	if err := h.CreateCall(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestAcceptAndEndFlow(t *testing.T) {
	e := echo.New()
	h, co := newCallHandler(1)

	call, _ := co.Create(context.Background(), 1, 5)

	c, rec := request(e, http.MethodPost, "/v1/calls/"+call.ID+"/accept", "", 7, nil)
	c.SetParamNames("id")
	c.SetParamValues(call.ID)
	if err := h.AcceptCall(c); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("accept status = %d: %s", rec.Code, rec.Body.String())
	}
	var acceptResp struct {
		Call       model.Call   `json:"call"`
		Superseded []model.Call `json:"superseded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &acceptResp); err != nil {
		t.Fatalf("decode accept: %v", err)
	}
	if acceptResp.Call.Status != model.CallActive {
		t.Fatalf("accepted call = %+v", acceptResp.Call)
	}

	// A retried accept conflicts.
	c, rec = request(e, http.MethodPost, "/v1/calls/"+call.ID+"/accept", "", 7, nil)
	c.SetParamNames("id")
	c.SetParamValues(call.ID)
	_ = h.AcceptCall(c)
	if rec.Code != http.StatusConflict {
		t.Fatalf("retried accept status = %d, want 409", rec.Code)
	}

	c, rec = request(e, http.MethodPost, "/v1/calls/"+call.ID+"/end", "", 7, nil)
	c.SetParamNames("id")
	c.SetParamValues(call.ID)
	if err := h.EndCall(c); err != nil {
		t.Fatalf("end: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("end status = %d: %s", rec.Code, rec.Body.String())
	}
	var ended model.Call
	_ = json.Unmarshal(rec.Body.Bytes(), &ended)
	if ended.Status != model.CallCompleted || ended.Outcome == nil || *ended.Outcome != model.OutcomeEnded {
		t.Fatalf("ended call = %+v", ended)
	}
}

func TestAcceptSupersedesRivals(t *testing.T) {
	e := echo.New()
	h, co := newCallHandler(1)

	winner, _ := co.Create(context.Background(), 1, 5)
	rival, _ := co.Create(context.Background(), 1, 6)

	c, rec := request(e, http.MethodPost, "/v1/calls/"+winner.ID+"/accept", "", 7, nil)
	c.SetParamNames("id")
	c.SetParamValues(winner.ID)
	if err := h.AcceptCall(c); err != nil {
		t.Fatalf("accept: %v", err)
	}
	var resp struct {
		Superseded []model.Call `json:"superseded"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Superseded) != 1 || resp.Superseded[0].ID != rival.ID {
		t.Fatalf("superseded = %+v, want %s", resp.Superseded, rival.ID)
	}
}

func TestStaffScoping(t *testing.T) {
	e := echo.New()
	h, co := newCallHandler(1, 2)

	call, _ := co.Create(context.Background(), 1, 5)
	otherRestaurant := uint64(2)

	// Accept against a call outside the token's restaurant is forbidden.
	c, rec := request(e, http.MethodPost, "/v1/calls/"+call.ID+"/accept", "", 7, &otherRestaurant)
	c.SetParamNames("id")
	c.SetParamValues(call.ID)
	_ = h.AcceptCall(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-restaurant accept status = %d, want 403", rec.Code)
	}

	// Listing another restaurant's calls is forbidden too.
	c, rec = request(e, http.MethodGet, "/v1/calls?restaurant_id=1", "", 7, &otherRestaurant)
	_ = h.ListCalls(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-restaurant list status = %d, want 403", rec.Code)
	}

	// The bound restaurant works.
	own := uint64(1)
	c, rec = request(e, http.MethodGet, "/v1/calls?restaurant_id=1", "", 7, &own)
	if err := h.ListCalls(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rec.Code, rec.Body.String())
	}
	var listResp struct {
		Calls []model.Call `json:"calls"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &listResp)
	if len(listResp.Calls) != 1 {
		t.Fatalf("listed %d calls, want 1", len(listResp.Calls))
	}
}

func TestLifecycleEventsPublished(t *testing.T) {
	e := echo.New()
	h, co := newCallHandler(1)

	var events []queue.CallLifecycleEvent
	h.Publish = func(_ context.Context, ev queue.CallLifecycleEvent) error {
		events = append(events, ev)
		return nil
	}

	c, _ := request(e, http.MethodPost, "/v1/calls", `{"restaurant_id":1,"origin_id":5}`, 0, nil)
	if err := h.CreateCall(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	rival, _ := co.Create(context.Background(), 1, 6)
	_ = rival

	winnerID := events[0].CallID
	c, _ = request(e, http.MethodPost, "/v1/calls/"+winnerID+"/accept", "", 7, nil)
	c.SetParamNames("id")
	c.SetParamValues(winnerID)
	if err := h.AcceptCall(c); err != nil {
		t.Fatalf("accept: %v", err)
	}

	c, _ = request(e, http.MethodPost, "/v1/calls/"+winnerID+"/end", "", 7, nil)
	c.SetParamNames("id")
	c.SetParamValues(winnerID)
	if err := h.EndCall(c); err != nil {
		t.Fatalf("end: %v", err)
	}

	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	want := []string{queue.EventCallCreated, queue.EventCallAccepted, queue.EventCallSuperseded, queue.EventCallEnded}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, types[i], want[i])
		}
	}
	for _, ev := range events {
		if ev.Type == queue.EventCallAccepted && (ev.ActorID == nil || *ev.ActorID != 7) {
			t.Fatalf("accept event missing actor: %+v", ev)
		}
		if ev.Type == queue.EventCallSuperseded && ev.Outcome != model.OutcomeSuperseded {
			t.Fatalf("supersede event outcome = %q", ev.Outcome)
		}
	}
}

func TestGetCallNotFound(t *testing.T) {
	e := echo.New()
	h, _ := newCallHandler(1)

	c, rec := request(e, http.MethodGet, "/v1/calls/nope", "", 0, nil)
	c.SetParamNames("id")
	c.SetParamValues("nope")
	_ = h.GetCall(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
