package poller

import (
	"testing"

	"github.com/kioskconnect/backend/internal/model"
)

func TestResolvePhase(t *testing.T) {
	cases := []struct {
		name         string
		cur          string
		timerElapsed bool
		authStatus   string
		haveAuth     bool
		want         string
		wantEnded    bool
	}{
		{
			name: "idle stays idle with no input",
			cur:  PhaseIdle, want: PhaseIdle,
		},
		{
			name: "timer alone advances connecting",
			cur:  PhaseConnecting, timerElapsed: true, want: PhaseInCall,
		},
		{
			name: "connecting holds until the timer fires",
			cur:  PhaseConnecting, want: PhaseConnecting,
		},
		{
			name: "authoritative pending never regresses the optimistic view",
			cur:  PhaseInCall, authStatus: model.CallPending, haveAuth: true, want: PhaseInCall,
		},
		{
			name: "authoritative pending does not advance connecting early",
			cur:  PhaseConnecting, authStatus: model.CallPending, haveAuth: true, want: PhaseConnecting,
		},
		{
			name: "authoritative active promotes before the timer",
			cur:  PhaseConnecting, authStatus: model.CallActive, haveAuth: true, want: PhaseInCall,
		},
		{
			name: "completed forces idle from connecting",
			cur:  PhaseConnecting, authStatus: model.CallCompleted, haveAuth: true,
			want: PhaseIdle, wantEnded: true,
		},
		{
			name: "completed forces idle from in-call",
			cur:  PhaseInCall, authStatus: model.CallCompleted, haveAuth: true,
			want: PhaseIdle, wantEnded: true,
		},
		{
			name: "completed while already idle is not a remote end",
			cur:  PhaseIdle, authStatus: model.CallCompleted, haveAuth: true,
			want: PhaseIdle, wantEnded: false,
		},
		{
			name: "completed wins over a simultaneously elapsed timer",
			cur:  PhaseConnecting, timerElapsed: true, authStatus: model.CallCompleted, haveAuth: true,
			want: PhaseIdle, wantEnded: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ended := resolvePhase(tc.cur, tc.timerElapsed, tc.authStatus, tc.haveAuth)
			if got != tc.want || ended != tc.wantEnded {
				t.Fatalf("resolvePhase(%q, %v, %q, %v) = (%q, %v), want (%q, %v)",
					tc.cur, tc.timerElapsed, tc.authStatus, tc.haveAuth, got, ended, tc.want, tc.wantEnded)
			}
		})
	}
}
