package coordinator

import (
	"testing"

	"github.com/kioskconnect/backend/internal/model"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		want   bool
	}{
		{"accept", model.CallPending, true},
		{"accept", model.CallActive, false},
		{"accept", model.CallCompleted, false},
		{"end", model.CallActive, true},
		{"end", model.CallPending, false},
		{"end", model.CallCompleted, false},
		{"supersede", model.CallPending, true},
		{"supersede", model.CallActive, false},
		{"expire", model.CallPending, true},
		{"expire", model.CallCompleted, false},
		{"unknown", model.CallPending, false},
		{"accept", "", false},
	}
	for _, tc := range cases {
		if got := ValidTransition(tc.action, tc.from); got != tc.want {
			t.Errorf("ValidTransition(%q, %q) = %v, want %v", tc.action, tc.from, got, tc.want)
		}
	}
}
