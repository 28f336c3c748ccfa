package coordinator

import "github.com/kioskconnect/backend/internal/model"

// transitionMap lists, for each transition action, the statuses a
// call may be in when the action is applied.  Anything else is an
// invalid transition.  supersede and expire are internal actions:
// supersede closes rival pending calls when an accept wins, and
// expire closes pending calls that aged out unaccepted.
var transitionMap = map[string][]string{
	"accept":    {model.CallPending},
	"end":       {model.CallActive},
	"supersede": {model.CallPending},
	"expire":    {model.CallPending},
}

// ValidTransition reports whether applying action to a call in
// fromStatus is legal.
func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
