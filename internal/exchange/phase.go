package exchange

import "fmt"

// Phase is a step in the life of a request
type Phase int

const (
	Received Phase = iota
	Resolved
	Validated
	Handled
	Serialized
	Sent
	Rejected
)

var phaseNames = [...]string{
	Received:   "RECEIVED",
	Resolved:   "RESOLVED",
	Validated:  "VALIDATED",
	Handled:    "HANDLED",
	Serialized: "SERIALIZED",
	Sent:       "SENT",
	Rejected:   "REJECTED",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Terminal reports whether no transition leaves p
func (p Phase) Terminal() bool {
	return p == Sent || p == Rejected
}

// next lists the legal transitions out of each phase. Rejection is
// possible before anything has been serialized.
var next = map[Phase][]Phase{
	Received:   {Resolved, Rejected},
	Resolved:   {Validated, Rejected},
	Validated:  {Handled, Rejected},
	Handled:    {Serialized, Rejected},
	Serialized: {Sent},
}

// CanTransition reports whether from -> to is legal
func CanTransition(from, to Phase) bool {
	for _, p := range next[from] {
		if p == to {
			return true
		}
	}
	return false
}

// TransitionError is returned for an illegal phase change
type TransitionError struct {
	From Phase
	To   Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal request transition %s -> %s", e.From, e.To)
}
