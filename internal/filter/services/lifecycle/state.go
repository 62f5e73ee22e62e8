package lifecycle

import "fmt"

// State is the controller's activation state.
//
// Idle → Loading → Active → Reloading (transient, returns to Active)
// → Stopping → Idle
type State int32

const (
	// StateIdle means no hooks are installed.
	StateIdle State = iota
	// StateLoading covers the initial rule load and hook installation.
	StateLoading
	// StateActive means all three hooks are installed and evaluating.
	StateActive
	// StateReloading is the transient rule-set refresh during Active.
	StateReloading
	// StateStopping covers hook removal and restoration.
	StateStopping
)

// String returns a stable string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateReloading:
		return "reloading"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}
