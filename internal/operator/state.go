package operator

// State is the operator lifecycle. Transitions happen under the operator's
// state mutex; every other operator field is touched only from its worker
// goroutine.
type State uint8

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
	StateTerminating
	// StateSimulationTerminated is terminal: the replayed series ran out and
	// the closing report has been built. No further tick is scheduled.
	StateSimulationTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateSimulationTerminated:
		return "simulation_terminated"
	default:
		return "unknown"
	}
}
