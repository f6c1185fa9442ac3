package scheduler

import "github.com/amosWeiskopf/seosmith/pkg/provider"

// WorkerStatus is the scheduling state of one worker. Legal transitions:
// ready→busy on dispatch, busy→ready when an outcome is handled,
// busy→coolingDown on a rate-limit signal, coolingDown→ready when the
// cooldown delay elapses.
type WorkerStatus int

const (
	StatusReady WorkerStatus = iota
	StatusBusy
	StatusCoolingDown
)

func (s WorkerStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusBusy:
		return "busy"
	case StatusCoolingDown:
		return "cooling_down"
	default:
		return "unknown"
	}
}

// worker pairs one capability (credential/provider) with its status. Status
// is mutated only from the scheduler's dispatch loop.
type worker struct {
	id         int
	capability provider.Capability
	status     WorkerStatus
}
