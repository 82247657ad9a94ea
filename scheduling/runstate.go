package scheduling

// RunState is the lifecycle state of the consumer loop.
type RunState int32

// Run states.
const (
	Stopped RunState = iota
	Running
	PausedByEmulator
	ShuttingDown
)

func (s RunState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case PausedByEmulator:
		return "paused"
	case ShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}
