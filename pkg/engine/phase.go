package engine

// Phase is the state of the engine's write path.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseInTransaction
	PhaseCommitting
	PhaseRollingBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInTransaction:
		return "in_transaction"
	case PhaseCommitting:
		return "committing"
	case PhaseRollingBack:
		return "rolling_back"
	default:
		return "unknown"
	}
}
