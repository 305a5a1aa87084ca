package engine

type State int32

const (
	Uninitialized State = iota
	HandshakeInProgress
	Idle
	SearchInProgress
	SyncInProgress
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case HandshakeInProgress:
		return "HandshakeInProgress"
	case Idle:
		return "Idle"
	case SearchInProgress:
		return "SearchInProgress"
	case SyncInProgress:
		return "SyncInProgress"
	case Draining:
		return "Draining"
	case Terminated:
		return "Terminated"
	}
	return "Unknown"
}

func (s State) isTerminal() bool {
	return s == Draining || s == Terminated
}
