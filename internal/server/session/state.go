package session

// State is a session's position in its lifecycle:
//
//	Connecting -> Authenticating -> Idle <-> Solving
//	Authenticating -> Closed, Idle -> Closed, Solving -> Closed
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateIdle
	StateSolving
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateIdle:
		return "idle"
	case StateSolving:
		return "solving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
