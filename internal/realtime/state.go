package realtime

// State is the lifecycle state of the push channel.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Label returns the status indicator text.
func (s State) Label() string {
	switch s {
	case Connecting:
		return "Connecting..."
	case Connected:
		return "Connected"
	default:
		return "Disconnected"
	}
}

// Inputs are the ambient conditions that decide whether the channel should be open.
type Inputs struct {
	Authenticated bool
	ViewActive    bool
	Online        bool
	Focused       bool
}

// DesiredState reports whether the channel should be connected.
func DesiredState(in Inputs) bool {
	return in.Authenticated && in.ViewActive && in.Online
}

// NeedsTeardown reports whether any open transport and pending retry must be cancelled.
//
// Going offline is not a teardown trigger: the transport fails on its own and retries are suppressed.
func NeedsTeardown(in Inputs) bool {
	return !in.Authenticated || !in.ViewActive
}
