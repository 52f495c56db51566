package board

// Phase is the lifecycle of a board. Transitions are one-directional:
// NotStarted -> InProgress -> Won | Lost. Won and Lost are terminal.
type Phase uint8

const (
	NotStarted Phase = iota
	InProgress
	Won
	Lost
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return "invalid"
	}
}

// Terminal reports whether no further moves are accepted.
func (p Phase) Terminal() bool {
	return p == Won || p == Lost
}
