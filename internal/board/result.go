package board

// CellDelta reports one cell whose visual state changed during a move.
type CellDelta struct {
	X     int       `json:"x"`
	Y     int       `json:"y"`
	State CellState `json:"state"`
}

// MoveResult is the outcome of a Reveal or Chord: every cell whose visual
// state changed, plus the phase transition flags. A defined no-op (terminal
// phase, revealed target, flagged target) yields a zero MoveResult.
type MoveResult struct {
	Deltas []CellDelta `json:"deltas"`
	Lost   bool        `json:"lost"`
	Won    bool        `json:"won"`
}

// FlagEvent classifies a ToggleFlag transition so the caller can trigger
// matching feedback without knowing anything about sounds or icons.
type FlagEvent uint8

const (
	NoFlagChange FlagEvent = iota
	FlagSet
	FlagCleared
	QuestionSet
	QuestionCleared
)

func (e FlagEvent) String() string {
	switch e {
	case FlagSet:
		return "flag_set"
	case FlagCleared:
		return "flag_cleared"
	case QuestionSet:
		return "question_set"
	case QuestionCleared:
		return "question_cleared"
	default:
		return "no_change"
	}
}

type FlagResult struct {
	Deltas []CellDelta `json:"deltas"`
	Event  FlagEvent   `json:"event"`
}
