package board

import "strconv"

// CellState is the caller-facing classification of a single cell. A renderer
// can pick an icon from it without inspecting the underlying Cell.
type CellState int8

const (
	Question CellState = -3
	Hidden   CellState = -2
	Flag     CellState = -1
	// 0-8 for an open cell with that many mined neighbors.
	CorrectFlag   CellState = 64
	ExplodedMine  CellState = 65
	WrongFlag     CellState = 66
	UnflaggedMine CellState = 67
)

func (s CellState) String() string {
	switch {
	case s == Question:
		return "?"
	case s == Hidden:
		return " "
	case s == Flag || s == CorrectFlag:
		return "*"
	case s == WrongFlag:
		return "x"
	case 0 <= s && s <= 8:
		return strconv.Itoa(int(s))
	default:
		return "!"
	}
}

// mineAdjacent is the Adjacent value of a mine cell, where a neighbor count
// does not apply.
const mineAdjacent int8 = -1

type Cell struct {
	Mine     bool
	Revealed bool
	Flagged  bool
	Question bool
	Exploded bool // the mine the player stepped on
	Adjacent int8 // 0-8 for safe cells, mineAdjacent for mines
}

// State classifies the cell for display. Flags stay flags even after the
// game ends; the win/loss transition deltas carry the correct/wrong flag
// verdicts.
func (c Cell) State() CellState {
	switch {
	case c.Revealed && c.Exploded:
		return ExplodedMine
	case c.Revealed && c.Mine:
		return UnflaggedMine
	case c.Revealed:
		return CellState(c.Adjacent)
	case c.Flagged:
		return Flag
	case c.Question:
		return Question
	default:
		return Hidden
	}
}
