package handlers

import (
	"fmt"
	"strings"

	"github.com/akoreshkov/minefield-server/internal/board"
)

type GameMove uint8

const (
	MoveOpen GameMove = iota + 1
	MoveFlag
	MoveChord
)

var ErrBadMove = fmt.Errorf("move must be one of 'open', 'flag', 'chord'")

func parseGameMove(s string) (GameMove, error) {
	switch strings.ToLower(s) {
	case "open":
		return MoveOpen, nil
	case "flag":
		return MoveFlag, nil
	case "chord":
		return MoveChord, nil
	default:
		return 0, ErrBadMove
	}
}

// applyMove funnels the three mutators into one result shape; flag moves
// carry their transition classification in the event.
func applyMove(
	b *board.Board, move GameMove, x, y int, questionMarks bool,
) (res board.MoveResult, event board.FlagEvent, err error) {
	switch move {
	case MoveOpen:
		res, err = b.Reveal(x, y)
	case MoveFlag:
		var fres board.FlagResult
		fres, err = b.ToggleFlag(x, y, questionMarks)
		res.Deltas = fres.Deltas
		event = fres.Event
	case MoveChord:
		res, err = b.Chord(x, y)
	default:
		err = ErrBadMove
	}
	return res, event, err
}
