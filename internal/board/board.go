package board

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"strings"
)

// ErrOutOfBounds marks a caller contract violation: the UI derives
// coordinates from the grid it rendered, so it never addresses cells
// outside it.
var ErrOutOfBounds = errors.New("cell coordinates out of bounds")

// Board is an in-memory minefield state machine. The grid is owned
// exclusively by the board; reveal, flag and chord all mutate it through
// board methods so the SafeOpened and FlagCount bookkeeping stays
// single-writer. Exported fields exist for gob round-trips and in-package
// tests; callers are expected to go through the methods.
//
// Mines are not placed at construction. The first successful Reveal commits
// the layout, keeping a 3x3 zone around the clicked cell mine-free.
type Board struct {
	Width, Height int
	MineCount     int // effective count; clamped at placement if oversized
	Cells         []Cell
	Phase         Phase
	MinesPlaced   bool
	SafeOpened    int // revealed non-mine cells
	FlagCount     int // flagged cells

	rnd *rand.Rand
}

// New creates an empty board in the NotStarted phase. r drives mine
// placement and must be non-nil before the first reveal; tests pass a
// seeded generator for determinism.
func New(width, height, mineCount int, r *rand.Rand) (*Board, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid board dimensions %dx%d", width, height)
	}
	if mineCount < 0 {
		return nil, fmt.Errorf("invalid mine count %d", mineCount)
	}
	return &Board{
		Width:     width,
		Height:    height,
		MineCount: mineCount,
		Cells:     make([]Cell, width*height),
		rnd:       r,
	}, nil
}

func (b *Board) InBounds(x, y int) bool {
	return 0 <= x && x < b.Width && 0 <= y && y < b.Height
}

func (b *Board) at(x, y int) *Cell {
	return &b.Cells[y*b.Width+x]
}

func (b *Board) neighbors(x, y int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if !b.InBounds(nx, ny) {
					continue
				}
				if !yield(nx, ny) {
					return
				}
			}
		}
	}
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// placeMines commits the mine layout. Runs exactly once, on the first
// reveal; the clicked cell and its neighbors are excluded so the first
// reveal is never a loss. If the requested count exceeds the candidate
// pool the count is clamped and the clamped value becomes the board's
// permanent MineCount.
func (b *Board) placeMines(safeX, safeY int) {
	candidates := make([]int, 0, b.Width*b.Height)
	for y := range b.Height {
		for x := range b.Width {
			if absDiff(safeX, x) > 1 || absDiff(safeY, y) > 1 {
				candidates = append(candidates, y*b.Width+x)
			}
		}
	}

	if b.MineCount > len(candidates) {
		b.MineCount = len(candidates)
	}

	// Uniform draw without replacement: pick from the first k candidates,
	// swap the last unpicked one into the hole.
	k := len(candidates)
	for range b.MineCount {
		i := b.rnd.IntN(k)
		b.Cells[candidates[i]].Mine = true
		k--
		candidates[i] = candidates[k]
	}

	b.computeAdjacency()
	b.MinesPlaced = true
	b.Phase = InProgress
}

func (b *Board) computeAdjacency() {
	for y := range b.Height {
		for x := range b.Width {
			c := b.at(x, y)
			if c.Mine {
				c.Adjacent = mineAdjacent
				continue
			}
			var n int8
			for nx, ny := range b.neighbors(x, y) {
				if b.at(nx, ny).Mine {
					n++
				}
			}
			c.Adjacent = n
		}
	}
}

// Reveal opens the cell at (x, y). Revealing a flagged or already open
// cell, or any cell after the game ended, is a defined no-op. The first
// reveal on a fresh board places the mines first.
func (b *Board) Reveal(x, y int) (MoveResult, error) {
	var res MoveResult
	if !b.InBounds(x, y) {
		return res, ErrOutOfBounds
	}
	if b.Phase.Terminal() {
		return res, nil
	}
	c := b.at(x, y)
	if c.Revealed || c.Flagged {
		return res, nil
	}

	if !b.MinesPlaced {
		b.placeMines(x, y)
		c = b.at(x, y) // same cell, now with adjacency filled in
	}

	if c.Mine {
		c.Revealed = true
		c.Question = false
		c.Exploded = true
		b.Phase = Lost
		res.Lost = true
		res.Deltas = append(res.Deltas, CellDelta{x, y, ExplodedMine})
		res.Deltas = append(res.Deltas, b.revealMines()...)
		return res, nil
	}

	res.Deltas = b.floodReveal(x, y)
	b.checkWin(&res)
	return res, nil
}

// floodReveal opens (x, y) and, level by level, every cell reachable from
// it through zero-adjacency cells. The Revealed flag doubles as the visited
// check: cells are marked when enqueued, so none is opened twice.
func (b *Board) floodReveal(x, y int) []CellDelta {
	deltas := make([]CellDelta, 0, 8)
	b.at(x, y).Revealed = true
	queue := []int{y*b.Width + x}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		cx, cy := i%b.Width, i/b.Width
		c := &b.Cells[i]
		c.Question = false
		b.SafeOpened++
		deltas = append(deltas, CellDelta{cx, cy, CellState(c.Adjacent)})
		if c.Adjacent != 0 {
			continue
		}
		// a zero cell has no mined neighbors, so everything around it
		// is safe to open
		for nx, ny := range b.neighbors(cx, cy) {
			n := b.at(nx, ny)
			if n.Revealed || n.Flagged {
				continue
			}
			n.Revealed = true
			queue = append(queue, ny*b.Width+nx)
		}
	}
	return deltas
}

// revealMines is the end-of-game sweep, run exactly once on the loss
// transition: covered mines are force-revealed, flags get their verdict.
func (b *Board) revealMines() []CellDelta {
	var deltas []CellDelta
	for i := range b.Cells {
		c := &b.Cells[i]
		x, y := i%b.Width, i/b.Width
		switch {
		case c.Mine && c.Flagged:
			deltas = append(deltas, CellDelta{x, y, CorrectFlag})
		case c.Mine && !c.Revealed:
			c.Revealed = true
			c.Question = false
			deltas = append(deltas, CellDelta{x, y, UnflaggedMine})
		case !c.Mine && c.Flagged:
			deltas = append(deltas, CellDelta{x, y, WrongFlag})
		}
	}
	return deltas
}

// checkWin transitions to Won iff every non-mine cell is revealed. The
// equality is exact: covered cells remaining == mines, regardless of flags.
func (b *Board) checkWin(res *MoveResult) {
	if b.Phase != InProgress {
		return
	}
	if b.Width*b.Height-b.SafeOpened != b.MineCount {
		return
	}
	b.Phase = Won
	res.Won = true
	for i := range b.Cells {
		if c := b.Cells[i]; c.Mine && c.Flagged {
			res.Deltas = append(res.Deltas, CellDelta{i % b.Width, i / b.Width, CorrectFlag})
		}
	}
}

// ToggleFlag cycles a covered cell through bare -> flagged -> questioned ->
// bare; with questionMarks disabled the question step is skipped.
// questionMarks is read at call time, so flipping the preference mid-game
// changes the next step immediately.
func (b *Board) ToggleFlag(x, y int, questionMarks bool) (FlagResult, error) {
	var res FlagResult
	if !b.InBounds(x, y) {
		return res, ErrOutOfBounds
	}
	if b.Phase.Terminal() {
		return res, nil
	}
	c := b.at(x, y)
	if c.Revealed {
		return res, nil
	}
	switch {
	case c.Flagged:
		c.Flagged = false
		b.FlagCount--
		if questionMarks {
			c.Question = true
			res.Event = QuestionSet
		} else {
			res.Event = FlagCleared
		}
	case c.Question:
		c.Question = false
		res.Event = QuestionCleared
	default:
		c.Flagged = true
		b.FlagCount++
		res.Event = FlagSet
	}
	res.Deltas = []CellDelta{{x, y, c.State()}}
	return res, nil
}

// Chord opens every unflagged neighbor of a revealed numbered cell, but
// only when exactly Adjacent neighbors are flagged. The flags are taken at
// face value: a wrong flag means a chord can hit a mine and lose the game
// just like a direct reveal.
func (b *Board) Chord(x, y int) (MoveResult, error) {
	var res MoveResult
	if !b.InBounds(x, y) {
		return res, ErrOutOfBounds
	}
	if b.Phase != InProgress {
		return res, nil
	}
	c := b.at(x, y)
	if !c.Revealed || c.Mine || c.Adjacent <= 0 {
		return res, nil
	}

	flagged := 0
	targets := make([][2]int, 0, 8)
	for nx, ny := range b.neighbors(x, y) {
		n := b.at(nx, ny)
		if n.Flagged {
			flagged++
		} else if !n.Revealed {
			targets = append(targets, [2]int{nx, ny})
		}
	}
	if flagged != int(c.Adjacent) {
		return res, nil
	}

	for _, t := range targets {
		sub, err := b.Reveal(t[0], t[1])
		if err != nil {
			return res, err
		}
		res.Deltas = append(res.Deltas, sub.Deltas...)
		res.Lost = res.Lost || sub.Lost
		res.Won = res.Won || sub.Won
		if b.Phase.Terminal() {
			break
		}
	}
	return res, nil
}

// Forfeit concedes an unfinished game: the board transitions to Lost and
// the mine layout is swept visible, exactly as on a stepped-on mine.
func (b *Board) Forfeit() MoveResult {
	var res MoveResult
	if b.Phase.Terminal() {
		return res
	}
	b.Phase = Lost
	res.Lost = true
	res.Deltas = b.revealMines()
	return res
}

// RemainingMines is the informational mine counter display: mines minus
// flags, floored at zero. Over-flagging drives it to zero without winning;
// it is never consulted for the win condition.
func (b *Board) RemainingMines() int {
	if n := b.MineCount - b.FlagCount; n > 0 {
		return n
	}
	return 0
}

// States snapshots the player-visible classification of every cell,
// indexed y*Width+x.
func (b *Board) States() []CellState {
	out := make([]CellState, len(b.Cells))
	for i, c := range b.Cells {
		out[i] = c.State()
	}
	return out
}

func (b *Board) String() string {
	var sb strings.Builder
	for y := range b.Height {
		for x := range b.Width {
			sb.WriteString(b.at(x, y).State().String())
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Bytes gob-encodes the board for session storage.
func (b *Board) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode restores a board from its gob encoding. r replaces the random
// source, which is not serialized; it is only consulted if the mines have
// not been placed yet.
func Decode(data []byte, r *rand.Rand) (*Board, error) {
	var b Board
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, err
	}
	b.rnd = r
	return &b, nil
}
