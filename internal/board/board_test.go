package board

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseBoard builds a committed board from an ascii layout, '*' for mines
// and '.' for safe cells.
func parseBoard(t *testing.T, rows ...string) *Board {
	t.Helper()
	w, h := len(rows[0]), len(rows)
	b, err := New(w, h, 0, nil)
	require.NoError(t, err)
	for y, row := range rows {
		require.Len(t, row, w)
		for x, ch := range row {
			if ch == '*' {
				b.at(x, y).Mine = true
				b.MineCount++
			}
		}
	}
	b.computeAdjacency()
	b.MinesPlaced = true
	b.Phase = InProgress
	return b
}

func requireCounters(t *testing.T, b *Board) {
	t.Helper()
	var safe, flags int
	for _, c := range b.Cells {
		if c.Revealed && !c.Mine {
			safe++
		}
		if c.Flagged {
			flags++
		}
	}
	require.Equal(t, safe, b.SafeOpened, "SafeOpened out of sync")
	require.Equal(t, flags, b.FlagCount, "FlagCount out of sync")
}

func TestFirstRevealSafety(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		width, height, mines int
	}{
		{"9x9(10)", 9, 9, 10},
		{"9x9(35)", 9, 9, 35},
		{"16x16(40)", 16, 16, 40},
		{"30x16(99)", 30, 16, 99},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			r := rand.New(rand.NewPCG(1, 2))
			for sy := range test.height {
				for sx := range test.width {
					b, err := New(test.width, test.height, test.mines, r)
					require.NoError(t, err)
					require.Equal(t, NotStarted, b.Phase)

					res, err := b.Reveal(sx, sy)
					require.NoError(t, err)
					require.False(t, res.Lost, "first reveal lost at %d:%d", sx, sy)
					require.NotEmpty(t, res.Deltas)
					require.True(t, b.Phase == InProgress || b.Phase == Won)
					require.Equal(t, test.mines, b.MineCount)

					for ny := range test.height {
						for nx := range test.width {
							if absDiff(sx, nx) <= 1 && absDiff(sy, ny) <= 1 {
								require.False(t, b.at(nx, ny).Mine,
									"mine at %d:%d next to first reveal %d:%d", nx, ny, sx, sy)
							}
						}
					}
					requireCounters(t, b)
				}
			}
		})
	}
}

func TestMineCountClamping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sx, sy     int
		wantMines  int
		exclusions int
	}{
		{"corner", 0, 0, 21, 4},
		{"edge", 2, 0, 19, 6},
		{"center", 2, 2, 16, 9},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			r := rand.New(rand.NewPCG(1, 2))
			b, err := New(5, 5, 1000, r)
			require.NoError(t, err)

			res, err := b.Reveal(test.sx, test.sy)
			require.NoError(t, err)
			require.False(t, res.Lost)
			require.Equal(t, 25-test.exclusions, test.wantMines) // sanity on the table itself
			require.Equal(t, test.wantMines, b.MineCount)

			mines := 0
			for _, c := range b.Cells {
				if c.Mine {
					mines++
				}
			}
			require.Equal(t, test.wantMines, mines)
		})
	}
}

func TestPlacementUniformity(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	t.Parallel()

	const (
		width, height = 9, 9
		mines         = 10
		sx, sy        = 4, 4
		trials        = 20000
	)

	r := rand.New(rand.NewPCG(1, 2))
	hits := make([]int, width*height)
	for range trials {
		b, err := New(width, height, mines, r)
		require.NoError(t, err)
		_, err = b.Reveal(sx, sy)
		require.NoError(t, err)
		for i, c := range b.Cells {
			if c.Mine {
				hits[i]++
			}
		}
	}

	candidates := width*height - 9 // minus the 3x3 exclusion zone
	expected := float64(trials) * float64(mines) / float64(candidates)
	for i, n := range hits {
		x, y := i%width, i/width
		if absDiff(sx, x) <= 1 && absDiff(sy, y) <= 1 {
			require.Zero(t, n, "mine placed in exclusion zone at %d:%d", x, y)
			continue
		}
		// ~5.6 sigma margin at these trial counts
		assert.InDelta(t, expected, float64(n), expected*0.1,
			"cell %d:%d hit count skewed", x, y)
	}
}

func TestFloodFillCompleteness(t *testing.T) {
	t.Parallel()

	// the mine column splits the field: a reveal on the left must open the
	// whole left zero-region plus its numbered border, and nothing more
	b := parseBoard(t,
		"..*..",
		"..*..",
		"..*..",
	)

	res, err := b.Reveal(0, 0)
	require.NoError(t, err)
	require.False(t, res.Lost)
	require.False(t, res.Won)
	require.Len(t, res.Deltas, 6)

	for y := range 3 {
		assert.True(t, b.at(0, y).Revealed)
		assert.True(t, b.at(1, y).Revealed)
		assert.False(t, b.at(2, y).Revealed)
		assert.False(t, b.at(3, y).Revealed)
		assert.False(t, b.at(4, y).Revealed)
		assert.Equal(t, CellState(0), b.at(0, y).State())
	}
	require.Equal(t, 6, b.SafeOpened)
	require.Equal(t, InProgress, b.Phase)
	requireCounters(t, b)
}

func TestRevealMineLoss(t *testing.T) {
	t.Parallel()

	b := parseBoard(t,
		"*..",
		"...",
		".**",
	)

	_, err := b.ToggleFlag(0, 0, false) // correct flag
	require.NoError(t, err)
	_, err = b.ToggleFlag(2, 0, false) // wrong flag
	require.NoError(t, err)

	res, err := b.Reveal(1, 2)
	require.NoError(t, err)
	require.True(t, res.Lost)
	require.False(t, res.Won)
	require.Equal(t, Lost, b.Phase)

	states := map[CellDelta]bool{}
	for _, d := range res.Deltas {
		states[d] = true
	}
	assert.True(t, states[CellDelta{1, 2, ExplodedMine}])
	assert.True(t, states[CellDelta{2, 2, UnflaggedMine}])
	assert.True(t, states[CellDelta{0, 0, CorrectFlag}])
	assert.True(t, states[CellDelta{2, 0, WrongFlag}])

	assert.Equal(t, ExplodedMine, b.at(1, 2).State())
	assert.Equal(t, UnflaggedMine, b.at(2, 2).State())

	// terminal phase: everything is a no-op from here
	res, err = b.Reveal(1, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Deltas)
	fres, err := b.ToggleFlag(1, 0, true)
	require.NoError(t, err)
	assert.Empty(t, fres.Deltas)
	assert.Equal(t, NoFlagChange, fres.Event)
	res, err = b.Chord(1, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Deltas)
	assert.Equal(t, Lost, b.Phase)
}

func TestWinExactness(t *testing.T) {
	t.Parallel()

	b := parseBoard(t,
		"*..",
		"...",
		"..*",
	)

	_, err := b.ToggleFlag(0, 0, false)
	require.NoError(t, err)

	var won bool
	for y := range 3 {
		for x := range 3 {
			if b.at(x, y).Mine {
				continue
			}
			res, err := b.Reveal(x, y)
			require.NoError(t, err)
			require.False(t, res.Lost)
			won = won || res.Won
			if res.Won {
				// the flagged mine gets its verdict surfaced
				assert.Contains(t, res.Deltas, CellDelta{0, 0, CorrectFlag})
			}
		}
	}
	require.True(t, won)
	require.Equal(t, Won, b.Phase)
	require.Equal(t, b.Width*b.Height-b.SafeOpened, b.MineCount)
	requireCounters(t, b)

	// won is terminal as well
	res, err := b.Reveal(0, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Deltas)
	assert.Equal(t, Won, b.Phase)
}

func TestFlagCycle(t *testing.T) {
	t.Parallel()

	t.Run("question marks off", func(t *testing.T) {
		t.Parallel()
		b := parseBoard(t, "*.", "..")
		want := []FlagEvent{FlagSet, FlagCleared, FlagSet, FlagCleared}
		for i, event := range want {
			res, err := b.ToggleFlag(1, 1, false)
			require.NoError(t, err)
			require.Equal(t, event, res.Event, "cycle step %d", i)
			require.Len(t, res.Deltas, 1)
			requireCounters(t, b)
		}
		assert.Equal(t, Hidden, b.at(1, 1).State())
	})

	t.Run("question marks on", func(t *testing.T) {
		t.Parallel()
		b := parseBoard(t, "*.", "..")
		want := []struct {
			event FlagEvent
			state CellState
		}{
			{FlagSet, Flag},
			{QuestionSet, Question},
			{QuestionCleared, Hidden},
			{FlagSet, Flag},
		}
		for i, step := range want {
			res, err := b.ToggleFlag(1, 1, true)
			require.NoError(t, err)
			require.Equal(t, step.event, res.Event, "cycle step %d", i)
			require.Equal(t, step.state, b.at(1, 1).State(), "cycle step %d", i)
			requireCounters(t, b)
		}
	})

	t.Run("preference applies at call time", func(t *testing.T) {
		t.Parallel()
		b := parseBoard(t, "*.", "..")
		res, err := b.ToggleFlag(1, 1, false)
		require.NoError(t, err)
		require.Equal(t, FlagSet, res.Event)
		// toggled mid-game: the flagged cell now steps to question
		res, err = b.ToggleFlag(1, 1, true)
		require.NoError(t, err)
		require.Equal(t, QuestionSet, res.Event)
	})

	t.Run("revealed cell is immutable", func(t *testing.T) {
		t.Parallel()
		b := parseBoard(t, "*.", "..")
		_, err := b.Reveal(1, 0)
		require.NoError(t, err)
		res, err := b.ToggleFlag(1, 0, true)
		require.NoError(t, err)
		assert.Equal(t, NoFlagChange, res.Event)
		assert.Empty(t, res.Deltas)
	})
}

func TestFlagProtectsReveal(t *testing.T) {
	t.Parallel()

	b := parseBoard(t, "*.", "..")
	_, err := b.ToggleFlag(0, 0, false)
	require.NoError(t, err)

	res, err := b.Reveal(0, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Deltas)
	assert.False(t, res.Lost)
	assert.Equal(t, InProgress, b.Phase)
}

func TestChord(t *testing.T) {
	t.Parallel()

	layout := []string{
		"*.*",
		"...",
		"...",
	}

	t.Run("not enough flags is a no-op", func(t *testing.T) {
		t.Parallel()
		b := parseBoard(t, layout...)
		_, err := b.Reveal(1, 1) // a "2"
		require.NoError(t, err)
		require.Equal(t, CellState(2), b.at(1, 1).State())

		_, err = b.ToggleFlag(0, 0, false)
		require.NoError(t, err)

		res, err := b.Chord(1, 1)
		require.NoError(t, err)
		assert.Empty(t, res.Deltas)
		requireCounters(t, b)
	})

	t.Run("correct flags open the rest", func(t *testing.T) {
		t.Parallel()
		b := parseBoard(t, layout...)
		_, err := b.Reveal(1, 1)
		require.NoError(t, err)
		_, err = b.ToggleFlag(0, 0, false)
		require.NoError(t, err)
		_, err = b.ToggleFlag(2, 0, false)
		require.NoError(t, err)

		res, err := b.Chord(1, 1)
		require.NoError(t, err)
		require.False(t, res.Lost)
		for _, p := range [][2]int{{1, 0}, {0, 1}, {2, 1}} {
			assert.True(t, b.at(p[0], p[1]).Revealed, "neighbor %v not opened", p)
		}
		assert.False(t, b.at(0, 0).Revealed)
		assert.False(t, b.at(2, 0).Revealed)
		require.True(t, res.Won) // all 7 safe cells end up open
		requireCounters(t, b)
	})

	t.Run("wrong flags lose the game", func(t *testing.T) {
		t.Parallel()
		b := parseBoard(t, layout...)
		_, err := b.Reveal(1, 1)
		require.NoError(t, err)
		_, err = b.ToggleFlag(0, 1, false)
		require.NoError(t, err)
		_, err = b.ToggleFlag(2, 1, false)
		require.NoError(t, err)

		res, err := b.Chord(1, 1)
		require.NoError(t, err)
		require.True(t, res.Lost)
		require.Equal(t, Lost, b.Phase)

		var exploded, wrongFlags int
		for _, d := range res.Deltas {
			switch d.State {
			case ExplodedMine:
				exploded++
			case WrongFlag:
				wrongFlags++
			}
		}
		assert.Equal(t, 1, exploded)
		assert.Equal(t, 2, wrongFlags)
	})

	t.Run("covered or zero cells are no-ops", func(t *testing.T) {
		t.Parallel()
		b := parseBoard(t, layout...)
		res, err := b.Chord(1, 2) // covered
		require.NoError(t, err)
		assert.Empty(t, res.Deltas)

		_, err = b.Reveal(1, 2)
		require.NoError(t, err)
		require.Equal(t, CellState(0), b.at(1, 2).State())
		res, err = b.Chord(1, 2) // a zero
		require.NoError(t, err)
		assert.Empty(t, res.Deltas)
	})
}

func TestForfeit(t *testing.T) {
	t.Parallel()

	b := parseBoard(t,
		"*..",
		"..*",
	)
	_, err := b.ToggleFlag(0, 0, false)
	require.NoError(t, err)

	res := b.Forfeit()
	require.True(t, res.Lost)
	require.Equal(t, Lost, b.Phase)
	assert.Contains(t, res.Deltas, CellDelta{0, 0, CorrectFlag})
	assert.Contains(t, res.Deltas, CellDelta{2, 1, UnflaggedMine})

	// second forfeit is a no-op
	res = b.Forfeit()
	assert.Empty(t, res.Deltas)
	assert.False(t, res.Lost)
}

func TestOutOfBounds(t *testing.T) {
	t.Parallel()

	b := parseBoard(t, "*.", "..")
	_, err := b.Reveal(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = b.ToggleFlag(0, 2, false)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = b.Chord(2, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestRemainingMines(t *testing.T) {
	t.Parallel()

	b := parseBoard(t,
		"*.",
		".*",
	)
	require.Equal(t, 2, b.RemainingMines())

	for _, p := range [][2]int{{0, 0}, {1, 0}, {0, 1}} {
		_, err := b.ToggleFlag(p[0], p[1], false)
		require.NoError(t, err)
	}
	// over-flagged: floored at zero, and decidedly not a win
	require.Equal(t, 0, b.RemainingMines())
	require.Equal(t, InProgress, b.Phase)
}

// reference flood fill over the final layout, used to cross-check the
// incremental one
func referenceZoneSize(b *Board, x, y int) int {
	seen := make([]bool, len(b.Cells))
	queue := [][2]int{{x, y}}
	seen[y*b.Width+x] = true
	n := 0
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		n++
		if b.at(p[0], p[1]).Adjacent != 0 {
			continue
		}
		for nx, ny := range b.neighbors(p[0], p[1]) {
			if i := ny*b.Width + nx; !seen[i] && !b.Cells[i].Mine {
				seen[i] = true
				queue = append(queue, [2]int{nx, ny})
			}
		}
	}
	return n
}

func TestFirstClickExample(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		b, err := New(9, 9, 10, r)
		require.NoError(t, err)

		res, err := b.Reveal(4, 4)
		require.NoError(t, err)
		require.False(t, res.Lost)
		require.Equal(t, InProgress, b.Phase)

		for ny := 3; ny <= 5; ny++ {
			for nx := 3; nx <= 5; nx++ {
				require.False(t, b.at(nx, ny).Mine)
			}
		}
		// the first click always lands on a zero here (whole 3x3 zone is
		// mine-free), so the delta list must cover exactly the connected
		// zero-region and its numbered border
		require.Equal(t, CellState(0), b.at(4, 4).State())
		require.Len(t, res.Deltas, referenceZoneSize(b, 4, 4))
		require.Equal(t, b.SafeOpened, len(res.Deltas))
		requireCounters(t, b)
	}
}

func TestCountersStayInSync(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(7, 11))
	for range 20 {
		b, err := New(9, 9, 10, r)
		require.NoError(t, err)
		for range 300 {
			x, y := r.IntN(9), r.IntN(9)
			var err error
			switch r.IntN(4) {
			case 0, 1:
				_, err = b.Reveal(x, y)
			case 2:
				_, err = b.ToggleFlag(x, y, r.IntN(2) == 0)
			case 3:
				_, err = b.Chord(x, y)
			}
			require.NoError(t, err)
			requireCounters(t, b)
			if b.Phase.Terminal() {
				break
			}
		}
	}
}

func TestGobRoundTrip(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	b, err := New(9, 9, 10, r)
	require.NoError(t, err)
	_, err = b.Reveal(4, 4)
	require.NoError(t, err)
	_, err = b.ToggleFlag(0, 0, true)
	require.NoError(t, err)

	data, err := b.Bytes()
	require.NoError(t, err)

	got, err := Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, b.Cells, got.Cells)
	assert.Equal(t, b.Phase, got.Phase)
	assert.Equal(t, b.MinesPlaced, got.MinesPlaced)
	assert.Equal(t, b.SafeOpened, got.SafeOpened)
	assert.Equal(t, b.FlagCount, got.FlagCount)
	assert.Equal(t, b.MineCount, got.MineCount)
}
