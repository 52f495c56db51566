package handlers

import (
	"math/rand/v2"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akoreshkov/minefield-server/internal/board"
)

func TestParseGameMove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    GameMove
		wantErr bool
	}{
		{"open", MoveOpen, false},
		{"Flag", MoveFlag, false},
		{"CHORD", MoveChord, false},
		{"", 0, true},
		{"boom", 0, true},
	}

	for _, test := range tests {
		move, err := parseGameMove(test.input)
		if test.wantErr {
			assert.ErrorIs(t, err, ErrBadMove, "input %q", test.input)
		} else {
			require.NoError(t, err, "input %q", test.input)
			assert.Equal(t, test.want, move, "input %q", test.input)
		}
	}
}

func TestParseDTOs(t *testing.T) {
	t.Parallel()

	t.Run("create", func(t *testing.T) {
		t.Parallel()
		dto, err := ParseCreateGameDTO(url.Values{
			"width":      {"9"},
			"height":     {"9"},
			"mine_count": {"10"},
			"extraneous": {"ignored"},
		})
		require.NoError(t, err)
		assert.Equal(t, CreateGameDTO{Width: 9, Height: 9, MineCount: 10}, dto)

		_, err = ParseCreateGameDTO(url.Values{"width": {"9"}})
		assert.Error(t, err)
	})

	t.Run("move", func(t *testing.T) {
		t.Parallel()
		dto, err := ParseMoveDTO(url.Values{
			"move":           {"flag"},
			"x":              {"3"},
			"y":              {"4"},
			"question_marks": {"true"},
		})
		require.NoError(t, err)
		assert.Equal(t, MoveDTO{Move: "flag", X: 3, Y: 4, QuestionMarks: true}, dto)

		// question_marks is optional
		dto, err = ParseMoveDTO(url.Values{
			"move": {"open"}, "x": {"0"}, "y": {"0"},
		})
		require.NoError(t, err)
		assert.False(t, dto.QuestionMarks)
	})
}

func newTestBoard(t *testing.T) *board.Board {
	t.Helper()
	b, err := board.New(4, 4, 2, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	return b
}

func TestExecuteCommand(t *testing.T) {
	t.Parallel()

	t.Run("open", func(t *testing.T) {
		t.Parallel()
		b := newTestBoard(t)
		res, err := executeCommand(b, "o 1 1")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Deltas)
		assert.False(t, res.Lost)
		assert.True(t, b.MinesPlaced)
	})

	t.Run("flag cycle", func(t *testing.T) {
		t.Parallel()
		b := newTestBoard(t)
		_, err := executeCommand(b, "f 0 0")
		require.NoError(t, err)
		assert.Equal(t, 1, b.FlagCount)
		_, err = executeCommand(b, "f 0 0 q")
		require.NoError(t, err)
		assert.Equal(t, 0, b.FlagCount)
		assert.Equal(t, board.Question, b.States()[0])
	})

	t.Run("forfeit", func(t *testing.T) {
		t.Parallel()
		b := newTestBoard(t)
		res, err := executeCommand(b, "r")
		require.NoError(t, err)
		assert.True(t, res.Lost)
		assert.Equal(t, board.Lost, b.Phase)
	})

	t.Run("noop and blank", func(t *testing.T) {
		t.Parallel()
		b := newTestBoard(t)
		for _, line := range []string{"g", ""} {
			res, err := executeCommand(b, line)
			require.NoError(t, err)
			assert.Empty(t, res.Deltas)
		}
	})

	t.Run("bad input", func(t *testing.T) {
		t.Parallel()
		b := newTestBoard(t)
		for _, line := range []string{"z", "o", "o x y", "o 9 9"} {
			_, err := executeCommand(b, line)
			assert.Error(t, err, "line %q", line)
		}
		assert.Equal(t, board.NotStarted, b.Phase)
	})
}
