package handlers

import (
	"strconv"

	"github.com/gorilla/schema"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/akoreshkov/minefield-server/internal/board"
	"github.com/akoreshkov/minefield-server/internal/repository"
)

type CreateGameDTO struct {
	Width     int `schema:"width,required"`
	Height    int `schema:"height,required"`
	MineCount int `schema:"mine_count,required"`
}

type MoveDTO struct {
	Move          string `schema:"move,required"`
	X             int    `schema:"x,required"`
	Y             int    `schema:"y,required"`
	QuestionMarks bool   `schema:"question_marks"`
}

func newDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

func ParseCreateGameDTO(src map[string][]string) (CreateGameDTO, error) {
	var dto CreateGameDTO
	err := newDecoder().Decode(&dto, src)
	return dto, err
}

func ParseMoveDTO(src map[string][]string) (MoveDTO, error) {
	var dto MoveDTO
	err := newDecoder().Decode(&dto, src)
	return dto, err
}

type GameSessionDTO struct {
	GameSessionId  string            `json:"game_session_id"`
	Grid           []board.CellState `json:"grid"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	MineCount      int               `json:"mine_count"`
	RemainingMines int               `json:"remaining_mines"`
	Phase          string            `json:"phase"`
	StartedAt      int64             `json:"started_at"`
	EndedAt        *int64            `json:"ended_at,omitempty"`
}

// MoveResultDTO is a session snapshot plus the delta list of the move that
// produced it, so clients can render incrementally.
type MoveResultDTO struct {
	*GameSessionDTO
	Deltas []board.CellDelta `json:"deltas"`
	Lost   bool              `json:"lost"`
	Won    bool              `json:"won"`
	Event  string            `json:"event,omitempty"`
}

func NewGameSessionDTO(session *repository.GameSession, b *board.Board) *GameSessionDTO {
	return &GameSessionDTO{
		GameSessionId:  strconv.FormatInt(session.GameSessionId, 10),
		Grid:           b.States(),
		Width:          b.Width,
		Height:         b.Height,
		MineCount:      b.MineCount,
		RemainingMines: b.RemainingMines(),
		Phase:          b.Phase.String(),
		StartedAt:      session.StartedAt.Time.UnixMilli(),
		EndedAt:        timestamptzMilli(session.EndedAt),
	}
}

func timestamptzMilli(ts pgtype.Timestamptz) *int64 {
	if !ts.Valid {
		return nil
	}
	ms := ts.Time.UnixMilli()
	return &ms
}
