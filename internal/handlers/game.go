package handlers

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/akoreshkov/minefield-server/internal/board"
	"github.com/akoreshkov/minefield-server/internal/config"
	"github.com/akoreshkov/minefield-server/internal/middleware"
	"github.com/akoreshkov/minefield-server/internal/repository"
)

var ErrBadPosition = fmt.Errorf("invalid cell position")

type Game struct {
	logger logrus.FieldLogger
	repo   *repository.Queries
	ws     *config.WebSocket
	rnd    *rand.Rand
}

func NewGame(
	logger logrus.FieldLogger,
	db *pgxpool.Pool,
	ws *config.WebSocket,
	rnd *rand.Rand,
) *Game {
	return &Game{
		logger: logger,
		repo:   repository.New(db),
		ws:     ws,
		rnd:    rnd,
	}
}

// Create starts a session with an empty board. Mines are not committed
// until the first open, so the client sends no starting position here.
func (g Game) Create(w http.ResponseWriter, r *http.Request) {
	dto, err := ParseCreateGameDTO(r.URL.Query())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, g.logger, wrapError(err))
		return
	}

	b, err := board.New(dto.Width, dto.Height, dto.MineCount, g.rnd)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, g.logger, wrapError(err))
		return
	}

	var params repository.CreateGameSessionParams
	if claims, ok := middleware.PlayerClaims(r.Context()); ok {
		params.PlayerId = &claims.PlayerID
	}

	session, err := g.repo.CreateGameSession(r.Context(), b, params)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		g.logger.WithError(err).Error("unable to create game session")
		return
	}

	sendJSONOrLog(w, g.logger, NewGameSessionDTO(session, b))
}

func (g Game) fetchSession(
	w http.ResponseWriter, r *http.Request,
) (*repository.GameSession, *board.Board, bool) {
	sessionId, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return nil, nil, false
	}

	session, err := g.repo.FetchGameSession(r.Context(), sessionId)
	if errors.Is(err, pgx.ErrNoRows) {
		w.WriteHeader(http.StatusNotFound)
		return nil, nil, false
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		g.logger.WithError(err).Error("unable to fetch session from db")
		return nil, nil, false
	}

	b, err := board.Decode(session.State, g.rnd)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		g.logger.WithError(err).Error("db returned invalid game_session.state")
		return nil, nil, false
	}

	return session, b, true
}

func (g Game) saveSession(
	r *http.Request, session *repository.GameSession, b *board.Board,
) error {
	state, err := b.Bytes()
	if err != nil {
		return fmt.Errorf("unable to serialize game state: %w", err)
	}

	dead := b.Phase == board.Lost
	won := b.Phase == board.Won
	params := repository.UpdateGameSessionParams{
		Dead:      &dead,
		Won:       &won,
		MineCount: &b.MineCount,
		State:     &state,
	}
	if b.Phase.Terminal() && !session.EndedAt.Valid {
		endedAt := time.Now().UTC()
		params.EndedAt = &endedAt
		session.EndedAt.Time = endedAt
		session.EndedAt.Valid = true
	}

	_, err = g.repo.UpdateGameSession(r.Context(), session.GameSessionId, params)
	return err
}

func (g Game) Fetch(w http.ResponseWriter, r *http.Request) {
	session, b, ok := g.fetchSession(w, r)
	if !ok {
		return
	}
	sendJSONOrLog(w, g.logger, NewGameSessionDTO(session, b))
}

func (g Game) Move(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	dto, err := ParseMoveDTO(query)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, g.logger, wrapError(err))
		return
	}

	move, err := parseGameMove(dto.Move)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, g.logger, wrapError(err))
		return
	}

	session, b, ok := g.fetchSession(w, r)
	if !ok {
		return
	}

	if !b.InBounds(dto.X, dto.Y) {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, g.logger, wrapError(ErrBadPosition))
		return
	}

	res, event, err := applyMove(b, move, dto.X, dto.Y, dto.QuestionMarks)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, g.logger, wrapError(err))
		return
	}

	if err := g.saveSession(r, session, b); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		g.logger.WithError(err).Error("unable to update session in db")
		return
	}

	dtoOut := &MoveResultDTO{
		GameSessionDTO: NewGameSessionDTO(session, b),
		Deltas:         res.Deltas,
		Lost:           res.Lost,
		Won:            res.Won,
	}
	if event != board.NoFlagChange {
		dtoOut.Event = event.String()
	}
	sendJSONOrLog(w, g.logger, dtoOut)
}

func (g Game) Forfeit(w http.ResponseWriter, r *http.Request) {
	session, b, ok := g.fetchSession(w, r)
	if !ok {
		return
	}

	res := b.Forfeit()

	if err := g.saveSession(r, session, b); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		g.logger.WithError(err).Error("unable to update session in db")
		return
	}

	sendJSONOrLog(w, g.logger, &MoveResultDTO{
		GameSessionDTO: NewGameSessionDTO(session, b),
		Deltas:         res.Deltas,
		Lost:           res.Lost,
	})
}
