package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/akoreshkov/minefield-server/internal/board"
)

// Websocket command protocol, one command per line:
//
//	g          resend the session snapshot
//	o X Y      open a cell
//	f X Y [q]  cycle the flag; trailing "q" enables the question step
//	c X Y      chord a numbered cell
//	r          forfeit
type wsCommand string

const (
	wsNoop    wsCommand = "g"
	wsOpen    wsCommand = "o"
	wsFlag    wsCommand = "f"
	wsChord   wsCommand = "c"
	wsForfeit wsCommand = "r"
)

func parseXY(args []string) (x int, y int, err error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("expected two coordinates")
	}
	if x, err = strconv.Atoi(args[0]); err != nil {
		return 0, 0, fmt.Errorf("first argument must be an int")
	}
	if y, err = strconv.Atoi(args[1]); err != nil {
		return 0, 0, fmt.Errorf("second argument must be an int")
	}
	return x, y, nil
}

func executeCommand(b *board.Board, line string) (board.MoveResult, error) {
	var res board.MoveResult

	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return res, nil
	}
	cmd, args := wsCommand(tokens[0]), tokens[1:]

	switch cmd {
	case wsNoop:
		return res, nil
	case wsForfeit:
		return b.Forfeit(), nil
	case wsOpen, wsFlag, wsChord:
		x, y, err := parseXY(args)
		if err != nil {
			return res, err
		}
		if !b.InBounds(x, y) {
			return res, ErrBadPosition
		}
		switch cmd {
		case wsOpen:
			return b.Reveal(x, y)
		case wsChord:
			return b.Chord(x, y)
		default:
			questionMarks := len(args) > 2 && args[2] == "q"
			fres, err := b.ToggleFlag(x, y, questionMarks)
			res.Deltas = fres.Deltas
			return res, err
		}
	default:
		return res, fmt.Errorf("unknown command %q", cmd)
	}
}

// Connect upgrades to a websocket and plays the session over it: each text
// message is a batch of commands, each reply a session snapshot with the
// batch's accumulated deltas.
func (g Game) Connect(w http.ResponseWriter, r *http.Request) {
	session, b, ok := g.fetchSession(w, r)
	if !ok {
		return
	}

	conn, err := g.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.WithError(err).Error("unable to upgrade")
		return
	}
	defer conn.Close()

	for {
		mt, buf, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				g.logger.WithError(err).Warn("abnormal ws break")
			}
			return
		}
		if mt != websocket.TextMessage {
			return
		}

		var batch board.MoveResult
		for _, line := range strings.Split(strings.TrimSpace(string(buf)), "\n") {
			res, err := executeCommand(b, strings.TrimSpace(line))
			if err != nil {
				if werr := conn.WriteJSON(wrapError(err)); werr != nil {
					g.logger.WithError(werr).Error("unable to write json")
					return
				}
				continue
			}
			batch.Deltas = append(batch.Deltas, res.Deltas...)
			batch.Lost = batch.Lost || res.Lost
			batch.Won = batch.Won || res.Won
			if b.Phase.Terminal() {
				break
			}
		}

		if err := g.saveSession(r, session, b); err != nil {
			g.logger.WithError(err).Error("unable to update session in db")
			return
		}

		reply := &MoveResultDTO{
			GameSessionDTO: NewGameSessionDTO(session, b),
			Deltas:         batch.Deltas,
			Lost:           batch.Lost,
			Won:            batch.Won,
		}
		if err := conn.WriteJSON(reply); err != nil {
			g.logger.WithError(err).Error("unable to write json")
			return
		}
	}
}
