package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/cricklet/chessforge/internal/engine"
	"github.com/cricklet/chessforge/internal/game"
	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/uci"
	"github.com/gorilla/websocket"
)

// connection is one browser game. Messages are handled in order on the
// websocket's read loop, so a game waits for the engine between moves.
type connection struct {
	server *Server
	ctx    context.Context
	conn   *websocket.Conn
	logger Logger

	writeMu sync.Mutex

	game     *game.Game
	userSide game.Side
	skill    int
	eval     Optional[uci.Score]
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Println("websocket upgrade:", err)
		return
	}
	defer conn.Close()

	c := &connection{
		server: s,
		ctx:    r.Context(),
		conn:   conn,
		skill:  s.config.Engine.SkillLevel,
	}
	c.logger = FuncLogger(func(message string) {
		c.forward(fmt.Sprintf("server: %v", message))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.logger.Println("websocket:", err)
			return
		}
		c.handleMessageFromWeb(message)
	}
}

func (c *connection) write(value any) {
	bytes, err := json.Marshal(value)
	if err != nil {
		c.server.logger.Println("json marshal:", err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	err = c.conn.WriteMessage(websocket.TextMessage, bytes)
	if err != nil {
		c.server.logger.Println("websocket:", err)
	}
}

// forward sends a log line to the browser console as a one element array.
func (c *connection) forward(message string) {
	c.server.logger.Print("logging: ", message)
	c.write([]string{message})
}

func (c *connection) finalizeUpdate(update UpdateToWeb) {
	update.UserSide = c.userSide.String()
	update.Level = c.skill
	if c.game != nil {
		update.FenString = c.game.Fen()
		update.Player = c.game.Turn().String()
		update.History = c.game.History()
		update.LastMove = c.game.LastMove().ValueOr("")

		status := c.game.Status()
		update.GameOver = status.IsOver()
		if update.GameOver {
			update.Outcome = status.Outcome
			update.Method = status.Method
		}
	}
	if c.eval.HasValue() {
		update.Eval = evalToWeb(c.eval.Value())
	}

	c.logger.Println("sending", update)
	c.write(update)
}

func (c *connection) handleMessageFromWeb(bytes []byte) {
	var message MessageFromWeb
	err := json.Unmarshal(bytes, &message)
	if err != nil {
		c.logger.Println("handleMessageFromWeb: json unmarshal:", err)
		return
	}
	c.logger.Println("received", message)

	if message.NewGame != nil {
		c.startGame(*message.NewGame)
		return
	}

	if c.game == nil {
		c.finalizeUpdate(UpdateToWeb{Feedback: "Start a game first"})
		return
	}

	switch {
	case message.Selection != nil:
		update := UpdateToWeb{Selection: *message.Selection}
		if c.game.Turn() == c.userSide {
			update.PossibleMoves = c.game.ValidMovesFrom(*message.Selection)
		}
		c.finalizeUpdate(update)
	case message.Move != nil:
		c.userMove(*message.Move)
	case message.Hint != nil:
		c.hint()
	case message.Undo != nil:
		c.undo()
	case message.Resign != nil:
		c.game.Resign(c.userSide)
		c.finalizeUpdate(UpdateToWeb{Feedback: "You resigned"})
	default:
		c.logger.Println("ignoring", message)
	}
}

func (c *connection) startGame(newGame NewGameFromWeb) {
	side, err := game.ParseSide(newGame.Side)
	if err.HasError() {
		c.finalizeUpdate(UpdateToWeb{Feedback: err.Error()})
		return
	}

	skill := c.server.config.Engine.SkillLevel
	if newGame.Level != nil {
		skill = *newGame.Level
	}
	if skill < 0 || skill > 20 {
		c.finalizeUpdate(UpdateToWeb{Feedback: fmt.Sprintf("Unknown level %v", skill)})
		return
	}

	g, err := game.NewGame(newGame.Fen)
	if err.HasError() {
		c.finalizeUpdate(UpdateToWeb{Feedback: err.Error()})
		return
	}

	c.game = g
	c.userSide = side
	c.skill = skill
	c.eval = Empty[uci.Score]()

	session, err := c.server.registry.Acquire(c.ctx)
	if err.HasError() {
		c.logger.Println("engine:", err)
		c.finalizeUpdate(UpdateToWeb{Feedback: "Engine unavailable"})
		return
	}
	err = session.NewGame(c.ctx)
	if err.HasError() {
		c.logger.Println("new game:", err)
	}

	c.finalizeUpdate(UpdateToWeb{})
	if c.game.Turn() != c.userSide {
		c.engineMove()
	}
}

func (c *connection) userMove(move string) {
	if c.game.Turn() != c.userSide {
		c.finalizeUpdate(UpdateToWeb{Feedback: "Not your turn"})
		return
	}

	san, err := c.game.PerformMove(move)
	if err.HasError() {
		c.logger.Println("perform:", move, err)
		c.finalizeUpdate(UpdateToWeb{Feedback: "Illegal move " + move})
		return
	}

	c.finalizeUpdate(UpdateToWeb{Feedback: "You played " + san})
	if !c.game.IsOver() {
		c.engineMove()
	}
}

func (c *connection) search() (engine.SearchResult, Error) {
	session, err := c.server.registry.Acquire(c.ctx)
	if err.HasError() {
		return engine.SearchResult{}, err
	}

	whiteToMove := c.game.Turn() == game.White
	result, err := session.Search(c.ctx, engine.SearchRequest{
		Position:   c.game.Position(),
		Params:     c.server.config.SearchParams(),
		SkillLevel: Some(c.skill),
	})
	if err.HasError() {
		return result, err
	}

	if result.Score.HasValue() {
		c.eval = Some(result.Score.Value().ForWhite(whiteToMove))
	}
	return result, NilError
}

func (c *connection) engineMove() {
	result, err := c.search()
	if err.HasError() {
		c.logger.Println("search:", err)
		c.finalizeUpdate(UpdateToWeb{Feedback: "Engine failed to move"})
		return
	}

	if result.NoMove() {
		c.logger.Println("no move found")
		c.finalizeUpdate(UpdateToWeb{Feedback: "Engine has no move"})
		return
	}

	move := result.BestMove.Value().String()
	san, err := c.game.PerformMove(move)
	if err.HasError() {
		c.logger.Println("perform:", move, err)
		c.finalizeUpdate(UpdateToWeb{Feedback: "Engine played an illegal move"})
		return
	}

	c.finalizeUpdate(UpdateToWeb{EngineMove: move, Feedback: "Engine played " + san})
}

func (c *connection) hint() {
	if c.game.Turn() != c.userSide || c.game.IsOver() {
		c.finalizeUpdate(UpdateToWeb{Feedback: "No hint available"})
		return
	}

	result, err := c.search()
	if err.HasError() {
		c.logger.Println("hint:", err)
		c.finalizeUpdate(UpdateToWeb{Feedback: "No hint available"})
		return
	}

	update := UpdateToWeb{}
	if result.BestMove.HasValue() {
		update.Hint = result.BestMove.Value().String()
	}
	c.finalizeUpdate(update)
}

// undo takes back the user's last move along with the engine's reply.
func (c *connection) undo() {
	n := 1
	if c.game.Turn() == c.userSide {
		n = 2
	}
	err := c.game.Undo(n)
	if err.HasError() {
		c.logger.Println("undo:", err)
	}
	c.eval = Empty[uci.Score]()
	c.finalizeUpdate(UpdateToWeb{})
}
