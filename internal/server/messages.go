package server

import (
	"fmt"

	"github.com/cricklet/chessforge/internal/uci"
)

type NewGameFromWeb struct {
	Side  string `json:"side"`
	Level *int   `json:"level"`
	Fen   string `json:"fen"`
}

type MessageFromWeb struct {
	NewGame   *NewGameFromWeb `json:"newGame"`
	Selection *string         `json:"selection"`
	Move      *string         `json:"move"`
	Hint      *bool           `json:"hint"`
	Undo      *bool           `json:"undo"`
	Resign    *bool           `json:"resign"`
}

func (u MessageFromWeb) String() string {
	if u.NewGame != nil {
		return fmt.Sprint("MessageFromWeb NewGame: ", *u.NewGame)
	}
	if u.Selection != nil {
		return fmt.Sprint("MessageFromWeb Selection: ", *u.Selection)
	}
	if u.Move != nil {
		return fmt.Sprint("MessageFromWeb Move: ", *u.Move)
	}
	if u.Hint != nil {
		return fmt.Sprint("MessageFromWeb Hint: ", *u.Hint)
	}
	if u.Undo != nil {
		return fmt.Sprint("MessageFromWeb Undo: ", *u.Undo)
	}
	if u.Resign != nil {
		return fmt.Sprint("MessageFromWeb Resign: ", *u.Resign)
	}
	return "MessageFromWeb unknown"
}

// EvalToWeb is an engine score from White's point of view.
type EvalToWeb struct {
	uci.Score
	Text       string  `json:"text"`
	WhiteWinPc float64 `json:"whiteWinPercent"`
}

func evalToWeb(score uci.Score) *EvalToWeb {
	return &EvalToWeb{Score: score, Text: score.String(), WhiteWinPc: score.WinPercentage()}
}

type UpdateToWeb struct {
	FenString     string     `json:"fenString"`
	LastMove      string     `json:"lastMove"`
	Selection     string     `json:"selection"`
	PossibleMoves []string   `json:"possibleMoves"`
	Player        string     `json:"player"`
	UserSide      string     `json:"userSide"`
	Level         int        `json:"level"`
	History       []string   `json:"history"`
	Eval          *EvalToWeb `json:"eval,omitempty"`
	Hint          string     `json:"hint,omitempty"`
	EngineMove    string     `json:"engineMove,omitempty"`
	Feedback      string     `json:"feedback,omitempty"`
	GameOver      bool       `json:"gameOver"`
	Outcome       string     `json:"outcome,omitempty"`
	Method        string     `json:"method,omitempty"`
}

func (u UpdateToWeb) String() string {
	return fmt.Sprint("UpdateToWeb: ", u.FenString, ", ", u.LastMove, ", ", u.Selection, ", ", u.PossibleMoves, ", ", u.Feedback)
}

type BestMoveResponse struct {
	BestMove string     `json:"bestMove"`
	Ponder   string     `json:"ponder,omitempty"`
	NoMove   bool       `json:"noMove"`
	Eval     *EvalToWeb `json:"eval,omitempty"`
	Depth    int        `json:"depth"`
	Nodes    int64      `json:"nodes"`
	PV       []string   `json:"pv"`
}
