package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusDraw       Status = "draw"

	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
	EmptyCell Mark = ""

	// StartingMark always moves first, after boot and after every reset.
	StartingMark = PlayerX

	BoardSize = 9
)

var (
	ErrUnknownMark = errors.New("unknown mark")

	// WinCombos is evaluated in order: rows, then columns, then diagonals.
	WinCombos = [8][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

// Mark is a player symbol occupying a cell.
type Mark string

type Status string

// Board is the 3x3 grid in row-major order. On the wire an empty cell is null.
type Board [BoardSize]Mark

// GameState is a read-only snapshot of the game.
type GameState struct {
	Board         Board   `json:"board"`
	CurrentPlayer Mark    `json:"current_player"`
	Status        Status  `json:"status"`
	Winner        Mark    `json:"winner,omitempty"`
	WinningLine   *[3]int `json:"winning_line,omitempty"`
	GameOver      bool    `json:"game_over"`
	IsDraw        bool    `json:"is_draw"`
}

// MoveResult is produced once per accepted move and never modified afterwards.
type MoveResult struct {
	Position    int     `json:"position"`
	Player      Mark    `json:"player"`
	Board       Board   `json:"board"`
	Status      Status  `json:"status"`
	Winner      Mark    `json:"winner,omitempty"`
	WinningLine *[3]int `json:"winning_line,omitempty"`
	GameOver    bool    `json:"game_over"`
	IsDraw      bool    `json:"is_draw"`
	NextPlayer  Mark    `json:"next_player,omitempty"`
}

func (that Mark) Opponent() Mark {
	if that == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (that Mark) IsValid() bool {
	return that == PlayerX || that == PlayerO
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

func (that Board) MarshalJSON() ([]byte, error) {
	cells := make([]*Mark, len(that))
	for i := range that {
		if that[i] != EmptyCell {
			mark := that[i]
			cells[i] = &mark
		}
	}

	return json.Marshal(cells)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var cells []*Mark
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if len(cells) != BoardSize {
		return fmt.Errorf("board must have %d cells, got %d", BoardSize, len(cells))
	}

	var board Board
	for i, cell := range cells {
		if cell == nil {
			continue
		}

		if !cell.IsValid() {
			return fmt.Errorf("%w: %q at cell %d", ErrUnknownMark, *cell, i)
		}

		board[i] = *cell
	}

	*that = board

	return nil
}

func (that MoveResult) IsWon() bool {
	return that.Status == StatusWon
}

func (that MoveResult) IsDrawn() bool {
	return that.Status == StatusDraw
}

// State is the game state right after the move.
func (that MoveResult) State() GameState {
	current := that.NextPlayer
	if current == EmptyCell {
		current = that.Player
	}

	return GameState{
		Board:         that.Board,
		CurrentPlayer: current,
		Status:        that.Status,
		Winner:        that.Winner,
		WinningLine:   that.WinningLine,
		GameOver:      that.GameOver,
		IsDraw:        that.IsDraw,
	}
}
