package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-board/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-board/internal/entity"
)

// GameController owns the board, the current player and the terminal status.
// It is not safe for concurrent use: callers serialize access.
type GameController struct {
	board         entity.Board
	currentPlayer entity.Mark
	status        entity.Status
	winner        entity.Mark
	winningLine   *[3]int

	// generation advances on every accepted move and every reset.
	generation uint64
}

func NewGameController() *GameController {
	controller := &GameController{}
	controller.clear()

	return controller
}

// AttemptMove places the current player's mark at position.
func (that *GameController) AttemptMove(position int) (entity.MoveResult, error) {
	if err := that.validateMove(position); err != nil {
		return entity.MoveResult{}, err
	}

	player := that.currentPlayer
	that.board[position] = player
	that.generation++

	that.updateGameStatus(player)

	result := entity.MoveResult{
		Position:    position,
		Player:      player,
		Board:       that.board,
		Status:      that.status,
		Winner:      that.winner,
		WinningLine: copyLine(that.winningLine),
		GameOver:    that.status != entity.StatusInProgress,
		IsDraw:      that.status == entity.StatusDraw,
	}

	if that.status == entity.StatusInProgress {
		result.NextPlayer = that.currentPlayer
	}

	return result, nil
}

// Reset returns the machine to the initial state. It always succeeds.
func (that *GameController) Reset() entity.GameState {
	that.clear()
	that.generation++

	return that.CurrentState()
}

func (that *GameController) CurrentState() entity.GameState {
	return entity.GameState{
		Board:         that.board,
		CurrentPlayer: that.currentPlayer,
		Status:        that.status,
		Winner:        that.winner,
		WinningLine:   copyLine(that.winningLine),
		GameOver:      that.status != entity.StatusInProgress,
		IsDraw:        that.status == entity.StatusDraw,
	}
}

func (that *GameController) Generation() uint64 {
	return that.generation
}

func (that *GameController) clear() {
	that.board = entity.Board{}
	that.currentPlayer = entity.StartingMark
	that.status = entity.StatusInProgress
	that.winner = entity.EmptyCell
	that.winningLine = nil
}

// validateMove - checks if the move is valid.
func (that *GameController) validateMove(position int) error {
	if position < 0 || position >= entity.BoardSize {
		return fmt.Errorf("%w: position %d", apperror.ErrOutOfRange, position)
	}

	if that.status != entity.StatusInProgress {
		return fmt.Errorf("%w: status %s", apperror.ErrGameAlreadyOver, that.status)
	}

	if that.board[position] != entity.EmptyCell {
		return fmt.Errorf("%w: position %d", apperror.ErrCellOccupied, position)
	}

	return nil
}

// updateGameStatus - evaluates termination after player has moved.
func (that *GameController) updateGameStatus(player entity.Mark) {
	if line, ok := findWinningLine(that.board, player); ok {
		that.status = entity.StatusWon
		that.winner = player
		that.winningLine = &line

		return
	}

	if that.board.IsFull() {
		that.status = entity.StatusDraw
		return
	}

	that.currentPlayer = player.Opponent()
}

func findWinningLine(board entity.Board, player entity.Mark) ([3]int, bool) {
	for _, combo := range entity.WinCombos {
		if board[combo[0]] == player && board[combo[1]] == player && board[combo[2]] == player {
			return combo, true
		}
	}

	return [3]int{}, false
}

func copyLine(line *[3]int) *[3]int {
	if line == nil {
		return nil
	}

	c := *line
	return &c
}
