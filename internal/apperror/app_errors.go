package apperror

import "errors"

var (
	ErrOutOfRange      = errors.New("position is out of range")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrGameAlreadyOver = errors.New("game is already over")
)
