package gacha

import "errors"

// Draw engine errors.
var (
	// ErrConfiguration is returned when a banner cannot be turned into a drawable
	// probability model: no rate preset, or rate mass assigned to an empty pool.
	ErrConfiguration = errors.New("gacha: invalid banner configuration")

	// ErrInvalidAmount is returned for batch sizes other than 1 and 10.
	ErrInvalidAmount = errors.New("gacha: pull amount must be 1 or 10")

	// ErrEmptyPool is returned when no item can be drawn even after tier fallback.
	ErrEmptyPool = errors.New("gacha: no drawable item in any tier")
)
