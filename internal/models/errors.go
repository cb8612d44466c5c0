package models

import (
	"errors"
	"fmt"
)

// Calculation errors. Operations wrap these with context, so test with errors.Is.
// ErrInvalidType also matches ErrInvalidInput.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrEmptyInput            = errors.New("empty input")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrNoTransactions        = errors.New("no transactions")
	ErrInvalidType           = fmt.Errorf("%w: wrong transaction type", ErrInvalidInput)
)
