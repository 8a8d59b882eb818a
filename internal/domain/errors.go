package domain

import "errors"

var (
	// Ledger errors
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")

	// Directory errors
	ErrNameNotFound = errors.New("name not registered in directory")
)
