package service

import "errors"

var (
	// ErrValidation marks malformed input rejected before any mutation.
	ErrValidation = errors.New("invalid input")

	// ErrConflict marks a state-machine precondition violation, such as
	// starting a session while one is running or feeding an expired pet.
	ErrConflict = errors.New("conflict")

	// ErrGateDenied marks a task-completion attempt without a qualifying
	// session. User-correctable, not a system fault.
	ErrGateDenied = errors.New("qualifying session required")

	// ErrInsufficientFunds marks a purchase exceeding the gem balance.
	ErrInsufficientFunds = errors.New("insufficient gems")
)
