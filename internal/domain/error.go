package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrGenerationTimeout  = errors.New("generation timed out")
	ErrQueueFull          = errors.New("worker queue full")
	ErrNotSupported       = errors.New("operation not supported")
	ErrInvalidExecContext = errors.New("invalid query execution context")
)
