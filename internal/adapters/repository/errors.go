package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrReference means a referenced record does not exist.
	ErrReference = errors.New("referenced record does not exist")
)
