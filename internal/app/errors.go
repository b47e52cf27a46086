package service

import "errors"

// Sentinel kinds returned by the service.
var (
	ErrSeasonNotFound = errors.New("season not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotStarted     = errors.New("service not started")
)
