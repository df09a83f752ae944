package repository

import "errors"

var (
	// ErrSessionNotFound indicates no session exists with the given id
	ErrSessionNotFound = errors.New("session not found")

	// ErrRepositoryFull indicates the session limit has been reached
	ErrRepositoryFull = errors.New("session limit reached")
)
