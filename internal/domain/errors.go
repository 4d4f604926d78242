package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned when no live game uses the given PIN.
	ErrSessionNotFound = errors.New("game not found")
	// ErrInvalidNickname is returned when a participant joins without a nickname.
	ErrInvalidNickname = errors.New("nickname required")
	// ErrNicknameTaken is returned when a connected participant already uses the nickname.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrSendBufferFull is returned when a connection cannot accept more outbound frames.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrConnClosed is returned when sending on a closed connection.
	ErrConnClosed = errors.New("connection closed")
)
