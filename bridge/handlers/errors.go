package handlers

import "errors"

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingScope   = errors.New("token lacks engine scope")
	ErrEngineNotReady = errors.New("engine not ready")
)
