package client

import "errors"

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrReuseDetected = errors.New("session revoked after refresh token reuse")
)
