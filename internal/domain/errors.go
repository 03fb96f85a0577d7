package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrWSDisconnect    = errors.New("websocket disconnected")
	ErrContextDone     = errors.New("context cancelled")
)
