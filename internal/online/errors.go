package online

import "errors"

var (
	ErrServiceUnavailable = errors.New("online: session service unavailable")
	ErrRequestFailed      = errors.New("online: request failed")
	ErrResolveFailed      = errors.New("online: connect string unavailable")
	ErrSessionExists      = errors.New("online: session already exists")
	ErrNoSession          = errors.New("online: no such session")
	ErrSearchInProgress   = errors.New("online: search already in progress")
	ErrClosed             = errors.New("online: service closed")
)
