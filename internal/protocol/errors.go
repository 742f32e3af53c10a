package protocol

import "errors"

var (
	ErrEmptyChannel   = errors.New("protocol: empty channel")
	ErrInvalidPayload = errors.New("protocol: invalid payload")
	ErrUnknownChannel = errors.New("protocol: unknown channel")
	ErrWrongDirection = errors.New("protocol: channel not allowed in this direction")
)
