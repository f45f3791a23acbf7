package domain

import "errors"

var (
	ErrMalformedMessage = errors.New("message has no date")
	ErrPermissionDenied = errors.New("permission denied")
	ErrChatNotFound     = errors.New("chat not found")
)
