package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNoSelection  = errors.New("no note selected")
	ErrEmptyMessage = errors.New("empty message")
	ErrChatBusy     = errors.New("chat request already in flight")
	ErrNoPending    = errors.New("no pending action")
	ErrEmptySession = errors.New("empty chat session")
)
