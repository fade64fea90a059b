package core

import (
	"errors"
	"fmt"
)

var (
	ErrIngestion     = errors.New("document ingestion failed")
	ErrCompletion    = errors.New("completion failed")
	ErrConfiguration = errors.New("missing or invalid credentials")

	ErrNotReady         = errors.New("no document loaded")
	ErrBusy             = errors.New("previous request is still running")
	ErrEmptyMessage     = errors.New("empty message")
	ErrSessionNotFound  = errors.New("session not found")
	ErrDocumentTooLarge = fmt.Errorf("%w: document too large", ErrIngestion)
)
