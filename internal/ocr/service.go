// Package ocr extracts markdown text from uploaded documents via the
// TextIn recognition API.
package ocr

import (
	"context"
	"errors"
)

// ErrMissingCredentials is returned when the client has no app id or
// secret configured.
var ErrMissingCredentials = errors.New("ocr credentials are not configured")

// ErrEmptyDocument is returned when the caller supplied no bytes at all.
var ErrEmptyDocument = errors.New("document is empty")

// Service turns a raw document into markdown text. Implementations return
// the recognized text verbatim; callers decide how to treat empty or
// whitespace-only results.
type Service interface {
	Recognize(ctx context.Context, document []byte) (string, error)
}
