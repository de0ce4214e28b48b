package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSourceFetch        = errors.New("source fetch failed")
	ErrEmbedding          = errors.New("embedding failed")
	ErrIndexOperation     = errors.New("index operation failed")
	ErrGeneration         = errors.New("generation failed")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCollectionNotReady = errors.New("collection not ready")
	ErrNotFound           = errors.New("not found")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
