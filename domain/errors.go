package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("your Item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given Param is not valid")
	// ErrForbidden will throw if the user may not perform the action
	ErrForbidden = errors.New("you do not have permission to do this")
	// ErrUnauthorized will throw if the access token is missing, expired or invalid
	ErrUnauthorized = errors.New("user is not authorized")
	// ErrMutationInFlight will throw if the same mutation is already waiting for the server
	ErrMutationInFlight = errors.New("mutation already in flight")
	// ErrCategoryConflict will throw if several mutually exclusive categories are combined
	ErrCategoryConflict = errors.New("mutually exclusive categories")
	// ErrStale will throw if a response arrives for a cache entry that was discarded
	ErrStale = errors.New("response is stale")
	// ErrCacheMiss will throw if a cache has no value for the key
	ErrCacheMiss = errors.New("cache miss")
)

// CategoryConflictError names the mutually exclusive categories found together.
type CategoryConflictError struct {
	Categories []Category
}

func (e *CategoryConflictError) Error() string {
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = string(c)
	}
	return fmt.Sprintf("Cannot have a post with %s at the same time", JoinWithAnd(names))
}

func (e *CategoryConflictError) Unwrap() error {
	return ErrCategoryConflict
}

func (e *CategoryConflictError) Messages() []string {
	return []string{e.Error()}
}

// Messager is implemented by errors that carry display messages.
type Messager interface {
	Messages() []string
}

// ExtractErrorMessages returns the list of messages to show for err.
func ExtractErrorMessages(err error) []string {
	if err == nil {
		return nil
	}
	var m Messager
	if errors.As(err, &m) {
		if msgs := m.Messages(); len(msgs) > 0 {
			return msgs
		}
	}
	return []string{err.Error()}
}

// IsUserVisible reports whether err should be displayed. Cache/view mismatches are not.
func IsUserVisible(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrStale)
}
