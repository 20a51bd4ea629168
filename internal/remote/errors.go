package remote

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Guyuepp/clip-board/domain"
)

// APIError is a non-2xx answer of the posts API.
type APIError struct {
	StatusCode int
	Msgs       []string
}

func (e *APIError) Error() string {
	if len(e.Msgs) == 0 {
		return fmt.Sprintf("posts API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("posts API error (status %d): %s", e.StatusCode, strings.Join(e.Msgs, "; "))
}

func (e *APIError) Messages() []string {
	return e.Msgs
}

// Is lets callers test the status with the domain sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case domain.ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case domain.ErrBadParamInput:
		return e.StatusCode == http.StatusBadRequest
	case domain.ErrConflict:
		return e.StatusCode == http.StatusConflict
	default:
		return false
	}
}

// errorBody accepts both {"message": "..."} and {"errors": [...]}
type errorBody struct {
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Errors  []string `json:"errors"`
}

func (b errorBody) messages() []string {
	var res []string
	if b.Message != "" {
		res = append(res, b.Message)
	}
	if b.Error != "" {
		res = append(res, b.Error)
	}
	return append(res, b.Errors...)
}
