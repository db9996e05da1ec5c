package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/shortener"
)

// ErrorModel is the body of every error response.
type ErrorModel struct {
	status  int
	Title   string `doc:"HTTP status text" example:"Not Found"      json:"error"`
	Message string `doc:"Error detail"     example:"link not found" json:"message"`
}

func (e *ErrorModel) Error() string {
	return e.Message
}

func (e *ErrorModel) GetStatus() int {
	return e.status
}

func init() {
	huma.NewError = newError
}

func newError(status int, msg string, errs ...error) huma.StatusError {
	details := make([]string, 0, len(errs))

	for _, err := range errs {
		if err != nil {
			details = append(details, err.Error())
		}
	}

	if len(details) > 0 {
		msg = msg + ": " + strings.Join(details, "; ")
	}

	return &ErrorModel{
		status:  status,
		Title:   http.StatusText(status),
		Message: msg,
	}
}

// toHTTPError maps domain errors to status errors.
func toHTTPError(err error) huma.StatusError {
	var verr *shortener.ValidationError

	switch {
	case errors.Is(err, shortener.ErrInvalidURL), errors.Is(err, shortener.ErrInvalidAlias):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.As(err, &verr):
		return huma.Error422UnprocessableEntity(verr.Error())
	case errors.Is(err, shortener.ErrAliasTaken):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, shortener.ErrGenerationExhausted):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound(shortener.ErrNotFound.Error())
	default:
		return huma.Error500InternalServerError("internal server error")
	}
}
