package fiber

import (
	"encoding/json"
	"strings"

	"github.com/lborres/lumore/core"
)

// serverMessage extracts the message the backend put in an error body.
// The backend uses "message"; some middleware answers with "error".
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(payload.Error)
}

// responseError maps a non-2xx response to a RequestError
func responseError(status int, body []byte, fallback string) *core.RequestError {
	msg := serverMessage(body)
	if msg == "" {
		msg = fallback
	}
	return &core.RequestError{
		Kind:       core.RequestErrorResponse,
		StatusCode: status,
		Message:    msg,
	}
}

// noResponseError is used when the request went out but nothing usable came back
func noResponseError(err error) *core.RequestError {
	return &core.RequestError{
		Kind:    core.RequestErrorNoResponse,
		Message: core.MessageNoResponse,
		Err:     err,
	}
}

// setupError is used when the request could not be built or sent at all
func setupError(err error) *core.RequestError {
	return &core.RequestError{
		Kind:    core.RequestErrorSetup,
		Message: core.MessageSetupError,
		Err:     err,
	}
}
