package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/errors"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// errorEnvelope matches httputil.ErrorResponse.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// turns it into an error. Envelope-shaped bodies become *apperrors.AppError
// carrying the remote code; anything else becomes a plain error with the raw
// body.
func ParseResponseError(resp *http.Response, remote string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", remote, resp.StatusCode, err)
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return mapRemoteError(resp.StatusCode, env.Error.Code, env.Error.Message, remote)
	}
	return fmt.Errorf("%s returned status %d: %s", remote, resp.StatusCode, string(body))
}

func mapRemoteError(status int, code, message, remote string) error {
	msg := fmt.Sprintf("%s: %s", remote, message)

	var sentinel error
	switch status {
	case http.StatusNotFound:
		sentinel = apperrors.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = apperrors.ErrInvalidInput
	case http.StatusConflict:
		sentinel = apperrors.ErrConflict
	case http.StatusUnauthorized:
		sentinel = apperrors.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = apperrors.ErrForbidden
	case http.StatusServiceUnavailable:
		sentinel = apperrors.ErrServiceUnavail
	default:
		if status >= 500 {
			return fmt.Errorf("%s server error (%d/%s): %s", remote, status, code, message)
		}
	}

	return &apperrors.AppError{Code: code, Message: msg, Status: status, Err: sentinel}
}
