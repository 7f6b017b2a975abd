package httpx

import (
	"net/http"

	apperrors "github.com/talentforge/insights/internal/errors"
)

// statusForCode maps the application error taxonomy to HTTP status codes.
// Unknown codes fall through to 500 rather than leaking details.
func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeSubmission, apperrors.ErrCodeRemoteFailure:
		return http.StatusBadGateway
	case apperrors.ErrCodeTransientPoll:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteAppError maps a service-layer error onto the wire: the taxonomy code
// becomes the status and the body carries code, message and (for validation
// errors) the offending field.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	body := map[string]string{
		"error":   string(code),
		"message": err.Error(),
	}
	if field := apperrors.GetField(err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, statusForCode(code), body)
}
