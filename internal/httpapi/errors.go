package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
)

const misconfiguredMessage = "server misconfiguration"

func badRequest(message string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)
}

// statusForError maps service error codes onto HTTP. Misconfiguration is a
// server fault and never leaks details to the caller.
func statusForError(err error) (int, string) {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument:
		return http.StatusBadRequest, errorMessage(err)
	case errbuilder.CodePermissionDenied:
		return http.StatusUnauthorized, errorMessage(err)
	case errbuilder.CodeNotFound:
		return http.StatusNotFound, errorMessage(err)
	case errbuilder.CodeFailedPrecondition:
		return http.StatusInternalServerError, misconfiguredMessage
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(writer http.ResponseWriter, request *http.Request, err error) {
	status, message := statusForError(err)
	event := log.Ctx(request.Context()).Debug()
	if status >= http.StatusInternalServerError {
		event = log.Ctx(request.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")
	writeJSON(writer, status, map[string]any{"ok": false, "error": message})
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
