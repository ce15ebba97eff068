package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLogging attaches a request-scoped logger to the context and logs
// one line per request once it completes.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		started := time.Now()
		logger := log.Logger.With().
			Str("request_id", uuid.NewString()).
			Str("method", request.Method).
			Str("path", request.URL.Path).
			Logger()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
		next.ServeHTTP(recorder, request.WithContext(logger.WithContext(request.Context())))
		logger.Info().
			Int("status", recorder.status).
			Dur("elapsed", time.Since(started)).
			Msg("request served")
	})
}
