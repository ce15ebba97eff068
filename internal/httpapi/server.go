// Package httpapi exposes the verification service as a small JSON API.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the API on addr until ctx is cancelled, then drains in-flight
// requests and closes the result store.
func Serve(ctx context.Context, addr string, handler http.Handler, store io.Closer) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Ctx(ctx).Info().Str("addr", addr).Msg("api listening")
		serveErr <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		log.Ctx(ctx).Info().Msg("api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}

	if store != nil {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("api server failed").
			WithCause(err)
	}
	return nil
}
