package app

import (
	"context"
	"net/http"
	"time"
)

// newServer wraps the gin engine in a *http.Server with sane timeouts, so
// Close can shut it down gracefully instead of dropping in-flight eval-run
// requests.
func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func shutdownServer(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
