package main

import (
	"context"
	"net/http"
)

// run accepts connections until the listener closes, then drains
// in-flight requests for a graceful shutdown.
func run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
