// Command fakeremote serves a scriptless stand-in for the verification service
// so the flow server can be run locally. Every request is accepted.
package main

import (
	"errors"
	"net/http"
	"os"

	"ticketflow/internal/platform/httpserver"
	"ticketflow/internal/platform/logger"
	"ticketflow/internal/platform/middleware"
	"ticketflow/pkg/testutil/fakeremote"
)

func main() {
	log := logger.New("text", "info")
	addr := os.Getenv("FAKEREMOTE_ADDR")
	if addr == "" {
		addr = ":5000"
	}

	fake := fakeremote.New()
	srv := httpserver.New(addr, middleware.Logger(log)(fake.Handler()))

	log.Info("starting fake verification service", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("fake verification service stopped", "error", err)
		os.Exit(1)
	}
}
