package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// Server wraps http.Server and drains in-flight requests on shutdown.
type Server struct {
	*http.Server

	shutdownTimeout time.Duration
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
// An open check-in transaction finishes before the process exits.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	Sugar.Infof("shutting down HTTP server, waiting up to %s for open requests", srv.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	Sugar.Info("HTTP server shutdown success")
	return nil
}

// GraceServer listens on addr and serves handler until SIGINT or SIGTERM.
func GraceServer(addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("net.Listen error: %w", err)
	}
	return NewServer(addr, handler, DefaultReadTimeout, DefaultWriteTimeout).Serve(ctx, ln)
}
