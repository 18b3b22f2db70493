package httpserver

import (
	"context"
	"net/http"
	"time"
)

// New wraps an http.Server with conservative timeouts so a stalled ledger or
// evidence call cannot pin connections forever.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Server is a thin lifecycle wrapper around http.Server.
type Server struct {
	srv *http.Server
}

func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
