// Package server exposes the leadwire daemon's HTTP API: agent task
// lifecycle, the tool catalogue, and daemon control endpoints.
package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mbarden/leadwire/internals/logbuf"
	"github.com/mbarden/leadwire/leadwired/core"
	"github.com/mbarden/leadwire/sdk"
)

type Server struct {
	Base       *core.BaseServer
	Logbuf     *logbuf.Logger
	httpServer *http.Server
}

func New() *Server {
	base := core.New()
	buffer := logbuf.New(
		slog.String("version", base.Config.Version),
		slog.Int("port", base.Env.PORT),
	)

	return &Server{
		Base:   base,
		Logbuf: buffer,
	}
}

func (s *Server) SafeStart() error {
	if sdk.IsRunning(s.Base.Env.BASE_URL) {
		return nil
	}

	go func() {
		s.Base.Logger.Info("starting server")
		err := s.Start()
		if err != nil {
			log.Fatal("[Leadwire] Failed to start server: " + err.Error())
		}
	}()

	if sdk.WaitForStart(s.Base.Env.BASE_URL, s.Base.Logger) {
		return nil
	}

	return errors.New("Couldn't start server")
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Base.Env.LISTEN_ADDR)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler: s.Router(),
	}
	s.httpServer = server
	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if s.httpServer == nil {
			s.Base.Logger.Error("shutdown failed", "error", errors.New("server not initialized"))
			return
		}
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Base.Logger.Error("shutdown failed", "error", err)
		}
		s.Base.Close()
	}()
}
