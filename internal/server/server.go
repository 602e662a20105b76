package server

import (
	"context"
	"log"
	"net/http"

	"mediadlapi/internal/config"
	"mediadlapi/internal/handlers"
)

type Server struct {
	api  *handlers.API
	http *http.Server
}

func New() (*Server, error) {
	cfg := config.Load()
	api, err := handlers.NewAPI(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("downloads dir: %s", cfg.DownloadsDir)
	h := &http.Server{Addr: cfg.ListenAddr, Handler: api.Router()}
	return &Server{api: api, http: h}, nil
}

func (s *Server) Start() error {
	log.Printf("server starting on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	log.Println("shutting down")
	err := s.http.Shutdown(ctx)
	// Cancel cleanup timers and delete leftover artifacts once no response
	// is still being written.
	s.api.Close()
	return err
}
