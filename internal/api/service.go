package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/settleflow/settleflow/pkg/service"
)

// Service wraps the API server as a managed service.
type Service struct {
	server *Server

	mu     sync.Mutex
	status service.Status
}

// NewService creates a new API service.
func NewService(server *Server) *Service {
	return &Service{
		server: server,
		status: service.StatusStopped,
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return "api"
}

// Start binds the listen address and launches the HTTP server in the
// background. The service only reports Running once the bind succeeded.
func (s *Service) Start(ctx context.Context) error {
	s.setStatus(service.StatusStarting)

	if err := s.server.Bind(); err != nil {
		s.setStatus(service.StatusError)
		return fmt.Errorf("failed to bind api listener: %w", err)
	}

	go func() {
		if err := s.server.Serve(); err != nil {
			s.server.logger.Error("api server failed", "error", err)
			s.setStatus(service.StatusError)
		}
	}()

	s.setStatus(service.StatusRunning)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Service) Stop(ctx context.Context) error {
	s.setStatus(service.StatusStopping)
	err := s.server.Shutdown(ctx)
	s.setStatus(service.StatusStopped)
	return err
}

// Status returns the current service status.
func (s *Service) Status() service.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Health performs a health check.
func (s *Service) Health() error {
	if st := s.Status(); st != service.StatusRunning {
		return fmt.Errorf("api service not running (status %s)", st)
	}
	return nil
}

// Dependencies returns a list of services this service depends on.
func (s *Service) Dependencies() []string {
	return []string{"pipeline"}
}

func (s *Service) setStatus(st service.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}
