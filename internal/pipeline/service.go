package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/settleflow/settleflow/pkg/service"
)

// Service wraps a Pipeline as a managed service for server mode.
type Service struct {
	pipeline *Pipeline

	mu     sync.Mutex
	status service.Status
	done   chan struct{}
}

// NewService creates a new pipeline service.
func NewService(pipeline *Pipeline) *Service {
	return &Service{
		pipeline: pipeline,
		status:   service.StatusStopped,
	}
}

// Name returns the service name.
func (s *Service) Name() string {
	return "pipeline"
}

// Start launches the pipeline in the background. The pipeline stops when
// ctx is canceled and its source drains.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = service.StatusStarting
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.pipeline.Run(ctx); err != nil {
			s.setStatus(service.StatusError)
			return
		}
		s.setStatus(service.StatusStopped)
	}()

	s.status = service.StatusRunning
	return nil
}

// Stop waits for the pipeline to drain. Cancellation of the start context
// is what actually interrupts the source.
func (s *Service) Stop(ctx context.Context) error {
	s.setStatus(service.StatusStopping)

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.setStatus(service.StatusStopped)
	return nil
}

// Status returns the current service status.
func (s *Service) Status() service.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Health performs a health check.
func (s *Service) Health() error {
	if st := s.Status(); st == service.StatusError {
		return fmt.Errorf("pipeline in error state")
	}
	return nil
}

// Dependencies returns a list of services this service depends on.
func (s *Service) Dependencies() []string {
	return []string{}
}

func (s *Service) setStatus(st service.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}
