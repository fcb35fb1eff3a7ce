package download

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Gherucu/gloload/internal/model"
)

// Operation id prefix
const (
	RequestIDPrefix = "dl-"
)

// Service runs downloads one at a time
type Service struct {
	controller *Controller

	mu      sync.RWMutex
	current *model.DownloadRequest
	status  model.OperationStatus
	cancel  context.CancelFunc
}

// NewService creates a download service on top of controller
func NewService(controller *Controller) *Service {
	return &Service{
		controller: controller,
		status:     model.StatusIdle,
	}
}

// Start launches req and returns its event stream. It fails with
// model.ErrBusy while another download is in flight. An empty req.ID is
// replaced with a generated one.
func (s *Service) Start(ctx context.Context, req model.DownloadRequest) (<-chan model.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.status.IsActive() {
		busy := s.current.URL
		s.mu.Unlock()
		return nil, model.Errorf(model.KindBusy, "download", "already downloading %s", busy)
	}
	if req.ID == "" {
		req.ID = NewRequestID()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.current = &req
	s.status = model.StatusDownloading
	s.cancel = cancel
	s.mu.Unlock()

	upstream := s.controller.Run(runCtx, req)
	events := make(chan model.Event)
	go func() {
		defer close(events)
		defer cancel()
		for ev := range upstream {
			if model.IsTerminal(ev) {
				s.finish(ev)
			}
			events <- ev
		}
	}()
	return events, nil
}

// Cancel stops the running download, if any
func (s *Service) Cancel() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.status.IsActive() || s.cancel == nil {
		return fmt.Errorf("no download in progress")
	}
	s.cancel()
	return nil
}

// Status returns the state of the most recent download
func (s *Service) Status() model.OperationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Current returns a copy of the most recent request
func (s *Service) Current() (model.DownloadRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return model.DownloadRequest{}, false
	}
	return *s.current, true
}

// CommandLine returns the yt-dlp command that Start would execute for req
func (s *Service) CommandLine(req model.DownloadRequest) string {
	return s.controller.CommandLine(req)
}

// Busy reports whether a download is in flight
func (s *Service) Busy() bool {
	return s.Status().IsActive()
}

// finish records the terminal state before the event is delivered, so a
// consumer reacting to it can start the next download immediately
func (s *Service) finish(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.(type) {
	case model.Completed:
		s.status = model.StatusCompleted
	case model.Failed:
		s.status = model.StatusFailed
	}
	s.cancel = nil
}

// NewRequestID returns a time ordered operation id
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return RequestIDPrefix + uuid.NewString()
	}
	return RequestIDPrefix + id.String()
}
