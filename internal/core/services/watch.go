package services

import (
	"context"
	"errors"
	"sync"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
	"github.com/neonarc/neonarc/internal/core/ports/driving"
	"github.com/neonarc/neonarc/internal/logger"
)

var _ driving.Watcher = (*WatchService)(nil)

// WatchService drives the ingestion pipeline from filesystem events.
// Each debounced event runs the same per-file pipeline an explicit
// ingest would, so watching and manual ingestion stay consistent.
type WatchService struct {
	source   driven.EventSource
	ingestor driving.Ingestor

	mu        sync.Mutex
	roots     []string
	triggered int
	errCount  int
}

// NewWatchService creates a watch service.
func NewWatchService(source driven.EventSource, ingestor driving.Ingestor) *WatchService {
	return &WatchService{source: source, ingestor: ingestor}
}

// Watch blocks until ctx is cancelled, feeding events to the pipeline.
func (s *WatchService) Watch(ctx context.Context, roots []string, recursive bool) error {
	logger.Section("Watch")

	events, err := s.source.Subscribe(ctx, roots, recursive)
	if err != nil {
		return err
	}
	defer s.source.Close()

	s.mu.Lock()
	s.roots = append([]string(nil), roots...)
	s.mu.Unlock()

	logger.Info("watching %d roots", len(roots))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.handle(ctx, event)
		}
	}
}

// Status returns counters for the current session.
func (s *WatchService) Status() driving.WatchStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return driving.WatchStatus{
		Roots:     append([]string(nil), s.roots...),
		Triggered: s.triggered,
		Errors:    s.errCount,
	}
}

func (s *WatchService) handle(ctx context.Context, event domain.FileEvent) {
	s.mu.Lock()
	s.triggered++
	s.mu.Unlock()

	logger.Debug("event %s: %s", event.Type, event.Path)

	var err error
	switch event.Type {
	case domain.FileCreated, domain.FileModified:
		_, err = s.ingestor.Ingest(ctx, []string{event.Path}, driving.IngestOptions{})
		if errors.Is(err, domain.ErrNotFound) {
			// The file vanished between the event and the pipeline run;
			// its delete event is already queued behind this one.
			err = nil
		}
	case domain.FileDeleted, domain.FileMoved:
		// A move fires on the old path; if the file reappears elsewhere
		// its create event re-adopts it by content hash.
		err = s.ingestor.Remove(ctx, event.Path)
		if errors.Is(err, domain.ErrNotFound) {
			err = nil
		}
	}

	if err != nil {
		s.mu.Lock()
		s.errCount++
		s.mu.Unlock()
		logger.Warn("handling %s for %s: %v", event.Type, event.Path, err)
	}
}
