package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sydlexius/songproof/internal/song"
)

// RunResult summarizes the state of a verification run.
type RunResult struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"` // "running", "completed", "canceled", "failed"
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Progress    Progress   `json:"progress"`
	Summary     *Summary   `json:"summary,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Service runs verification batches against the song store. Only one run is
// active at a time.
type Service struct {
	orchestrator *Orchestrator
	songs        *song.Service
	logger       *slog.Logger

	mu         sync.Mutex
	currentRun *RunResult
	cancelRun  context.CancelFunc
}

// NewService creates a verify service.
func NewService(orchestrator *Orchestrator, songs *song.Service, logger *slog.Logger) *Service {
	return &Service{
		orchestrator: orchestrator,
		songs:        songs,
		logger:       logger.With(slog.String("component", "verify-service")),
	}
}

// Run starts verifying every stored song. Returns a snapshot of the initial
// run result. Fails if a run is already in progress.
func (s *Service) Run(ctx context.Context, token *oauth2.Token) (*RunResult, error) {
	s.mu.Lock()
	if s.currentRun != nil && s.currentRun.Status == "running" {
		s.mu.Unlock()
		return nil, fmt.Errorf("verification already in progress")
	}

	result := &RunResult{
		ID:        uuid.New().String(),
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.currentRun = result
	s.cancelRun = cancel
	snapshot := *result
	s.mu.Unlock()

	go s.runBatch(runCtx, result, token)

	return &snapshot, nil
}

// Status returns a copy of the current or most recent run result, or nil if
// no run has started.
func (s *Service) Status() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRun == nil {
		return nil
	}
	snapshot := *s.currentRun
	return &snapshot
}

// Cancel stops the active run, if any. The run finishes the song in flight
// and stops before the next one.
func (s *Service) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRun == nil || s.currentRun.Status != "running" || s.cancelRun == nil {
		return false
	}
	s.cancelRun()
	return true
}

func (s *Service) runBatch(ctx context.Context, result *RunResult, token *oauth2.Token) {
	defer func() {
		s.mu.Lock()
		now := time.Now().UTC()
		result.CompletedAt = &now
		if result.Status == "running" {
			result.Status = "completed"
		}
		s.cancelRun = nil
		s.mu.Unlock()
	}()

	songs, err := s.songs.List(ctx)
	if err != nil {
		s.logger.Error("failed to list songs for verification", slog.Any("error", err))
		s.mu.Lock()
		result.Status = "failed"
		result.Error = err.Error()
		s.mu.Unlock()
		return
	}

	onProgress := func(p Progress) {
		s.mu.Lock()
		result.Progress = p
		s.mu.Unlock()
	}

	updated, summary, err := s.orchestrator.VerifyBatch(ctx, songs, token, onProgress)

	// Persist whatever was processed, canceled runs included.
	if perr := s.songs.UpdateBatch(context.WithoutCancel(ctx), updated); perr != nil {
		s.logger.Error("failed to persist verification results", slog.Any("error", perr))
		s.mu.Lock()
		result.Status = "failed"
		result.Error = perr.Error()
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	result.Summary = &summary
	var canceled *CanceledError
	switch {
	case errors.As(err, &canceled):
		result.Status = "canceled"
		result.Error = canceled.Error()
	case err != nil:
		result.Status = "failed"
		result.Error = err.Error()
	}

	s.logger.Info("verification run finished",
		slog.String("run", result.ID),
		slog.String("status", result.Status),
		slog.Int("verified", summary.Verified),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped))
}
