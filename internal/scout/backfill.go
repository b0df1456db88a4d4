package scout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBackfillRunning is returned when a user already has a backfill job.
var ErrBackfillRunning = fmt.Errorf("backfill already running")

// BackfillManager runs full-history fetches in the background, one job per
// user at a time. The web UI polls fetch status while a job runs.
type BackfillManager struct {
	svc    *Service
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]string // userID -> job ID
}

// NewBackfillManager returns a manager whose jobs stop when Shutdown is called.
func NewBackfillManager(svc *Service) *BackfillManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackfillManager{
		svc:     svc,
		ctx:     ctx,
		cancel:  cancel,
		running: map[string]string{},
	}
}

// Start launches a backfill for the user and returns the job ID. Only one
// job per user may run at a time.
func (b *BackfillManager) Start(userID string) (string, error) {
	b.mu.Lock()
	if jobID, ok := b.running[userID]; ok {
		b.mu.Unlock()
		return jobID, ErrBackfillRunning
	}
	jobID := uuid.NewString()
	b.running[userID] = jobID
	b.mu.Unlock()

	b.setStatus(FetchStatus{UserID: userID, State: FetchStateRunning})

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			b.mu.Lock()
			delete(b.running, userID)
			b.mu.Unlock()
		}()
		b.run(userID)
	}()
	return jobID, nil
}

func (b *BackfillManager) run(userID string) {
	progress := func(pages, newMatches int) {
		b.setStatus(FetchStatus{
			UserID:       userID,
			State:        FetchStateRunning,
			PagesFetched: pages,
			MatchCount:   newMatches,
		})
	}
	added, err := b.svc.fetch(b.ctx, userID, b.svc.maxPages, progress)
	if err != nil {
		b.svc.logger.Printf("[%s] backfill failed: %v", userID, err)
		b.setStatus(FetchStatus{UserID: userID, State: FetchStateError, Error: err.Error()})
		return
	}
	total := 0
	if matches, err := b.svc.repo.LoadMatches(userID); err == nil {
		total = len(matches)
	}
	b.svc.logger.Printf("[%s] backfill complete: %d new matches, %d total", userID, added, total)
	b.setStatus(FetchStatus{UserID: userID, State: FetchStateComplete, MatchCount: total})
}

func (b *BackfillManager) setStatus(st FetchStatus) {
	st.UpdatedAt = time.Now().UTC()
	if err := b.svc.repo.SaveFetchStatus(st); err != nil {
		b.svc.logger.Printf("[%s] save fetch status: %v", st.UserID, err)
	}
}

// Running reports whether the user has an active job.
func (b *BackfillManager) Running(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.running[userID]
	return ok
}

// Shutdown cancels running jobs and waits for them to finish.
func (b *BackfillManager) Shutdown() {
	b.cancel()
	b.wg.Wait()
}
