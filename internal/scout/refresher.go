package scout

import (
	"context"
	"log"
	"sync"
	"time"
)

const defaultRefreshPages = 10

// Refresher periodically refreshes match history for the configured users
// plus everyone already in the store.
type Refresher struct {
	svc      *Service
	users    []string
	interval time.Duration
	workers  int
	pages    int
	logger   *log.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// RefresherOption configures the refresher.
type RefresherOption func(*Refresher)

// WithRefreshPages sets how many history pages each refresh may fetch.
func WithRefreshPages(n int) RefresherOption {
	return func(r *Refresher) {
		if n > 0 {
			r.pages = n
		}
	}
}

// NewRefresher returns a refresher that wakes every interval and refreshes
// users with up to workers concurrent fetches.
func NewRefresher(svc *Service, users []string, interval time.Duration, workers int, logger *log.Logger, opts ...RefresherOption) *Refresher {
	if workers <= 0 {
		workers = 3
	}
	r := &Refresher{
		svc:      svc,
		users:    users,
		interval: interval,
		workers:  workers,
		pages:    defaultRefreshPages,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start runs the refresh loop. Returns when ctx is cancelled or Stop is
// called. An interval of 0 disables periodic refreshes entirely.
func (r *Refresher) Start(ctx context.Context) {
	defer close(r.doneCh)
	if r.interval <= 0 {
		<-r.stopCh
		return
	}
	r.RefreshAll(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// Stop signals the refresher to stop. Call after cancelling the context
// passed to Start.
func (r *Refresher) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// RefreshAll refreshes every tracked user through a bounded worker pool.
func (r *Refresher) RefreshAll(ctx context.Context) {
	users := r.trackedUsers()
	if len(users) == 0 {
		return
	}
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range jobs {
				if _, err := r.svc.Refresh(ctx, userID, r.pages); err != nil {
					r.logger.Printf("[%s] refresh failed: %v", userID, err)
				}
			}
		}()
	}
	for _, u := range users {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- u:
		}
	}
	close(jobs)
	wg.Wait()
}

// trackedUsers unions the configured users with everyone in the store.
func (r *Refresher) trackedUsers() []string {
	seen := map[string]bool{}
	var out []string
	for _, u := range r.users {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	stored, err := r.svc.Users()
	if err != nil {
		r.logger.Printf("list users: %v", err)
		return out
	}
	for _, u := range stored {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
