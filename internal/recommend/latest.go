package recommend

import (
	"context"
	"sync"
)

// Recommender is what Latest needs from a Service.
type Recommender interface {
	Recommend(ctx context.Context, query string) (Result, error)
}

// Latest runs recommendations for a single interactive caller, where each new
// query supersedes the one before it. Submitting cancels the in-flight call and
// guarantees its eventual result, success or failure, is never delivered.
//
// The zero value is not usable; create one with NewLatest.
type Latest struct {
	svc Recommender

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLatest wraps a Recommender.
func NewLatest(svc Recommender) *Latest {
	return &Latest{svc: svc}
}

// Submit starts a recommendation in a new goroutine and returns immediately.
// deliver is called at most once, and only if no later Submit or Cancel has
// happened by the time the call finishes. deliver runs while Latest holds its
// lock, so it must not call Submit or Cancel itself.
func (l *Latest) Submit(ctx context.Context, query string, deliver func(Result, error)) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	callCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer cancel()
		res, err := l.svc.Recommend(callCtx, query)

		l.mu.Lock()
		defer l.mu.Unlock()
		if seq != l.seq {
			return // superseded
		}
		l.cancel = nil
		deliver(res, err)
	}()
}

// Cancel abandons the in-flight call, if any. Its result is dropped.
func (l *Latest) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
}

// Wait blocks until every submitted call has returned and, for the newest
// one, its delivery has run. Superseded calls were cancelled and finish fast.
func (l *Latest) Wait() {
	l.wg.Wait()
}
