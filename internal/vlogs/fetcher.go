package vlogs

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Fetcher tracks in-flight requests of one view. Starting a request cancels
// every request still running unless the caller asks to keep them, so
// concurrent requests such as the two stream context directions can coexist.
type Fetcher struct {
	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	records  []Record
	err      string
}

// NewFetcher creates an idle fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{inflight: map[string]context.CancelFunc{}}
}

// Begin registers a new request and returns its id and context. The error
// state is cleared.
func (f *Fetcher) Begin(preventAbortPrevious bool) (string, context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !preventAbortPrevious {
		f.cancelAllLocked()
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	f.inflight[id] = cancel
	f.err = ""
	return id, ctx
}

// Finish completes request id. Cancellation is swallowed and leaves the state
// untouched. Any other error is recorded and clears the results. It reports
// whether records were stored.
func (f *Fetcher) Finish(id string, records []Record, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cancel, ok := f.inflight[id]; ok {
		cancel()
		delete(f.inflight, id)
	}

	switch {
	case err == nil:
		f.records = records
		return true
	case errors.Is(err, context.Canceled):
		return false
	default:
		f.err = err.Error()
		f.records = nil
		return false
	}
}

// Loading reports whether any request is in flight
func (f *Fetcher) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inflight) > 0
}

// Records returns the results of the last successful request
func (f *Fetcher) Records() []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records
}

// Err returns the user visible error of the last failed request
func (f *Fetcher) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Reset drops results and the error
func (f *Fetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
	f.err = ""
}

// Close aborts every in-flight request
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelAllLocked()
}

func (f *Fetcher) cancelAllLocked() {
	for id, cancel := range f.inflight {
		cancel()
		delete(f.inflight, id)
	}
}
