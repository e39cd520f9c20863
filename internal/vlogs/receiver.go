package vlogs

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Receiver streams live-tailed records to a channel
type Receiver struct {
	client     *Client
	query      string
	params     map[string]string
	records    chan Record
	ctx        context.Context
	cancelFunc context.CancelFunc
	logger     *zap.Logger

	mu  sync.Mutex
	err error
}

// NewReceiver creates a live tail receiver for query
func NewReceiver(client *Client, query string, params map[string]string) *Receiver {
	ctx, cancel := context.WithCancel(context.Background())

	return &Receiver{
		client:     client,
		query:      query,
		params:     params,
		records:    make(chan Record, 100),
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     client.logger.Named("tail"),
	}
}

// Start begins streaming. The records channel is closed when the stream ends.
func (r *Receiver) Start() {
	go func() {
		defer close(r.records)

		onLine := func(line string) error {
			rec, err := ParseRecord([]byte(line))
			if err != nil {
				r.logger.Warn("dropping malformed tail line", zap.Error(err))
				return nil
			}
			select {
			case r.records <- rec:
			case <-r.ctx.Done():
				return r.ctx.Err()
			}
			return nil
		}

		err := r.client.Tail(r.ctx, r.query, r.params, onLine)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("tail stopped", zap.String("query", r.query), zap.Error(err))
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
		}
	}()
}

// Stop cancels the stream
func (r *Receiver) Stop() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
}

// Records returns the channel of tailed records
func (r *Receiver) Records() <-chan Record {
	return r.records
}

// Err returns the error that ended the stream, if any. Cancellation is not an error.
func (r *Receiver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
