package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultWriteTimeout = 10 * time.Second

// writeQueue owns every Put issued for one user. Snapshots carry a version;
// only the newest pending snapshot is written, so a stale document can never
// land after a newer one and bursts collapse into one write.
type writeQueue struct {
	store     LayoutStore
	userID    string
	timeout   time.Duration
	notifier  Notifier
	telemetry Telemetry
	logger    *zap.Logger

	mu      sync.Mutex
	pending *Document
	queued  uint64
	picked  uint64
	settled uint64
	signal  chan struct{}
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newWriteQueue(store LayoutStore, userID string, timeout time.Duration, notifier Notifier, telemetry Telemetry, logger *zap.Logger) *writeQueue {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	q := &writeQueue{
		store:     store,
		userID:    userID,
		timeout:   timeout,
		notifier:  notifier,
		telemetry: telemetry,
		logger:    logger,
		signal:    make(chan struct{}),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go q.run()
	return q
}

// enqueue schedules doc for writing. Older versions than the pending or
// already picked snapshot are dropped.
func (q *writeQueue) enqueue(doc Document) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if doc.Version <= q.picked || (q.pending != nil && doc.Version <= q.pending.Version) {
		q.mu.Unlock()
		return nil
	}
	q.pending = &doc
	if doc.Version > q.queued {
		q.queued = doc.Version
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

func (q *writeQueue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.wake:
			q.drain()
		case <-q.stop:
			q.drain()
			return
		}
	}
}

func (q *writeQueue) drain() {
	for {
		q.mu.Lock()
		doc := q.pending
		q.pending = nil
		if doc != nil {
			q.picked = doc.Version
		}
		q.mu.Unlock()
		if doc == nil {
			return
		}

		q.write(*doc)

		q.mu.Lock()
		q.settled = doc.Version
		close(q.signal)
		q.signal = make(chan struct{})
		q.mu.Unlock()
	}
}

func (q *writeQueue) write(doc Document) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	err := q.store.Put(ctx, q.userID, doc)
	elapsed := time.Since(start)
	if err != nil {
		perr := &PersistenceError{UserID: q.userID, Version: doc.Version, Err: err}
		q.logger.Error("dashboard write failed",
			zap.String("user_id", q.userID),
			zap.Uint64("version", doc.Version),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		q.telemetry.Record(ctx, EventWriteFailure, map[string]any{
			"user_id": q.userID,
			"version": doc.Version,
			"elapsed": elapsed,
			"error":   err.Error(),
		})
		q.notifier.Notify(ctx, Notification{
			UserID:  q.userID,
			Level:   NotificationError,
			Message: "Could not save dashboard changes",
			Version: doc.Version,
			Err:     perr,
		})
		return
	}
	q.logger.Debug("dashboard saved",
		zap.String("user_id", q.userID),
		zap.Uint64("version", doc.Version),
		zap.Duration("elapsed", elapsed),
	)
	q.telemetry.Record(ctx, EventWriteSuccess, map[string]any{
		"user_id": q.userID,
		"version": doc.Version,
		"elapsed": elapsed,
	})
	q.notifier.Notify(ctx, Notification{
		UserID:  q.userID,
		Level:   NotificationSuccess,
		Message: "Dashboard saved",
		Version: doc.Version,
	})
}

// flush blocks until every snapshot enqueued before the call has settled.
func (q *writeQueue) flush(ctx context.Context) error {
	q.mu.Lock()
	target := q.queued
	for q.settled < target {
		ch := q.signal
		q.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		q.mu.Lock()
	}
	q.mu.Unlock()
	return nil
}

func (q *writeQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.stop)
	<-q.done
}
