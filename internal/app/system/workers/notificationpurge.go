// internal/app/system/workers/notificationpurge.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NotificationPurger deletes notifications created before a cutoff.
type NotificationPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationPurge is a background worker that removes notifications
// older than the retention window.
type NotificationPurge struct {
	store     NotificationPurger
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewNotificationPurge creates a new purge worker.
//
// Parameters:
//   - store: the notifications store
//   - logger: zap logger for logging
//   - interval: how often to run the purge (e.g., 1 hour)
//   - retention: how long a notification is kept (e.g., 30 days)
func NewNotificationPurge(store NotificationPurger, logger *zap.Logger, interval, retention time.Duration) *NotificationPurge {
	return &NotificationPurge{
		store:     store,
		log:       logger,
		interval:  interval,
		retention: retention,
		timeout:   30 * time.Second,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background purge loop.
func (w *NotificationPurge) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("notification purge worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call twice.
func (w *NotificationPurge) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("notification purge worker stopped")
}

func (w *NotificationPurge) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Purge()
		}
	}
}

// Purge runs one purge pass and returns the number of notifications removed.
func (w *NotificationPurge) Purge() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	cutoff := w.now().UTC().Add(-w.retention)
	count, err := w.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.log.Error("failed to purge notifications", zap.Error(err))
		return 0
	}
	if count > 0 {
		w.log.Info("purged notifications", zap.Int64("count", count), zap.Time("cutoff", cutoff))
	}
	return count
}
