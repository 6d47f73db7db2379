// Package store connects the application to the student collection: it appends
// new records and keeps subscribers supplied with the full, ordered record set.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/sirupsen/logrus"
)

// Collection is an append-only student collection that lists records newest first.
type Collection interface {
	Add(ctx context.Context, rec models.StudentRecord) error
	List(ctx context.Context) ([]models.StudentRecord, error)
}

// Feed signals that the collection changed. A value on changes means "re-read
// everything"; a value on errs means the feed is unhealthy. Both channels close
// when ctx is done.
type Feed interface {
	Watch(ctx context.Context) (changes <-chan struct{}, errs <-chan error)
}

// Adapter pushes records to a Collection and turns Feed signals into full snapshots.
type Adapter struct {
	coll Collection
	feed Feed
	log  *logrus.Logger
}

// NewAdapter initializes a new adapter
func NewAdapter(coll Collection, feed Feed, log *logrus.Logger) *Adapter {
	return &Adapter{coll: coll, feed: feed, log: log}
}

// Submit appends rec without validating it. Failures are wrapped in
// models.ErrPersistence and are not retried.
func (a *Adapter) Submit(ctx context.Context, rec models.StudentRecord) error {
	if err := a.coll.Add(ctx, rec); err != nil {
		a.log.WithError(err).WithField("student_id", rec.StudentID).Error("Failed to add student")
		return fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	a.log.WithField("student_id", rec.StudentID).Debug("Student added")
	return nil
}

// Subscribe delivers the current record set to onChange, then the whole set again
// after every change. Feed and query failures go to onError wrapped in
// models.ErrSubscription. Callbacks run on one goroutine, never concurrently.
//
// The returned function tears the subscription down; once it returns no callback
// is running or will run. It must not be called from inside a callback.
func (a *Adapter) Subscribe(ctx context.Context, onChange func([]models.StudentRecord), onError func(error)) (unsubscribe func()) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	changes, errs := a.feed.Watch(ctx)
	go func() {
		defer close(sub.done)
		a.sync(ctx, sub, onChange, onError)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				a.sync(ctx, sub, onChange, onError)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				a.log.WithError(err).Warn("Student feed error")
				sub.deliver(func() { onError(fmt.Errorf("%w: %w", models.ErrSubscription, err)) })
			}
		}
	}()

	return sub.stop
}

func (a *Adapter) sync(ctx context.Context, sub *subscription, onChange func([]models.StudentRecord), onError func(error)) {
	records, err := a.coll.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.log.WithError(err).Error("Failed to list students")
		sub.deliver(func() { onError(fmt.Errorf("%w: %w", models.ErrSubscription, err)) })
		return
	}
	sub.deliver(func() { onChange(records) })
}

type subscription struct {
	mu      sync.Mutex
	stopped bool
	once    sync.Once
	cancel  context.CancelFunc
	done    chan struct{}
}

func (s *subscription) deliver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	fn()
}

func (s *subscription) stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cancel()
		<-s.done
	})
}
