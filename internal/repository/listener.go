package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Listener turns Postgres NOTIFY messages on ChangeChannel into change signals.
// Reconnection is handled by pq.Listener itself.
type Listener struct {
	dsn          string
	minReconnect time.Duration
	maxReconnect time.Duration
	log          *logrus.Logger
}

// NewListener creates a listener for the given connection string
func NewListener(dsn string, log *logrus.Logger) *Listener {
	return &Listener{
		dsn:          dsn,
		minReconnect: 2 * time.Second,
		maxReconnect: time.Minute,
		log:          log,
	}
}

// Watch opens a dedicated LISTEN connection that lives until ctx is done.
func (l *Listener) Watch(ctx context.Context) (<-chan struct{}, <-chan error) {
	changes := make(chan struct{}, 1)
	errs := make(chan error, 1)

	// pq may fire events after Close returns, so sends and the final close share a lock.
	var (
		mu     sync.Mutex
		closed bool
	)
	report := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case errs <- err:
		default:
		}
	}

	pl := pq.NewListener(l.dsn, l.minReconnect, l.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			if err != nil {
				report(fmt.Errorf("listener connection: %w", err))
			}
		case pq.ListenerEventReconnected:
			l.log.Info("Student feed reconnected")
		}
	})

	go func() {
		defer close(changes)
		defer func() {
			mu.Lock()
			closed = true
			close(errs)
			mu.Unlock()
		}()
		defer pl.Close()

		if err := pl.Listen(ChangeChannel); err != nil {
			report(fmt.Errorf("failed to listen on %s: %w", ChangeChannel, err))
		}

		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-pl.Notify:
				// n is nil after a reconnect; anything may have changed meanwhile.
				if n != nil {
					l.log.WithField("op", n.Extra).Debug("Student change notification")
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case <-ping.C:
				if err := pl.Ping(); err != nil {
					l.log.WithError(err).Warn("Student feed ping failed")
				}
			}
		}
	}()

	return changes, errs
}
