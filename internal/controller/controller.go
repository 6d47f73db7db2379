// Package controller owns the local copy of the student collection, the
// connection status and the message shown to the user.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/Dan9191/fee-registry/internal/render"
	"github.com/sirupsen/logrus"
)

// Status describes the health of the live record feed.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusLive       Status = "live"
	StatusError      Status = "error"
)

// StatusText is the placeholder row shown while the feed is not live.
func (s Status) StatusText() string {
	switch s {
	case StatusConnecting:
		return "Connecting to Database..."
	case StatusError:
		return "Connection Error."
	}
	return ""
}

// NoticeKind distinguishes confirmations from failures.
type NoticeKind string

const (
	NoticeOK    NoticeKind = "ok"
	NoticeError NoticeKind = "err"
)

// Notice is a transient message for the user.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Text      string     `json:"text"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// State is an immutable snapshot of everything the controller owns.
// Records must not be modified by receivers.
type State struct {
	Records []models.StudentRecord
	Status  Status
	Notice  *Notice
	Version uint64
}

// View is State rendered for one search term.
type View struct {
	Rows    []render.Row      `json:"rows"`
	Stats   render.Stats      `json:"stats"`
	Labels  map[string]string `json:"labels"`
	Search  string            `json:"search"`
	Status  Status            `json:"status"`
	Message string            `json:"statusText,omitempty"`
	Notice  *Notice           `json:"notice,omitempty"`
	Version uint64            `json:"version"`
}

// Controller serializes every state change through a single event loop.
type Controller struct {
	log *logrus.Logger
	ttl time.Duration
	now func() time.Time

	snapshots chan []models.StudentRecord
	failures  chan error
	notices   chan Notice
	done      chan struct{}

	mu        sync.RWMutex
	state     State
	listeners []func(State)
}

// New creates a controller whose notices disappear after ttl.
func New(ttl time.Duration, log *logrus.Logger) *Controller {
	return &Controller{
		log:       log,
		ttl:       ttl,
		now:       time.Now,
		snapshots: make(chan []models.StudentRecord, 1),
		failures:  make(chan error, 1),
		notices:   make(chan Notice, 4),
		done:      make(chan struct{}),
		state:     State{Status: StatusConnecting},
	}
}

// OnChange registers fn to receive every new State. Register before Run.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// ReplaceAll swaps the whole record cache for records.
func (c *Controller) ReplaceAll(records []models.StudentRecord) {
	select {
	case c.snapshots <- records:
	case <-c.done:
	}
}

// Fail marks the feed as broken. Records stay at their last known state.
func (c *Controller) Fail(err error) {
	select {
	case c.failures <- err:
	case <-c.done:
	}
}

// Notify shows a message that replaces any current one and expires after the ttl.
func (c *Controller) Notify(kind NoticeKind, text string) {
	select {
	case c.notices <- Notice{Kind: kind, Text: text}:
	case <-c.done:
	}
}

// Run processes events until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)

	dismiss := time.NewTimer(time.Hour)
	dismiss.Stop()
	defer dismiss.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case records := <-c.snapshots:
			c.update(func(s *State) {
				s.Records = records
				s.Status = StatusLive
			})
			c.log.WithField("records", len(records)).Debug("Record cache replaced")
		case err := <-c.failures:
			c.log.WithError(err).Error("Record feed failed")
			c.update(func(s *State) {
				if s.Status == StatusError {
					return
				}
				s.Status = StatusError
				n := Notice{Kind: NoticeError, Text: "Error loading data.", ExpiresAt: c.now().Add(c.ttl)}
				s.Notice = &n
				resetTimer(dismiss, c.ttl)
			})
		case n := <-c.notices:
			n.ExpiresAt = c.now().Add(c.ttl)
			c.update(func(s *State) { s.Notice = &n })
			resetTimer(dismiss, c.ttl)
		case <-dismiss.C:
			c.update(func(s *State) { s.Notice = nil })
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	next := c.state
	fn(&next)
	next.Version++
	c.state = next
	listeners := c.listeners
	c.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Records returns the current record cache. The slice is shared and read-only.
func (c *Controller) Records() []models.StudentRecord {
	return c.State().Records
}

// View renders the current state for term.
func (c *Controller) View(term string) View {
	return Render(c.State(), term)
}

// Render applies term to s. It does not touch the controller.
func Render(s State, term string) View {
	rows, stats := render.Render(s.Records, term)
	return View{
		Rows:    rows,
		Stats:   stats,
		Labels:  stats.Labels(),
		Search:  term,
		Status:  s.Status,
		Message: s.Status.StatusText(),
		Notice:  s.Notice,
		Version: s.Version,
	}
}
