package controller

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/sirupsen/logrus"
)

func startController(t *testing.T, ttl time.Duration) (*Controller, <-chan State) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := New(ttl, log)
	states := make(chan State, 16)
	c.OnChange(func(s State) { states <- s })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c, states
}

func next(t *testing.T, states <-chan State) State {
	t.Helper()
	select {
	case s := <-states:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state")
		return State{}
	}
}

func TestInitialStateIsConnecting(t *testing.T) {
	c := New(time.Second, logrus.New())
	if c.State().Status != StatusConnecting {
		t.Fatalf("unexpected status %q", c.State().Status)
	}
	if got := c.View("").Message; got != "Connecting to Database..." {
		t.Fatalf("unexpected status text %q", got)
	}
}

func TestReplaceAllSwapsCache(t *testing.T) {
	c, states := startController(t, time.Second)
	first := []models.StudentRecord{{StudentID: "a", Fee: 100, Paid: 40, Remaining: 60}}
	c.ReplaceAll(first)
	s := next(t, states)
	if s.Status != StatusLive || len(s.Records) != 1 {
		t.Fatalf("unexpected state %+v", s)
	}

	second := []models.StudentRecord{{StudentID: "b"}, {StudentID: "c"}}
	c.ReplaceAll(second)
	s = next(t, states)
	if len(s.Records) != 2 || s.Records[0].StudentID != "b" {
		t.Fatalf("cache not replaced: %+v", s.Records)
	}
	if len(c.Records()) != 2 {
		t.Fatalf("Records() not updated: %d", len(c.Records()))
	}
	if len(first) != 1 || first[0].StudentID != "a" {
		t.Fatal("previous snapshot was mutated")
	}
}

func TestFailKeepsLastKnownRecords(t *testing.T) {
	c, states := startController(t, time.Second)
	c.ReplaceAll([]models.StudentRecord{{StudentID: "a"}})
	next(t, states)

	c.Fail(errors.New("permission denied"))
	s := next(t, states)
	if s.Status != StatusError || len(s.Records) != 1 {
		t.Fatalf("unexpected state after failure %+v", s)
	}
	if s.Notice == nil || s.Notice.Kind != NoticeError {
		t.Fatalf("expected error notice, got %+v", s.Notice)
	}
	if got := Render(s, "").Message; got != "Connection Error." {
		t.Fatalf("unexpected status text %q", got)
	}
}

func TestNoticeAutoDismisses(t *testing.T) {
	c, states := startController(t, 50*time.Millisecond)
	c.Notify(NoticeOK, "Form cleared.")
	s := next(t, states)
	if s.Notice == nil || s.Notice.Text != "Form cleared." {
		t.Fatalf("expected notice, got %+v", s.Notice)
	}
	s = next(t, states)
	if s.Notice != nil {
		t.Fatalf("expected notice to be dismissed, got %+v", s.Notice)
	}
}

func TestNewerNoticeReplacesAndRestartsTimer(t *testing.T) {
	c, states := startController(t, 150*time.Millisecond)
	c.Notify(NoticeOK, "first")
	next(t, states)
	time.Sleep(100 * time.Millisecond)
	c.Notify(NoticeError, "second")
	s := next(t, states)
	if s.Notice == nil || s.Notice.Text != "second" {
		t.Fatalf("expected replacement notice, got %+v", s.Notice)
	}
	// the first timer would have fired ~50ms from now; the replacement must still be visible
	time.Sleep(75 * time.Millisecond)
	if n := c.State().Notice; n == nil || n.Text != "second" {
		t.Fatalf("replacement dismissed early: %+v", n)
	}
	s = next(t, states)
	if s.Notice != nil {
		t.Fatalf("expected dismissal, got %+v", s.Notice)
	}
}

func TestViewFiltersButKeepsTotals(t *testing.T) {
	c, states := startController(t, time.Second)
	c.ReplaceAll([]models.StudentRecord{
		{StudentName: "Jane", StudentID: "1", Fee: 100, Paid: 40, Remaining: 60},
		{StudentName: "Omar", StudentID: "2", Fee: 50, Paid: 50, Remaining: 0},
	})
	next(t, states)
	v := c.View("omar")
	if len(v.Rows) != 1 || v.Stats.Count != 2 || v.Labels["totalRemaining"] != "$60.00" {
		t.Fatalf("unexpected view %+v", v)
	}
}
