package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestAdd(t *testing.T) {
	s := New(context.Background(), nil)
	noop := func(context.Context) error { return nil }

	if err := s.Add("recurring", "0 0 6 * * *", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("recurring", "0 0 7 * * *", noop); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("duplicate Add error = %v", err)
	}
	if err := s.Add("sync", "0 0 6 * *", noop); err == nil {
		t.Error("five-field spec should be rejected")
	}
	if err := s.Add("sync", "not a spec", noop); err == nil {
		t.Error("garbage spec should be rejected")
	}
}

func TestRunNow(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")
	s := New(ctx, nil)

	var seen string
	boom := errors.New("boom")
	_ = s.Add("ok", "@every 1h", func(ctx context.Context) error {
		seen, _ = ctx.Value(key{}).(string)
		return nil
	})
	_ = s.Add("fail", "@every 1h", func(context.Context) error { return boom })

	if err := s.RunNow("ok"); err != nil {
		t.Fatalf("RunNow(ok): %v", err)
	}
	if seen != "marker" {
		t.Errorf("job did not receive scheduler context, got %q", seen)
	}
	if err := s.RunNow("fail"); !errors.Is(err, boom) {
		t.Errorf("RunNow(fail) = %v, want boom", err)
	}
	if err := s.RunNow("missing"); err == nil {
		t.Error("RunNow on unknown job should fail")
	}
}

func TestStartRunsJobs(t *testing.T) {
	s := New(context.Background(), nil)
	var runs atomic.Int32
	fired := make(chan struct{}, 1)
	if err := s.Add("tick", "* * * * * *", func(context.Context) error {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if !s.Next("tick").IsZero() {
		t.Error("Next should be zero before Start")
	}
	s.Start()
	if s.Next("tick").IsZero() {
		t.Error("Next should be scheduled after Start")
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire within 3s")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if runs.Load() < 1 {
		t.Errorf("runs = %d", runs.Load())
	}
}

func TestStopWaitsForRunningJob(t *testing.T) {
	s := New(context.Background(), nil)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	_ = s.Add("slow", "* * * * * *", func(context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop with running job = %v, want deadline exceeded", err)
	}
	close(release)
}
