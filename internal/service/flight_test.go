package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestFlightGroup_CanceledCallerSkipsRun(t *testing.T) {
	var g flightGroup
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	_, _, err := g.Do(ctx, "k", func(context.Context) (any, error) {
		ran = true
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if ran {
		t.Error("fn should not run for a canceled caller")
	}
}

func TestFlightGroup_AbandonedRunIsNotReused(t *testing.T) {
	var g flightGroup
	var runs atomic.Int32
	started := make(chan struct{})
	stuck := make(chan struct{})
	defer close(stuck)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := g.Do(ctx, "k", func(runCtx context.Context) (any, error) {
			runs.Add(1)
			close(started)
			<-stuck
			return "stale", runCtx.Err()
		})
		done <- err
	}()
	<-started
	cancel()
	<-done

	if n := g.waiting("k"); n != 0 {
		t.Fatalf("waiting = %d after the only caller left", n)
	}

	// The first run is still blocked; a new caller starts its own.
	v, shared, err := g.Do(context.Background(), "k", func(runCtx context.Context) (any, error) {
		runs.Add(1)
		return "fresh", runCtx.Err()
	})
	if err != nil || v != "fresh" || shared {
		t.Errorf("Do() = %v, %v, %v; want fresh, false, nil", v, shared, err)
	}
	if n := runs.Load(); n != 2 {
		t.Errorf("runs = %d, want 2", n)
	}
}

func TestFlightGroup_RunOutlivesFirstCaller(t *testing.T) {
	var g flightGroup
	release := make(chan struct{})
	started := make(chan struct{})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := g.Do(ctxA, "k", func(runCtx context.Context) (any, error) {
			close(started)
			select {
			case <-release:
				return "done", nil
			case <-runCtx.Done():
				return nil, runCtx.Err()
			}
		})
		errA <- err
	}()
	<-started

	resB := make(chan error, 1)
	var valB any
	go func() {
		v, _, err := g.Do(context.Background(), "k", func(context.Context) (any, error) {
			return "second run", nil
		})
		valB = v
		resB <- err
	}()
	waitFor(t, func() bool { return g.waiting("k") == 2 })

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("caller A error = %v", err)
	}

	close(release)
	if err := <-resB; err != nil {
		t.Fatalf("caller B error = %v", err)
	}
	if valB != "done" {
		t.Errorf("caller B value = %v, want the shared result", valB)
	}
}
