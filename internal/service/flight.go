package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// flightGroup collapses concurrent calls for the same key into one run.
// The run does not inherit any caller's cancellation: it lives while at
// least one caller still waits for it, and each caller gives up on its
// own context alone.
type flightGroup struct {
	mu      sync.Mutex
	group   singleflight.Group
	flights map[string]*flight
	seq     uint64
}

type flight struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Do runs fn once per in-flight key. shared reports whether the result
// went to more than one caller.
func (g *flightGroup) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (v any, shared bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	f := g.join(ctx, key)
	defer g.leave(key, f)

	ch := g.group.DoChan(f.key, func() (any, error) {
		return fn(f.ctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (g *flightGroup) join(ctx context.Context, key string) *flight {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.flights == nil {
		g.flights = make(map[string]*flight)
	}
	f, ok := g.flights[key]
	if !ok {
		g.seq++
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{key: fmt.Sprintf("%s#%d", key, g.seq), ctx: runCtx, cancel: cancel}
		g.flights[key] = f
	}
	f.waiters++
	return f
}

// leave cancels the run once nobody waits for it any more.
func (g *flightGroup) leave(key string, f *flight) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if g.flights[key] == f {
		delete(g.flights, key)
	}
}

func (g *flightGroup) waiting(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.flights[key]; ok {
		return f.waiters
	}
	return 0
}

// newWorkDir creates a request-scoped scratch directory under base.
func newWorkDir(base string) (string, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}
	dir := filepath.Join(base, "gifgrab-"+uuid.New().String())
	if err := os.Mkdir(dir, 0700); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	return dir, nil
}
