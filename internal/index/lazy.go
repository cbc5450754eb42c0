package index

import (
	"context"
	"sync"
	"sync/atomic"
)

// Lazy builds the index on first use and hands the same result to every caller.
type Lazy struct {
	once  sync.Once
	build func(context.Context) (*Index, error)
	idx   *Index
	err   error
	done  atomic.Bool
}

func NewLazy(build func(context.Context) (*Index, error)) *Lazy {
	return &Lazy{build: build}
}

// Get returns the built index, building it at most once per process.
// A failed build is not retried.
func (l *Lazy) Get(ctx context.Context) (*Index, error) {
	l.once.Do(func() {
		// the build outlives the request that triggered it
		l.idx, l.err = l.build(context.WithoutCancel(ctx))
		l.done.Store(true)
	})
	return l.idx, l.err
}

// Ready reports whether a build has finished, successfully or not.
func (l *Lazy) Ready() bool { return l.done.Load() }
