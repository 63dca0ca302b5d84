package views

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Poller calls tick on a fixed interval until tick returns false, Stop is
// called, or the parent context ends. At most one loop runs at a time.
type Poller struct {
	interval time.Duration
	tick     func(ctx context.Context) bool

	mu      sync.Mutex
	running atomic.Bool
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPoller(interval time.Duration, tick func(ctx context.Context) bool) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{interval: interval, tick: tick}
}

// Start launches the loop. It reports false when a loop is already running.
func (p *Poller) Start(parent context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	p.gen++
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running.Store(true)

	go p.run(ctx, p.gen, p.done)
	return true
}

func (p *Poller) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer p.finish(gen)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.tick(ctx) {
				return
			}
		}
	}
}

func (p *Poller) finish(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen == gen {
		p.running.Store(false)
		p.cancel()
	}
}

// Stop cancels the loop and waits for it to exit. It must not be called
// from inside tick.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a loop is active.
func (p *Poller) Running() bool {
	return p.running.Load()
}
