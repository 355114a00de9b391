package worker

import (
	"context"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"

	"screen-qr-scan/src/decoder"
	"screen-qr-scan/src/selection"
)

// DecodeFunc runs one region decode. decoder.(*Decoder).DecodeRegion satisfies it.
type DecodeFunc func(ctx context.Context, sel selection.Selection) (decoder.Result, error)

// ResultCallback is invoked on decode completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(res decoder.Result, err error)

// Pool is a fixed-size decode worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs   chan job
	decode DecodeFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type job struct {
	ctx context.Context
	sel selection.Selection
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int, decode DecodeFunc) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1), decode: decode}
	p.start(size)
	return p
}

// FromDecoder adapts a Decoder to the pool's DecodeFunc.
func FromDecoder(d *decoder.Decoder) DecodeFunc {
	return func(ctx context.Context, sel selection.Selection) (decoder.Result, error) {
		return d.DecodeRegion(ctx, sel.Image, sel.Crop)
	}
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Debugf("Worker: decoding session %s crop %s", j.sel.SessionID, j.sel.Crop)
				res, err := p.run(j)
				j.cb(res, err)
			}
		}()
	}
}

func (p *Pool) run(j job) (decoder.Result, error) {
	if err := j.ctx.Err(); err != nil {
		return decoder.NotFound, err
	}
	res, err := p.decode(j.ctx, j.sel)
	// A decode that outlives its deadline counts as a miss even if it found something.
	if ctxErr := j.ctx.Err(); ctxErr != nil {
		return decoder.NotFound, ctxErr
	}
	return res, err
}

// Submit enqueues a decode job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, sel selection.Selection, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, sel: sel, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work. Safe to call more than once.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
