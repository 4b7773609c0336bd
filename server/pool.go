package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/stackviz/vm"
)

// poolRequest is a unit of work handed to a pool worker.
type poolRequest struct {
	fn   func(*vm.Interpreter) (interface{}, error)
	done chan poolResult
}

// poolResult holds the return value of a pool request.
type poolResult struct {
	value interface{}
	err   error
}

// EvalPool bounds how many programs are evaluated at once. Every request
// runs on one of a fixed set of worker goroutines sharing the interpreter.
type EvalPool struct {
	in       *vm.Interpreter
	requests chan poolRequest
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewEvalPool starts workers goroutines (at least one) serving in.
func NewEvalPool(in *vm.Interpreter, workers int) *EvalPool {
	if workers < 1 {
		workers = 1
	}
	p := &EvalPool{
		in:       in,
		requests: make(chan poolRequest),
		quit:     make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.loop()
	}
	return p
}

func (p *EvalPool) loop() {
	defer p.wg.Done()
	for {
		select {
		case req := <-p.requests:
			req.done <- p.execute(req.fn)
		case <-p.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (p *EvalPool) execute(fn func(*vm.Interpreter) (interface{}, error)) (result poolResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("evaluation panicked: %v", r)
			result = poolResult{err: fmt.Errorf("evaluation panicked: %v", r)}
		}
	}()
	value, err := fn(p.in)
	return poolResult{value: value, err: err}
}

// ErrPoolStopped is returned by Do after Stop.
var ErrPoolStopped = errors.New("evaluation pool stopped")

// Do runs fn on a worker and waits for it. It gives up when ctx is done
// before a worker picks the request up.
func (p *EvalPool) Do(ctx context.Context, fn func(*vm.Interpreter) (interface{}, error)) (interface{}, error) {
	req := poolRequest{fn: fn, done: make(chan poolResult, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolStopped
	}
	result := <-req.done
	return result.value, result.err
}

// Interpreter returns the interpreter the workers share, for read-only
// vocabulary access.
func (p *EvalPool) Interpreter() *vm.Interpreter {
	return p.in
}

// Stop shuts the workers down and waits for in-flight requests.
func (p *EvalPool) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	p.wg.Wait()
}
