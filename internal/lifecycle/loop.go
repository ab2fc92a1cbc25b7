package lifecycle

import "context"

type job struct {
	fn   func(*Coordinator)
	done chan struct{}
}

// Loop owns a Coordinator on a single goroutine. Every command, whatever
// surface it comes from, is submitted through it and executed in order.
type Loop struct {
	coord   *Coordinator
	jobs    chan job
	stopped chan struct{}
}

// NewLoop creates a loop for c. Call Run to start it.
func NewLoop(c *Coordinator) *Loop {
	return &Loop{
		coord:   c,
		jobs:    make(chan job),
		stopped: make(chan struct{}),
	}
}

// Run executes submitted jobs until ctx is cancelled. It blocks and must be
// called at most once.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-l.jobs:
			j.fn(l.coord)
			close(j.done)
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}

// Do runs fn on the loop goroutine and waits for it to finish. It returns
// ErrLoopStopped once Run has returned. Before Run starts, Do waits.
func (l *Loop) Do(ctx context.Context, fn func(*Coordinator)) error {
	select {
	case <-l.stopped:
		return ErrLoopStopped
	default:
	}

	j := job{fn: fn, done: make(chan struct{})}
	select {
	case l.jobs <- j:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// A job that was accepted always runs to completion.
	<-j.done
	return nil
}

// Submit executes a command on the loop.
func (l *Loop) Submit(ctx context.Context, req Request) (Result, error) {
	var (
		res Result
		err error
	)
	if derr := l.Do(ctx, func(c *Coordinator) {
		res, err = c.Control(req)
	}); derr != nil {
		return Result{Command: req.Command}, derr
	}
	return res, err
}

// Status returns a coordinator snapshot taken on the loop.
func (l *Loop) Status(ctx context.Context) (Status, error) {
	var st Status
	err := l.Do(ctx, func(c *Coordinator) {
		st = c.Status()
	})
	return st, err
}
