package actorutil

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// BackgroundTask runs a blocking function outside of the actor goroutine and
// delivers the outcome to an actor as a plain message.
type BackgroundTask[T any] struct {
	root    *actor.RootContext
	fn      func() (T, error)
	timeout time.Duration
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (T, error)) *BackgroundTask[T] {
	return &BackgroundTask[T]{
		root: ctx.ActorSystem().Root,
		fn:   fn,
	}
}

// WithTimeout fails the task with a timeout error once d has elapsed.
func (t *BackgroundTask[T]) WithTimeout(d time.Duration) *BackgroundTask[T] {
	t.timeout = d
	return t
}

// Recover turns a failure into a message. Without it failures are dropped.
func (t *BackgroundTask[T]) Recover(fn func(error) T) *BackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo starts the task and returns immediately.
func (t *BackgroundTask[T]) PipeTo(pid *actor.PID) {
	go func() {
		value, err := t.Run()
		if err != nil {
			if t.recover == nil {
				return
			}
			value = t.recover(err)
		}
		t.root.Send(pid, value)
	}()
}

// Run executes the task on the calling goroutine.
func (t *BackgroundTask[T]) Run() (T, error) {
	task := io.Eval(t.fn)
	if t.timeout > 0 {
		task = io.WithTimeout[T](t.timeout)(task)
	}
	result := io.RunSync(task)
	return result.Value, result.Error
}
