package actor

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/require"
)

// parentRecorder spawns the actor under test as its child and records what the child sends to its parent.
type parentRecorder struct {
	childProps *actor.Props
	childCh    chan *actor.PID
	received   chan any
}

func newParentRecorder(childProps *actor.Props) *parentRecorder {
	return &parentRecorder{
		childProps: childProps,
		childCh:    make(chan *actor.PID, 1),
		received:   make(chan any, 64),
	}
}

func (p *parentRecorder) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		p.childCh <- ctx.Spawn(p.childProps)
	case domain.TelemetrySample, ParsedCommand:
		p.received <- msg
	}
}

func (p *parentRecorder) child(t *testing.T) *actor.PID {
	select {
	case pid := <-p.childCh:
		return pid
	case <-time.After(2 * time.Second):
		require.FailNow(t, "child not spawned")
		return nil
	}
}

func (p *parentRecorder) next(t *testing.T, timeout time.Duration) any {
	select {
	case msg := <-p.received:
		return msg
	case <-time.After(timeout):
		require.FailNow(t, "no message received")
		return nil
	}
}

func (p *parentRecorder) assertSilent(t *testing.T, d time.Duration) {
	select {
	case msg := <-p.received:
		require.FailNowf(t, "unexpected message", "%+v", msg)
	case <-time.After(d):
	}
}

func healthCheck(ctx *actor.RootContext, pid *actor.PID) (*domain.ActorHealthResponse, error) {
	resp, err := ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		return nil, err
	}
	hcr, ok := resp.(domain.ActorHealthResponse)
	if !ok {
		return nil, errors.New("unexpected response type")
	}
	return &hcr, nil
}

func waitHealthy(t *testing.T, ctx *actor.RootContext, pid *actor.PID) {
	require.Eventually(t, func() bool {
		hcr, err := healthCheck(ctx, pid)
		return err == nil && hcr.Healthy
	}, 5*time.Second, 50*time.Millisecond)
}

func freePort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
