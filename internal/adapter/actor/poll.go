package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/gridtie/mqtt2soyo/internal/core/port"
	"github.com/gridtie/mqtt2soyo/internal/metrics"
	"github.com/gridtie/mqtt2soyo/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollActor reads the primary channel from a port.TelemetrySource on a fixed
// interval and forwards every reading to its parent as a TelemetrySample.
type PollActor struct {
	behavior     actor.Behavior
	stash        *actorutil.Stash
	scheduler    *scheduler.TimerScheduler
	cancelTicker scheduler.CancelFunc
	source       port.TelemetrySource
	interval     time.Duration
	timeout      time.Duration
	metrics      *metrics.Metrics
	lastErr      error
	logger       *zap.Logger
}

type pollTick struct {
}

type pollResult struct {
	value int
	at    time.Time
	err   error
}

func NewPollActor(source port.TelemetrySource, interval, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *PollActor {
	act := &PollActor{
		source:   source,
		interval: interval,
		timeout:  timeout,
		metrics:  m,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_POLL, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *PollActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poll@idle started", zap.Duration("interval", state.interval))
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.cancelTicker = state.scheduler.RequestRepeatedly(0, state.interval, ctx.Self(), pollTick{})
	case domain.ActorHealthRequest:
		state.logger.Debug("poll@idle ActorHealthRequest")
		ctx.Respond(state.health("idle"))
	case pollTick:
		state.logger.Debug("poll@idle tick")
		state.poll(ctx)
		state.behavior.BecomeStacked(state.PollingReceive)
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("poll@idle recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PollActor) PollingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case pollResult:
		state.lastErr = msg.err
		if msg.err != nil {
			state.logger.Error("poll@polling could not read power", zap.Error(msg.err))
			if state.metrics != nil {
				state.metrics.PollFailed()
			}
		} else {
			state.logger.Debug("poll@polling power read", zap.Int("value", msg.value))
			ctx.Send(ctx.Parent(), domain.TelemetrySample{
				Channel: domain.CHANNEL_POWER,
				Value:   msg.value,
				At:      msg.at,
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case pollTick:
		// the running poll supersedes this one
		state.logger.Debug("poll@polling tick skipped")
	case domain.ActorHealthRequest:
		ctx.Respond(state.health("polling"))
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("poll@polling stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollActor) poll(ctx actor.Context) {
	self := ctx.Self()
	source := state.source
	timeout := state.timeout
	task := actorutil.NewBackgroundTask(ctx, func() (pollResult, error) {
		c, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		value, err := source.ReadPower(c)
		if err != nil {
			return pollResult{}, err
		}
		return pollResult{value: value, at: time.Now()}, nil
	}).Recover(func(err error) pollResult {
		return pollResult{err: err}
	}).WithTimeout(timeout + 500*time.Millisecond)
	task.PipeTo(self)
}

func (state *PollActor) health(name string) domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_POLL,
		Healthy: state.lastErr == nil,
		State:   name,
	}
}

func (state *PollActor) stop() {
	if state.cancelTicker != nil {
		state.cancelTicker()
		state.cancelTicker = nil
	}
	if state.source != nil {
		state.source.Close()
	}
}
