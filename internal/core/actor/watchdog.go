package actor

import (
	"fmt"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/config"
	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/gridtie/mqtt2soyo/internal/core/events"
	"github.com/gridtie/mqtt2soyo/internal/core/service"
	"github.com/gridtie/mqtt2soyo/internal/metrics"
	. "github.com/gridtie/mqtt2soyo/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// WatchdogActor forces zero output when the primary channel goes silent.
// It checks telemetry freshness on a steady ticker and, on every tick that
// finds the link stale, writes a burst of zero frames to the serial actor.
type WatchdogActor struct {
	ActorWithStates
	config       config.WatchdogConfig
	scheduler    *scheduler.TimerScheduler
	cancelTicker scheduler.CancelFunc
	serialActor  *actor.PID
	eventStream  *eventstream.EventStream
	metrics      *metrics.Metrics
	watchdog     *service.Watchdog
	now          func() time.Time

	logger *zap.Logger
}

type watchdogTick struct {
}

type burstStep struct {
}

// NewWatchdogActor builds the actor around state. Passing the same state to
// every instance made by a producer keeps the outage count across restarts.
// A nil state is created when the actor starts.
func NewWatchdogActor(config config.WatchdogConfig, state *service.Watchdog, serialActor *actor.PID, eventStream *eventstream.EventStream,
	m *metrics.Metrics, logger *zap.Logger) *WatchdogActor {
	act := &WatchdogActor{
		ActorWithStates: NewActorWithStates(),
		config:          config,
		watchdog:        state,
		serialActor:     serialActor,
		eventStream:     eventStream,
		metrics:         m,
		now:             time.Now,
		logger:          ActorLogger(domain.ACTOR_ID_WATCHDOG, logger),
	}
	act.Become(WDMonitoringState{
		actor: act,
	})
	return act
}

func (state *WatchdogActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Monitoring state

type WDMonitoringState struct {
	actor *WatchdogActor
}

func (state WDMonitoringState) Name() string {
	return "monitoring"
}

func (state WDMonitoringState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		if a.watchdog == nil {
			a.watchdog = service.NewWatchdog(a.config.OutageAfter(), a.config.RecoverWithin(), a.now())
		}
		a.scheduler = scheduler.NewTimerScheduler(ctx)
		a.cancelTicker = a.scheduler.RequestRepeatedly(a.config.GracePeriod(), a.config.TickInterval(), ctx.Self(), watchdogTick{})
		a.logger.Debug("watchdog@monitoring started", zap.Duration("grace", a.config.GracePeriod()),
			zap.Duration("outageAfter", a.config.OutageAfter()))
		a.publishState()
	case watchdogTick:
		tick := a.watchdog.Tick(a.now())
		a.logger.Debug("watchdog@monitoring tick", zap.Duration("sinceLastSample", tick.Elapsed),
			zap.Uint64("outages", tick.OutageCount))
		if tick.EnteredOutage {
			a.logger.Error("watchdog@monitoring outage detected, forcing zero output",
				zap.Duration("sinceLastSample", tick.Elapsed), zap.Uint64("outages", tick.OutageCount))
			if a.metrics != nil {
				a.metrics.OutageEntered()
			}
			a.publishState()
		}
		if tick.Recovered {
			a.logger.Info("watchdog@monitoring telemetry recovered", zap.Uint64("outages", tick.OutageCount))
			if a.metrics != nil {
				a.metrics.OutageCleared()
			}
			a.publishState()
		}
		if tick.ForceZero {
			a.BecomeStacked(NewWDBurstingState(a).OnEnter(ctx))
		}
	case domain.TelemetrySeen:
		a.watchdog.Seen(msg.At)
	case domain.GetWatchdogStateRequest:
		ForRequest(msg).Respond(ctx, a.snapshot())
	case domain.PublishStateRequest:
		a.publishState()
	case domain.ActorHealthRequest:
		ctx.Respond(a.health())
	case *actor.Restarting:
		a.stop()
	case *actor.Stopping:
		a.stop()
	default:
		a.logger.Debug("watchdog@monitoring recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Bursting state

type WDBurstingState struct {
	actor     *WatchdogActor
	remaining *uint32
}

func NewWDBurstingState(fromActor *WatchdogActor) WDBurstingState {
	remaining := fromActor.config.BurstFrames
	return WDBurstingState{
		actor:     fromActor,
		remaining: &remaining,
	}
}

func (state WDBurstingState) Name() string {
	return "bursting"
}

func (state WDBurstingState) OnEnter(ctx actor.Context) WDBurstingState {
	state.step(ctx)
	return state
}

func (state WDBurstingState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case burstStep:
		if *state.remaining == 0 {
			a.logger.Debug("watchdog@bursting burst done")
			a.UnbecomeStacked()
			return
		}
		state.step(ctx)
	case watchdogTick:
		// absorbed while the burst runs
	case domain.TelemetrySeen:
		a.watchdog.Seen(msg.At)
	case domain.GetWatchdogStateRequest:
		ForRequest(msg).Respond(ctx, a.snapshot())
	case domain.PublishStateRequest:
		a.publishState()
	case domain.ActorHealthRequest:
		ctx.Respond(a.health())
	case *actor.Restarting:
		a.stop()
	case *actor.Stopping:
		a.stop()
	default:
		a.logger.Debug("watchdog@bursting recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// step writes one zero frame and schedules the next step after the burst pause.
func (state WDBurstingState) step(ctx actor.Context) {
	a := state.actor
	*state.remaining--
	a.logger.Debug("watchdog@bursting zero frame", zap.Uint32("remaining", *state.remaining))
	ctx.Send(a.serialActor, domain.WriteFrameRequest{
		Frame:  service.ZeroFrame(),
		Origin: domain.FRAME_ORIGIN_WATCHDOG,
	})
	a.scheduler.SendOnce(a.config.BurstPause(), ctx.Self(), burstStep{})
}

func (state *WatchdogActor) publishState() {
	PublishAll(state.eventStream, events.OutageUpdateEvents(state.watchdog.State() == service.WATCHDOG_OUTAGE,
		state.watchdog.OutageCount()))
}

func (state *WatchdogActor) snapshot() domain.GetWatchdogStateResponse {
	return domain.GetWatchdogStateResponse{
		Outage:      state.watchdog.State() == service.WATCHDOG_OUTAGE,
		OutageCount: state.watchdog.OutageCount(),
		LastSeen:    state.watchdog.LastSeen(),
		Bursting:    state.StateName() == "bursting",
	}
}

func (state *WatchdogActor) health() domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_WATCHDOG,
		Healthy: true,
		State:   state.StateName(),
	}
}

func (state *WatchdogActor) stop() {
	if state.cancelTicker != nil {
		state.cancelTicker()
		state.cancelTicker = nil
	}
}
