package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/gridtie/mqtt2soyo/internal/adapter/actor"
	"github.com/gridtie/mqtt2soyo/internal/config"
	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/gridtie/mqtt2soyo/internal/core/service"
	"github.com/gridtie/mqtt2soyo/internal/metrics"
	. "github.com/gridtie/mqtt2soyo/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type SerialActorProvider func() *adactor.SerialActor

// PollActorProvider is nil when the primary channel arrives over MQTT.
type PollActorProvider func() *adactor.PollActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck  healthCheckResult
	currentStatus       statusResult
	eventStream         *eventstream.EventStream
	metrics             *metrics.Metrics
	serialActor         *actor.PID
	mqttActor           *actor.PID
	pollActor           *actor.PID
	watchdogActor       *actor.PID
	controlActor        *actor.PID
	serialActorProvider SerialActorProvider
	mqttActorProvider   MQTTActorProvider
	pollActorProvider   PollActorProvider
	logger              *zap.Logger
}

type healthCheckResult struct {
	healthy   map[string]bool
	expected  int
	respondTo *actor.PID
}

type statusResult struct {
	control          *domain.GetControlStateResponse
	watchdog         *domain.GetWatchdogStateResponse
	respondTo        *actor.PID
	responseReceived int
}

func NewMasterOfPuppetsActor(config config.Config, serialActorProvider SerialActorProvider, mqttActorProvider MQTTActorProvider,
	pollActorProvider PollActorProvider, m *metrics.Metrics, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:         &eventstream.EventStream{},
		metrics:             m,
		serialActorProvider: serialActorProvider,
		mqttActorProvider:   mqttActorProvider,
		pollActorProvider:   pollActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// start Serial child
		serialActorPID, err := state.startSerialActor(ctx)
		if err != nil {
			panic(err)
		}
		state.serialActor = serialActorPID

		// start Watchdog child
		watchdogActorPID, err := state.startWatchdogActor(ctx)
		if err != nil {
			panic(err)
		}
		state.watchdogActor = watchdogActorPID

		// start Control child
		controlActorPID, err := state.startControlActor(ctx)
		if err != nil {
			panic(err)
		}
		state.controlActor = controlActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start Poll child
		if state.pollActorProvider != nil {
			pollActorPID, err := state.startPollActor(ctx)
			if err != nil {
				panic(err)
			}
			state.pollActor = pollActorPID
		}

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.TelemetrySample:
		ctx.Send(state.controlActor, msg)
	case adactor.MQTTReady:
		// (re)connected: refresh retained state topics
		state.logger.Debug("master@default mqtt ready")
		ctx.Send(state.controlActor, domain.PublishStateRequest{})
		ctx.Send(state.watchdogActor, domain.PublishStateRequest{})
	case adactor.ParsedCommand:
		// redirect parsedCommand to actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err != nil {
				state.logger.Warn("master@default invalid command", zap.Any("command", msg.Command), zap.Error(err))
				return
			}
			switch pcmd := cmd.(type) {
			case domain.ControlRequest:
				ctx.Send(state.controlActor, pcmd)
			}
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(ctx.Sender())
		for id, pid := range state.children() {
			state.currentHealthCheck.expected++
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      id,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.GetStatusRequest:
		state.logger.Debug("master@default GetStatusRequest")
		state.currentStatus = statusResult{respondTo: ForRequest(msg).ReplyTo(ctx)}
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.controlActor, domain.GetControlStateRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.GetControlStateResponse{
				ActorResponseMixIn: domain.ErrorResponseMixIn(err),
			}
		})
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.watchdogActor, domain.GetWatchdogStateRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.GetWatchdogStateResponse{
				ActorResponseMixIn: domain.ErrorResponseMixIn(err),
			}
		})
		state.behavior.BecomeStacked(state.StatusReceive)
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_SERIAL) {
			state.logger.Error("master@default serial error")
			panic(errors.New("serial terminated"))
		}
	default:
		state.logger.Debug("master@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.SetReceiveTimeout(0)
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		if state.currentHealthCheck.allReceived() {
			ctx.SetReceiveTimeout(0)

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		}
	case domain.TelemetrySample:
		// telemetry is never held back by a health check
		ctx.Send(state.controlActor, msg)
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) StatusReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetControlStateResponse:
		state.currentStatus.control = &msg
		state.currentStatus.responseReceived++
		state.respondStatusIfComplete(ctx)
	case domain.GetWatchdogStateResponse:
		state.currentStatus.watchdog = &msg
		state.currentStatus.responseReceived++
		state.respondStatusIfComplete(ctx)
	case domain.TelemetrySample:
		ctx.Send(state.controlActor, msg)
	default:
		state.logger.Debug("master@status stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) respondStatusIfComplete(ctx actor.Context) {
	if state.currentStatus.responseReceived < 2 {
		return
	}
	resp := domain.GetStatusResponse{
		Control:  *state.currentStatus.control,
		Watchdog: *state.currentStatus.watchdog,
	}
	if err := errors.Join(resp.Control.GetResponseError(), resp.Watchdog.GetResponseError()); err != nil {
		resp.ActorResponseMixIn = domain.ErrorResponseMixIn(err)
	}
	if state.currentStatus.respondTo != nil {
		ctx.Send(state.currentStatus.respondTo, resp)
	}
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MasterOfPuppetsActor) children() map[string]*actor.PID {
	children := map[string]*actor.PID{
		domain.ACTOR_ID_SERIAL:   state.serialActor,
		domain.ACTOR_ID_MQTT:     state.mqttActor,
		domain.ACTOR_ID_WATCHDOG: state.watchdogActor,
		domain.ACTOR_ID_CONTROL:  state.controlActor,
	}
	if state.pollActor != nil {
		children[domain.ACTOR_ID_POLL] = state.pollActor
	}
	return children
}

func (state *MasterOfPuppetsActor) startSerialActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	serialProps := actor.PropsFromProducer(func() actor.Actor {
		return state.serialActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(serialProps, domain.ACTOR_ID_SERIAL)
}

func (state *MasterOfPuppetsActor) startWatchdogActor(ctx actor.Context) (*actor.PID, error) {

	cfg := state.config.Watchdog
	wd := service.NewWatchdog(cfg.OutageAfter(), cfg.RecoverWithin(), time.Now())
	watchdogProps := actor.PropsFromProducer(func() actor.Actor {
		return NewWatchdogActor(cfg, wd, state.serialActor, state.eventStream, state.metrics, state.logger)
	}, actor.WithSupervisor(state.restartSupervisor()))
	return ctx.SpawnNamed(watchdogProps, domain.ACTOR_ID_WATCHDOG)
}

func (state *MasterOfPuppetsActor) startControlActor(ctx actor.Context) (*actor.PID, error) {

	controlProps := actor.PropsFromProducer(func() actor.Actor {
		return NewControlActor(&state.config, state.serialActor, state.watchdogActor, state.eventStream, state.metrics, state.logger)
	}, actor.WithSupervisor(state.restartSupervisor()))
	return ctx.SpawnNamed(controlProps, domain.ACTOR_ID_CONTROL)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *MasterOfPuppetsActor) startPollActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	pollProps := actor.PropsFromProducer(func() actor.Actor {
		return state.pollActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(pollProps, domain.ACTOR_ID_POLL)
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.logger)
	}, actor.WithSupervisor(state.restartSupervisor()))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *MasterOfPuppetsActor) restartSupervisor() actor.SupervisorStrategy {
	decider := func(reason interface{}) actor.Directive {
		state.logger.Error("master: handling failure for child", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	return actor.NewOneForOneStrategy(10, 1*time.Minute, decider)
}

func (state *healthCheckResult) reset(respondTo *actor.PID) {
	state.healthy = map[string]bool{}
	state.expected = 0
	state.respondTo = respondTo
}

func (state *healthCheckResult) allReceived() bool {
	return len(state.healthy) == state.expected
}

func (state *healthCheckResult) allHealthy() bool {
	if !state.allReceived() {
		return false
	}
	for _, healthy := range state.healthy {
		if !healthy {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
