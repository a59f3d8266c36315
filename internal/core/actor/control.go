package actor

import (
	"errors"
	"fmt"

	"github.com/gridtie/mqtt2soyo/internal/config"
	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/gridtie/mqtt2soyo/internal/core/events"
	"github.com/gridtie/mqtt2soyo/internal/core/service"
	"github.com/gridtie/mqtt2soyo/internal/metrics"
	. "github.com/gridtie/mqtt2soyo/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// ControlActor drives the control loop: every primary sample becomes one
// command frame, auxiliary samples move the output ceiling.
type ControlActor struct {
	behavior      actor.Behavior
	config        *config.Config
	serialActor   *actor.PID
	watchdogActor *actor.PID
	eventStream   *eventstream.EventStream
	metrics       *metrics.Metrics

	powerMode  *service.PowerModeController
	clock      *service.SampleClock
	lastSignal *domain.TelemetrySample
	lastDemand int
	lastFrame  *domain.CommandFrame

	logger *zap.Logger
}

func NewControlActor(config *config.Config, serialActor, watchdogActor *actor.PID, eventStream *eventstream.EventStream,
	m *metrics.Metrics, logger *zap.Logger) *ControlActor {
	act := &ControlActor{
		config:        config,
		serialActor:   serialActor,
		watchdogActor: watchdogActor,
		eventStream:   eventStream,
		metrics:       m,
		behavior:      actor.NewBehavior(),
		clock:         service.NewSampleClock(),
		powerMode: service.NewPowerModeController(service.PowerModeConfig{
			Enabled:        config.PowerMode.Enable,
			Policy:         service.PowerModePolicy(config.PowerMode.Policy),
			BaseCeiling:    config.Inverter.BaseCeiling,
			UnitCount:      config.Inverter.Units,
			PerUnitHighCap: config.Inverter.PerUnitHighCap,
			SolarThreshold: config.PowerMode.SolarThreshold,
			SoCThreshold:   config.PowerMode.SoCThreshold,
		}),
		logger: ActorLogger(domain.ACTOR_ID_CONTROL, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ControlActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ControlActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Info("control@default started", zap.Int("ceiling", state.powerMode.Ceiling()),
			zap.Bool("powerModeEnabled", state.powerMode.Enabled()))
		state.publishState()
	case domain.ActorHealthRequest:
		state.logger.Debug("control@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CONTROL,
			Healthy: true,
			State:   string(state.powerMode.Mode()),
		})
	case domain.TelemetrySample:
		if err := state.clock.Accept(msg); err != nil {
			state.logger.Warn("control@default sample dropped", zap.Error(err))
			if state.metrics != nil {
				state.metrics.SampleRejected(msg.Channel, metrics.REJECT_REASON_STALE)
			}
			return
		}
		if state.metrics != nil {
			state.metrics.SampleAccepted(msg.Channel)
		}
		if msg.Channel == domain.CHANNEL_POWER {
			state.onSignal(ctx, msg)
		} else {
			state.onAuxiliary(msg)
		}
	case domain.ControlRequest:
		state.onControlRequest(ctx, msg)
	case domain.PublishStateRequest:
		state.publishState()
	case domain.GetControlStateRequest:
		ForRequest(msg).Respond(ctx, state.snapshot())
	default:
		state.logger.Debug("control@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ControlActor) onSignal(ctx actor.Context, sample domain.TelemetrySample) {
	ceiling := state.powerMode.Ceiling()
	demand := service.ComputeDemand(sample.Value, ceiling, state.config.Inverter.Buffer, state.config.Inverter.Units)
	frame := service.Encode(demand)

	state.logger.Debug("control@default signal", zap.Int("signal", sample.Value), zap.Int("ceiling", ceiling),
		zap.Int("demand", demand), zap.Stringer("packet", frame), zap.Int("checksum", frame.Checksum))

	ctx.Send(state.serialActor, domain.WriteFrameRequest{
		Frame:  frame,
		Origin: domain.FRAME_ORIGIN_CONTROL,
	})
	ctx.Send(state.watchdogActor, domain.TelemetrySeen{At: sample.At})

	state.lastSignal = &sample
	state.lastDemand = demand
	state.lastFrame = &frame

	PublishAll(state.eventStream, events.SignalUpdateEvents(sample.Value, demand))
	if state.metrics != nil {
		state.metrics.ControlUpdated(sample.Value, demand)
	}
}

func (state *ControlActor) onAuxiliary(sample domain.TelemetrySample) {
	state.logger.Debug("control@default auxiliary signal", zap.String("channel", string(sample.Channel)), zap.Int("value", sample.Value))
	state.eventStream.Publish(events.AuxiliarySignalUpdateEvent(sample.Channel, sample.Value))
	if state.powerMode.Update(sample) {
		state.onCeilingChanged()
	}
}

func (state *ControlActor) onControlRequest(ctx actor.Context, req domain.ControlRequest) {
	switch cmd := req.(type) {
	case domain.PowerModeEnableRequest:
		state.logger.Sugar().Infof("control@default cmd power mode %t", cmd.Enable)
		changed := state.powerMode.SetEnabled(cmd.Enable)
		state.eventStream.Publish(events.PowerModeSwitchUpdateEvent(state.powerMode.Enabled()))
		if changed {
			state.onCeilingChanged()
		}
		ForRequest(cmd).Respond(ctx, domain.PowerModeEnableResponse{Changed: changed})
	default:
		state.logger.Warn("control@default unsupported command", zap.String("command", req.ControlCommand()))
		ForRequest(req).Respond(ctx, domain.PowerModeEnableResponse{
			ActorResponseMixIn: domain.ErrorResponseMixIn(errors.New("unsupported command")),
		})
	}
}

func (state *ControlActor) onCeilingChanged() {
	ceiling := state.powerMode.Ceiling()
	state.logger.Info("control@default ceiling changed", zap.String("mode", string(state.powerMode.Mode())),
		zap.Int("ceiling", ceiling))
	PublishAll(state.eventStream, events.CeilingUpdateEvents(ceiling, state.powerMode.HighPower()))
	if state.metrics != nil {
		state.metrics.CeilingUpdated(ceiling)
	}
}

func (state *ControlActor) publishState() {
	PublishAll(state.eventStream, events.CeilingUpdateEvents(state.powerMode.Ceiling(), state.powerMode.HighPower()))
	state.eventStream.Publish(events.PowerModeSwitchUpdateEvent(state.powerMode.Enabled()))
	if state.metrics != nil {
		state.metrics.CeilingUpdated(state.powerMode.Ceiling())
	}
}

func (state *ControlActor) snapshot() domain.GetControlStateResponse {
	resp := domain.GetControlStateResponse{
		Ceiling:          state.powerMode.Ceiling(),
		HighPower:        state.powerMode.HighPower(),
		PowerModeEnabled: state.powerMode.Enabled(),
		LastDemand:       state.lastDemand,
	}
	if state.lastSignal != nil {
		s := *state.lastSignal
		resp.LastSignal = &s
	}
	if state.lastFrame != nil {
		f := *state.lastFrame
		resp.LastFrame = &f
	}
	return resp
}
