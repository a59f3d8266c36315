package actor

import (
	"fmt"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/gridtie/mqtt2soyo/internal/core/port"
	"github.com/gridtie/mqtt2soyo/internal/metrics"
	"github.com/gridtie/mqtt2soyo/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// SerialActor owns the link to the inverters. Frames are written one at a time
// in mailbox order, each with a single Write call.
type SerialActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	opener   port.SerialPortOpener
	port     port.SerialPort
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewSerialActor(opener port.SerialPortOpener, m *metrics.Metrics, logger *zap.Logger) *SerialActor {
	act := &SerialActor{
		opener:   opener,
		metrics:  m,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_SERIAL, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *SerialActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SerialActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("serial@starting started")
		p, err := state.opener()
		if err != nil {
			state.logger.Error("serial@starting could not open port", zap.Error(err))
			panic(err)
		}
		state.port = p
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.close()
	default:
		state.logger.Debug("serial@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SerialActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("serial@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SERIAL,
			Healthy: state.port != nil,
			State:   "idle",
		})
	case domain.WriteFrameRequest:
		err := state.write(msg.Frame)
		if err != nil {
			state.logger.Error("serial@default could not write frame", zap.String("origin", msg.Origin),
				zap.Stringer("frame", msg.Frame), zap.Error(err))
			if state.metrics != nil {
				state.metrics.SerialWriteFailed()
			}
		} else {
			state.logger.Debug("serial@default frame written", zap.String("origin", msg.Origin),
				zap.Stringer("frame", msg.Frame), zap.Int("checksum", msg.Frame.Checksum))
			if state.metrics != nil {
				state.metrics.FrameWritten(msg.Origin)
			}
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.WriteFrameResponse{
			ActorResponseMixIn: domain.ErrorResponseMixIn(err),
			Frame:              msg.Frame,
		})
	case *actor.Restarting:
		state.close()
	case *actor.Stopping:
		state.close()
	default:
		state.logger.Debug("serial@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SerialActor) write(frame domain.CommandFrame) error {
	b, err := frame.Bytes()
	if err != nil {
		return err
	}
	n, err := state.port.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(b))
	}
	return nil
}

func (state *SerialActor) close() {
	if state.port != nil {
		state.logger.Debug("serial: close")
		state.port.Close()
		state.port = nil
	}
}
