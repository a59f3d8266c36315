package actorutil

import (
	"log/slog"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/gridtie/mqtt2soyo/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func PublishAll(es *eventstream.EventStream, events []any) {
	for _, ev := range events {
		es.Publish(ev)
	}
}

// NewActorSystemWithZapLogger routes the actor system's own slog output
// through the zap logger at a matching level.
func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	w := zap.NewStdLog(logger.WithOptions(zap.AddCallerSkip(1))).Writer()
	opts := &tint.Options{
		Level:      slogLevel(logger.Level()),
		TimeFormat: time.DateTime,
		NoColor:    true,
	}
	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(w, opts)).With("system", system.ID)
	}))
}

func slogLevel(level zapcore.Level) slog.Level {
	switch {
	case level <= zapcore.DebugLevel:
		return slog.LevelDebug
	case level == zapcore.InfoLevel:
		return slog.LevelInfo
	case level == zapcore.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	if cmd.Command == mqtt.COMMAND_SWITCH && cmd.DeviceId == domain.SWITCH_ID_POWER_MODE {
		enable, err := mqtt.ParseSwitchPayload(cmd.Payload)
		if err != nil {
			return nil, err
		}
		return domain.PowerModeEnableRequest{
			Enable: enable,
		}, nil
	}
	return nil, nil
}
