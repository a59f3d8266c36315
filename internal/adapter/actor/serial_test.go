package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/gridtie/mqtt2soyo/internal/core/port"
	"github.com/gridtie/mqtt2soyo/internal/core/service"
	"github.com/gridtie/mqtt2soyo/internal/metrics"
	"github.com/gridtie/mqtt2soyo/internal/serial"
	"github.com/gridtie/mqtt2soyo/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSerialActorWritesFrames(t *testing.T) {
	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	rec := serial.NewRecordingPort()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSerialActor(rec.Opener(), metrics.NewMetrics(), logger)
	})
	pid := context.Spawn(props)

	res, err := context.RequestFuture(pid, domain.WriteFrameRequest{
		Frame:  service.Encode(200),
		Origin: domain.FRAME_ORIGIN_CONTROL,
	}, time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.WriteFrameResponse)
	require.True(t, ok)
	assert.False(resp.HasResponseError())

	writes := rec.Writes()
	require.Len(t, writes, 1)
	assert.Equal([]byte{0x24, 0x56, 0x00, 0x21, 0, 200, 0x80, 64}, writes[0].Data)

	hcr, err := healthCheck(context, pid)
	require.NoError(t, err)
	assert.True(hcr.Healthy)
}

func TestSerialActorReportsFailures(t *testing.T) {
	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	rec := serial.NewRecordingPort()
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewSerialActor(rec.Opener(), nil, logger)
	}))

	// demand 8 renders checksum 256
	res, err := context.RequestFuture(pid, domain.WriteFrameRequest{Frame: service.Encode(8)}, time.Second).Result()
	require.NoError(t, err)
	assert.ErrorIs(res.(domain.WriteFrameResponse).GetResponseError(), domain.ErrFrameOutOfRange)

	rec.FailWith(errors.New("io error"))
	res, err = context.RequestFuture(pid, domain.WriteFrameRequest{Frame: service.ZeroFrame()}, time.Second).Result()
	require.NoError(t, err)
	assert.True(res.(domain.WriteFrameResponse).HasResponseError())
	assert.Empty(rec.Writes())

	// failures are not retried, the next frame goes through
	rec.FailWith(nil)
	res, err = context.RequestFuture(pid, domain.WriteFrameRequest{Frame: service.ZeroFrame()}, time.Second).Result()
	require.NoError(t, err)
	assert.False(res.(domain.WriteFrameResponse).HasResponseError())
	assert.Len(rec.Writes(), 1)
}

func TestSerialActorRestartsOnOpenFailure(t *testing.T) {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	rec := serial.NewRecordingPort()
	attempts := make(chan struct{}, 8)
	opener := func() (port.SerialPort, error) {
		attempts <- struct{}{}
		if len(attempts) < 2 {
			return nil, errors.New("no such device")
		}
		return rec.Opener()()
	}
	supervisor := actor.NewOneForOneStrategy(3, 10*time.Second, func(reason interface{}) actor.Directive {
		return actor.RestartDirective
	})
	parent := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if _, ok := ctx.Message().(*actor.Started); ok {
			ctx.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
				return NewSerialActor(opener, nil, logger)
			}), domain.ACTOR_ID_SERIAL)
		}
	}, actor.WithSupervisor(supervisor)))

	pid := actor.NewPID(as.Address(), parent.Id+"/"+domain.ACTOR_ID_SERIAL)
	require.Eventually(t, func() bool {
		res, err := context.RequestFuture(pid, domain.WriteFrameRequest{Frame: service.ZeroFrame()}, 200*time.Millisecond).Result()
		return err == nil && !res.(domain.WriteFrameResponse).HasResponseError()
	}, 3*time.Second, 100*time.Millisecond)
	assert.GreaterOrEqual(t, len(attempts), 2)
}
