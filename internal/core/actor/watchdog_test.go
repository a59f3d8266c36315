package actor

import (
	"bytes"
	"testing"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/gridtie/mqtt2soyo/internal/core/service"
	"github.com/gridtie/mqtt2soyo/internal/metrics"
	"github.com/gridtie/mqtt2soyo/internal/serial"
	"github.com/gridtie/mqtt2soyo/internal/util"
	"github.com/gridtie/mqtt2soyo/internal/util/actorutil"

	adactor "github.com/gridtie/mqtt2soyo/internal/adapter/actor"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func zeroFrameBytes(t *testing.T) []byte {
	b, err := service.ZeroFrame().Bytes()
	require.NoError(t, err)
	return b
}

func watchdogState(t *testing.T, ctx *actor.RootContext, pid *actor.PID) domain.GetWatchdogStateResponse {
	res, err := ctx.RequestFuture(pid, domain.GetWatchdogStateRequest{}, time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.GetWatchdogStateResponse)
	require.True(t, ok)
	return resp
}

func TestOutageBurstAndRecovery(t *testing.T) {
	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	unit := cfg.Watchdog.Units(1)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	es := &eventstream.EventStream{}
	m := metrics.NewMetrics()
	rec := serial.NewRecordingPort()

	serialPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewSerialActor(rec.Opener(), m, logger)
	}))
	watchdogPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewWatchdogActor(cfg.Watchdog, nil, serialPID, es, m, logger)
	}))
	controlPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewControlActor(&cfg, serialPID, watchdogPID, es, m, logger)
	}))
	started := time.Now()

	// silence: nothing happens during the grace period
	time.Sleep(cfg.Watchdog.GracePeriod() - 2*unit)
	assert.Empty(rec.Writes())

	// then a burst of zero frames spaced one unit apart
	require.Eventually(t, func() bool {
		return len(rec.Writes()) >= int(cfg.Watchdog.BurstFrames)
	}, 20*unit, unit/5)

	writes := rec.Writes()[:cfg.Watchdog.BurstFrames]
	zero := zeroFrameBytes(t)
	assert.GreaterOrEqual(writes[0].At.Sub(started), cfg.Watchdog.GracePeriod()-unit/5)
	for i, w := range writes {
		assert.Equal(zero, w.Data, "frame %d", i)
		if i > 0 {
			gap := w.At.Sub(writes[i-1].At)
			assert.GreaterOrEqual(gap, unit*7/10, "gap before frame %d", i)
			assert.LessOrEqual(gap, unit*3, "gap before frame %d", i)
		}
	}

	st := watchdogState(t, context, watchdogPID)
	assert.True(st.Outage)
	assert.Equal(uint64(1), st.OutageCount)

	// telemetry is back: the control frame goes out and the watchdog recovers
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(unit)
		defer ticker.Stop()
		for {
			context.Send(controlPID, domain.TelemetrySample{Channel: domain.CHANNEL_POWER, Value: 1200, At: time.Now()})
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	controlFrame, err := service.Encode(200).Bytes()
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		for _, w := range rec.Writes() {
			if bytes.Equal(w.Data, controlFrame) {
				return true
			}
		}
		return false
	}, 10*unit, unit/5)

	require.Eventually(t, func() bool {
		st := watchdogState(t, context, watchdogPID)
		return !st.Outage && !st.Bursting
	}, 20*unit, unit/2)

	rec.Reset()
	time.Sleep(6 * unit)
	close(stop)
	<-done

	writes = rec.Writes()
	assert.NotEmpty(writes)
	for _, w := range writes {
		assert.Equal(controlFrame, w.Data)
	}

	st = watchdogState(t, context, watchdogPID)
	assert.False(st.Outage)
	assert.Equal(uint64(1), st.OutageCount, "recovery does not touch the counter")
}

func TestWatchdogHealthReportsState(t *testing.T) {
	cfg := util.LoadTestConfig()
	cfg.Watchdog.GraceUnits = 1

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	rec := serial.NewRecordingPort()
	serialPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewSerialActor(rec.Opener(), nil, logger)
	}))
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewWatchdogActor(cfg.Watchdog, nil, serialPID, &eventstream.EventStream{}, nil, logger)
	}))

	hcr, err := healthCheck(context, pid)
	require.NoError(t, err)
	assert.Equal(t, "monitoring", hcr.State)

	// grace 1 unit, outage after 5 units of silence
	require.Eventually(t, func() bool {
		hcr, err := healthCheck(context, pid)
		return err == nil && hcr.State == "bursting"
	}, 20*cfg.Watchdog.Units(1), cfg.Watchdog.Units(1)/5)
}

func TestWatchdogKeepsOutageCountAcrossRestarts(t *testing.T) {
	cfg := util.LoadTestConfig()
	cfg.Watchdog.GraceUnits = 1
	unit := cfg.Watchdog.Units(1)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	rec := serial.NewRecordingPort()
	serialPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewSerialActor(rec.Opener(), nil, logger)
	}))

	// every instance made by the producer shares one state machine
	wd := service.NewWatchdog(cfg.Watchdog.OutageAfter(), cfg.Watchdog.RecoverWithin(), time.Now())
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewWatchdogActor(cfg.Watchdog, wd, serialPID, &eventstream.EventStream{}, nil, logger)
	})

	pid := context.Spawn(props)
	require.Eventually(t, func() bool {
		return watchdogState(t, context, pid).OutageCount == 1
	}, 20*unit, unit/5)
	require.NoError(t, context.StopFuture(pid).Wait())

	// a new instance continues from the same count
	pid = context.Spawn(props)
	st := watchdogState(t, context, pid)
	assert.Equal(t, uint64(1), st.OutageCount)
	assert.True(t, st.Outage)
}
