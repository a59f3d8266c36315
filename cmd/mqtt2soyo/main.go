package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/gridtie/mqtt2soyo/internal/adapter/actor"
	"github.com/gridtie/mqtt2soyo/internal/config"
	"github.com/gridtie/mqtt2soyo/internal/core/actor"
	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/gridtie/mqtt2soyo/internal/core/port"
	"github.com/gridtie/mqtt2soyo/internal/metrics"
	"github.com/gridtie/mqtt2soyo/internal/serial"
	"github.com/gridtie/mqtt2soyo/internal/server"
	"github.com/gridtie/mqtt2soyo/internal/source"
	"github.com/gridtie/mqtt2soyo/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	done <- true
}

func main() {

	// load and print config
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	slog.Info("Using", "config", config.SafeCopy(*cfg))

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	m := metrics.NewMetrics()

	src, err := source.FromConfig(cfg, logger)
	if err != nil {
		logger.Error("could not create telemetry source", zap.Error(err))
		return
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, serialActorProvider(cfg, m, logger), mqttActorProvider(cfg, m, logger),
			pollActorProvider(cfg, src, m, logger), m, logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Error("could not spawn master actor", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid, m)
	done := make(chan bool, 1)

	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func serialActorProvider(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) actor.SerialActorProvider {
	opener := serial.Opener(cfg.Serial)
	return func() *adactor.SerialActor {
		return adactor.NewSerialActor(opener, m, logger)
	}
}

func mqttActorProvider(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, m, logger)
	}
}

// pollActorProvider returns nil when the primary channel is subscribed over MQTT.
func pollActorProvider(cfg *config.Config, src port.TelemetrySource, m *metrics.Metrics, logger *zap.Logger) actor.PollActorProvider {
	if src == nil {
		return nil
	}
	interval := time.Duration(cfg.Source.PollIntervalMillis) * time.Millisecond
	timeout := time.Duration(cfg.Source.TimeoutMillis) * time.Millisecond
	return func() *adactor.PollActor {
		return adactor.NewPollActor(src, interval, timeout, m, logger)
	}
}
