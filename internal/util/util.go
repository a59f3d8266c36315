package util

import (
	"github.com/gridtie/mqtt2soyo/internal/config"

	"go.uber.org/zap"
)

// LoadTestConfig returns a valid configuration with the stock defaults and a
// watchdog time unit short enough for tests.
func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			ClientId:         "mqtt2soyo_test",
			BaseTopic:        "mqtt2soyo",
			HADiscoveryTopic: "homeassistant",
		},
		Topics: config.TopicsConfig{
			Power: "emon/emonpi/power1",
			Solar: "emon/emonpi/pcm60x",
			SoC:   "emon/emonpi/soc",
		},
		Source: config.SourceConfig{
			Kind:               config.SOURCE_KIND_MQTT,
			PollIntervalMillis: 1000,
			TimeoutMillis:      2000,
			ModbusPort:         502,
			MeterId:            200,
		},
		Serial: config.SerialConfig{
			Device:        "/dev/null",
			BaudRate:      4800,
			TimeoutMillis: 1000,
		},
		Inverter: config.InverterConfig{
			Units:          2,
			BaseCeiling:    400,
			PerUnitHighCap: 800,
			Buffer:         -90,
		},
		PowerMode: config.PowerModeConfig{
			Enable:         true,
			Policy:         config.POWER_MODE_POLICY_ALL,
			SolarThreshold: 400,
			SoCThreshold:   82,
		},
		Watchdog: config.WatchdogConfig{
			TimeUnitMillis:  50,
			OutageUnits:     5,
			RecoveryUnits:   3,
			GraceUnits:      10,
			TickUnits:       1,
			BurstFrames:     5,
			BurstPauseUnits: 1,
		},
		Port: 8080,
	}
}
