package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ENV_PREFIX = "mqtt2soyo"

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)
	v.SetDefault("http_log", false)
	v.SetDefault("mqtt.host", "")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", fmt.Sprintf("mqtt2soyo_%d", rand.Intn(1000)))
	v.SetDefault("mqtt.base_topic", "mqtt2soyo")
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	v.SetDefault("topics.power", "emon/emonpi/power1")
	v.SetDefault("topics.solar", "emon/emonpi/pcm60x")
	v.SetDefault("topics.soc", "emon/emonpi/soc")
	v.SetDefault("source.kind", SOURCE_KIND_MQTT)
	v.SetDefault("source.url", "")
	v.SetDefault("source.poll_interval_millis", 1000)
	v.SetDefault("source.timeout_millis", 2000)
	v.SetDefault("source.modbus_host", "")
	v.SetDefault("source.modbus_port", 502)
	v.SetDefault("source.meter_id", 200)
	v.SetDefault("serial.device", "/dev/serial0")
	v.SetDefault("serial.baud_rate", 4800)
	v.SetDefault("serial.timeout_millis", 1000)
	v.SetDefault("inverter.units", 2)
	v.SetDefault("inverter.base_ceiling", 400)
	v.SetDefault("inverter.per_unit_high_cap", 800)
	v.SetDefault("inverter.buffer", -90)
	v.SetDefault("power_mode.enable", true)
	v.SetDefault("power_mode.policy", POWER_MODE_POLICY_ALL)
	v.SetDefault("power_mode.solar_threshold", 400)
	v.SetDefault("power_mode.soc_threshold", 82)
	v.SetDefault("watchdog.time_unit_millis", 1000)
	v.SetDefault("watchdog.outage_units", 5)
	v.SetDefault("watchdog.recovery_units", 3)
	v.SetDefault("watchdog.grace_units", 10)
	v.SetDefault("watchdog.tick_units", 1)
	v.SetDefault("watchdog.burst_frames", 5)
	v.SetDefault("watchdog.burst_pause_units", 1)
}

// Load reads defaults, environment and the optional CONFIG_FILE into a validated Config.
func Load(v *viper.Viper) (*Config, error) {

	// alias PORT => MQTT2SOYO_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("MQTT2SOYO_PORT", port)
	}

	SetDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			v.SetConfigFile(cfgFile)

			err = v.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = parseLogLevel(v.GetString("log_level"))
	cfg.Source.Kind = strings.ToLower(cfg.Source.Kind)
	cfg.PowerMode.Policy = strings.ToLower(cfg.PowerMode.Policy)

	// check and fix base topic
	baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func parseLogLevel(level string) zapcore.Level {
	switch level {
	case "trace", "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "error":
		return zap.ErrorLevel
	case "warn":
		return zap.WarnLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}

func SafeCopy(cfg Config) Config {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	return cfg
}
