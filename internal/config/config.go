package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	SOURCE_KIND_MQTT    = "mqtt"
	SOURCE_KIND_HTTP    = "http"
	SOURCE_KIND_SUNSPEC = "sunspec"

	POWER_MODE_POLICY_ALL = "all"
	POWER_MODE_POLICY_ANY = "any"

	// largest per-unit demand whose checksum stays in 0..264 for every low byte
	MAX_ENCODABLE_DEMAND = 2559
)

type Config struct {
	LogLevel  zapcore.Level
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Topics    TopicsConfig    `mapstructure:"topics"`
	Source    SourceConfig    `mapstructure:"source"`
	Serial    SerialConfig    `mapstructure:"serial"`
	Inverter  InverterConfig  `mapstructure:"inverter"`
	PowerMode PowerModeConfig `mapstructure:"power_mode"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"`
	Port      uint            `mapstructure:"port"`
	HttpLog   bool            `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	ClientId          string `mapstructure:"client_id"`
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type TopicsConfig struct {
	Power string
	Solar string
	SoC   string `mapstructure:"soc"`
}

type SourceConfig struct {
	Kind               string
	Url                string
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	TimeoutMillis      uint32 `mapstructure:"timeout_millis"`
	ModbusHost         string `mapstructure:"modbus_host"`
	ModbusPort         uint   `mapstructure:"modbus_port"`
	MeterId            uint   `mapstructure:"meter_id"`
}

type SerialConfig struct {
	Device        string
	BaudRate      int    `mapstructure:"baud_rate"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type InverterConfig struct {
	Units          int
	BaseCeiling    int `mapstructure:"base_ceiling"`
	PerUnitHighCap int `mapstructure:"per_unit_high_cap"`
	Buffer         int
}

type PowerModeConfig struct {
	Enable         bool
	Policy         string
	SolarThreshold int `mapstructure:"solar_threshold"`
	SoCThreshold   int `mapstructure:"soc_threshold"`
}

type WatchdogConfig struct {
	TimeUnitMillis  uint32 `mapstructure:"time_unit_millis"`
	OutageUnits     uint32 `mapstructure:"outage_units"`
	RecoveryUnits   uint32 `mapstructure:"recovery_units"`
	GraceUnits      uint32 `mapstructure:"grace_units"`
	TickUnits       uint32 `mapstructure:"tick_units"`
	BurstFrames     uint32 `mapstructure:"burst_frames"`
	BurstPauseUnits uint32 `mapstructure:"burst_pause_units"`
}

func (w WatchdogConfig) Units(n uint32) time.Duration {
	return time.Duration(n) * time.Duration(w.TimeUnitMillis) * time.Millisecond
}

func (w WatchdogConfig) OutageAfter() time.Duration {
	return w.Units(w.OutageUnits)
}

func (w WatchdogConfig) RecoverWithin() time.Duration {
	return w.Units(w.RecoveryUnits)
}

func (w WatchdogConfig) GracePeriod() time.Duration {
	return w.Units(w.GraceUnits)
}

func (w WatchdogConfig) TickInterval() time.Duration {
	return w.Units(w.TickUnits)
}

func (w WatchdogConfig) BurstPause() time.Duration {
	return w.Units(w.BurstPauseUnits)
}

func (c InverterConfig) HighCeiling() int {
	return c.Units * c.PerUnitHighCap
}

// MaxDemand is the largest per-unit demand the calculator can produce.
func (c InverterConfig) MaxDemand() int {
	ceiling := max(c.BaseCeiling, c.HighCeiling())
	buffer := c.Buffer
	if buffer < 0 {
		buffer = -buffer
	}
	return (ceiling + buffer) / c.Units
}

func (c *Config) Validate() error {
	if c.Inverter.Units < 1 {
		return errors.New("config param inverter.units should be >= 1")
	}
	if c.Inverter.BaseCeiling < 0 {
		return errors.New("config param inverter.base_ceiling should be >= 0")
	}
	if c.Inverter.PerUnitHighCap < 0 {
		return errors.New("config param inverter.per_unit_high_cap should be >= 0")
	}
	if d := c.Inverter.MaxDemand(); d > MAX_ENCODABLE_DEMAND {
		return fmt.Errorf("config params inverter.* allow a per-unit demand of %dW, max encodable is %dW", d, MAX_ENCODABLE_DEMAND)
	}
	if c.PowerMode.Policy != POWER_MODE_POLICY_ALL && c.PowerMode.Policy != POWER_MODE_POLICY_ANY {
		return fmt.Errorf("config param power_mode.policy should be %q or %q", POWER_MODE_POLICY_ALL, POWER_MODE_POLICY_ANY)
	}
	if c.Watchdog.TimeUnitMillis == 0 {
		return errors.New("config param watchdog.time_unit_millis should be > 0")
	}
	if c.Watchdog.RecoveryUnits >= c.Watchdog.OutageUnits {
		return errors.New("config param watchdog.recovery_units must be < watchdog.outage_units")
	}
	if c.Watchdog.TickUnits < 1 {
		return errors.New("config param watchdog.tick_units should be >= 1")
	}
	if c.Watchdog.BurstFrames < 1 {
		return errors.New("config param watchdog.burst_frames should be >= 1")
	}
	if c.Serial.Device == "" {
		return errors.New("config param serial.device is required")
	}
	if c.Serial.BaudRate <= 0 {
		return errors.New("config param serial.baud_rate should be > 0")
	}
	if c.MQTT.Host == "" {
		return errors.New("config param mqtt.host is required")
	}
	if c.Topics.Solar == "" || c.Topics.SoC == "" {
		return errors.New("config params topics.solar and topics.soc are required")
	}
	switch c.Source.Kind {
	case SOURCE_KIND_MQTT:
		if c.Topics.Power == "" {
			return errors.New("config param topics.power is required")
		}
	case SOURCE_KIND_HTTP:
		if c.Source.Url == "" {
			return errors.New("config param source.url is required for http source")
		}
	case SOURCE_KIND_SUNSPEC:
		if c.Source.ModbusHost == "" {
			return errors.New("config param source.modbus_host is required for sunspec source")
		}
		if c.Source.MeterId > 247 {
			return errors.New("config param source.meter_id should be <= 247")
		}
	default:
		return fmt.Errorf("config param source.kind %q is unknown", c.Source.Kind)
	}
	if c.Source.Kind != SOURCE_KIND_MQTT {
		if c.Source.PollIntervalMillis < 100 {
			return errors.New("config param source.poll_interval_millis should be >= 100")
		}
		if c.Source.TimeoutMillis == 0 || c.Source.TimeoutMillis > c.Source.PollIntervalMillis*2 {
			return errors.New("config param source.timeout_millis should be > 0 and <= 2 * source.poll_interval_millis")
		}
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
