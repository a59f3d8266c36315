package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loadWithEnv(t *testing.T, env map[string]string) (*Config, error) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("MQTT2SOYO_PORT", "")
	for k, v := range env {
		t.Setenv(k, v)
	}
	return Load(viper.New())
}

func TestLoadDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := loadWithEnv(t, map[string]string{
		"MQTT2SOYO_MQTT_HOST": "broker.lan",
	})
	require.NoError(t, err)

	assert.Equal(zap.InfoLevel, cfg.LogLevel)
	assert.Equal("broker.lan", cfg.MQTT.Host)
	assert.Equal(1883, cfg.MQTT.Port)
	assert.Equal("mqtt2soyo", cfg.MQTT.BaseTopic)
	assert.Equal("emon/emonpi/power1", cfg.Topics.Power)
	assert.Equal("emon/emonpi/pcm60x", cfg.Topics.Solar)
	assert.Equal("emon/emonpi/soc", cfg.Topics.SoC)
	assert.Equal(SOURCE_KIND_MQTT, cfg.Source.Kind)
	assert.Equal("/dev/serial0", cfg.Serial.Device)
	assert.Equal(4800, cfg.Serial.BaudRate)
	assert.Equal(2, cfg.Inverter.Units)
	assert.Equal(400, cfg.Inverter.BaseCeiling)
	assert.Equal(800, cfg.Inverter.PerUnitHighCap)
	assert.Equal(-90, cfg.Inverter.Buffer)
	assert.True(cfg.PowerMode.Enable)
	assert.Equal(POWER_MODE_POLICY_ALL, cfg.PowerMode.Policy)
	assert.Equal(400, cfg.PowerMode.SolarThreshold)
	assert.Equal(82, cfg.PowerMode.SoCThreshold)

	assert.Equal(5*time.Second, cfg.Watchdog.OutageAfter())
	assert.Equal(3*time.Second, cfg.Watchdog.RecoverWithin())
	assert.Equal(10*time.Second, cfg.Watchdog.GracePeriod())
	assert.Equal(time.Second, cfg.Watchdog.TickInterval())
	assert.Equal(time.Second, cfg.Watchdog.BurstPause())
	assert.Equal(uint32(5), cfg.Watchdog.BurstFrames)
}

func TestLoadOverrides(t *testing.T) {
	assert := assert.New(t)

	cfg, err := loadWithEnv(t, map[string]string{
		"MQTT2SOYO_MQTT_HOST":         "broker.lan",
		"MQTT2SOYO_MQTT_BASE_TOPIC":   "Garage_Meter",
		"MQTT2SOYO_INVERTER_UNITS":    "3",
		"MQTT2SOYO_POWER_MODE_POLICY": "ANY",
		"MQTT2SOYO_LOG_LEVEL":         "debug",
		"PORT":                        "9090",
	})
	require.NoError(t, err)

	assert.Equal("garage_meter", cfg.MQTT.BaseTopic)
	assert.Equal(3, cfg.Inverter.Units)
	assert.Equal(POWER_MODE_POLICY_ANY, cfg.PowerMode.Policy)
	assert.Equal(zap.DebugLevel, cfg.LogLevel)
	assert.Equal(uint(9090), cfg.Port)
}

func TestLoadRejectsInvalidBaseTopic(t *testing.T) {
	_, err := loadWithEnv(t, map[string]string{
		"MQTT2SOYO_MQTT_HOST":       "broker.lan",
		"MQTT2SOYO_MQTT_BASE_TOPIC": "bad/topic",
	})
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		MQTT:      MQTTConfig{Host: "localhost", Port: 1883, BaseTopic: "mqtt2soyo"},
		Topics:    TopicsConfig{Power: "emon/emonpi/power1", Solar: "emon/emonpi/pcm60x", SoC: "emon/emonpi/soc"},
		Source:    SourceConfig{Kind: SOURCE_KIND_MQTT},
		Serial:    SerialConfig{Device: "/dev/serial0", BaudRate: 4800, TimeoutMillis: 1000},
		Inverter:  InverterConfig{Units: 2, BaseCeiling: 400, PerUnitHighCap: 800, Buffer: -90},
		PowerMode: PowerModeConfig{Enable: true, Policy: POWER_MODE_POLICY_ALL, SolarThreshold: 400, SoCThreshold: 82},
		Watchdog: WatchdogConfig{TimeUnitMillis: 1000, OutageUnits: 5, RecoveryUnits: 3, GraceUnits: 10,
			TickUnits: 1, BurstFrames: 5, BurstPauseUnits: 1},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero units", func(c *Config) { c.Inverter.Units = 0 }, false},
		{"negative base ceiling", func(c *Config) { c.Inverter.BaseCeiling = -1 }, false},
		{"unencodable demand", func(c *Config) { c.Inverter.Units = 1; c.Inverter.PerUnitHighCap = 2500 }, false},
		{"largest encodable demand", func(c *Config) {
			c.Inverter.Units = 1
			c.Inverter.PerUnitHighCap = 2469
		}, true},
		{"unknown policy", func(c *Config) { c.PowerMode.Policy = "last" }, false},
		{"inverted thresholds", func(c *Config) { c.Watchdog.RecoveryUnits = 5 }, false},
		{"zero tick", func(c *Config) { c.Watchdog.TickUnits = 0 }, false},
		{"zero burst", func(c *Config) { c.Watchdog.BurstFrames = 0 }, false},
		{"no serial device", func(c *Config) { c.Serial.Device = "" }, false},
		{"unknown source", func(c *Config) { c.Source.Kind = "kafka" }, false},
		{"http without url", func(c *Config) {
			c.Source.Kind = SOURCE_KIND_HTTP
			c.Source.PollIntervalMillis = 1000
			c.Source.TimeoutMillis = 1000
		}, false},
		{"http source", func(c *Config) {
			c.Source.Kind = SOURCE_KIND_HTTP
			c.Source.Url = "http://emonpi.lan/feed/get.json?id=1"
			c.Source.PollIntervalMillis = 1000
			c.Source.TimeoutMillis = 1000
		}, true},
		{"sunspec without host", func(c *Config) {
			c.Source.Kind = SOURCE_KIND_SUNSPEC
			c.Source.PollIntervalMillis = 1000
			c.Source.TimeoutMillis = 1000
		}, false},
		{"poll timeout too long", func(c *Config) {
			c.Source.Kind = SOURCE_KIND_SUNSPEC
			c.Source.ModbusHost = "meter.lan"
			c.Source.PollIntervalMillis = 1000
			c.Source.TimeoutMillis = 5000
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMaxDemand(t *testing.T) {
	c := validConfig()
	assert.Equal(t, (1600+90)/2, c.Inverter.MaxDemand())
	c.Inverter.PerUnitHighCap = 100
	assert.Equal(t, (400+90)/2, c.Inverter.MaxDemand())
}

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := CheckMQTTTopic("Soyo_1")
	require.NoError(t, err)
	assert.Equal(t, "soyo_1", topic)
	_, err = CheckMQTTTopic("soyo/1")
	assert.Error(t, err)
	_, err = CheckMQTTTopic("")
	assert.Error(t, err)
}
