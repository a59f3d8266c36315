package mqtt

import (
	"testing"

	"github.com/gridtie/mqtt2soyo/internal/config"
	"github.com/gridtie/mqtt2soyo/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func testConfig(kind string) *config.Config {
	return &config.Config{
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			ClientId:         "mqtt2soyo_test",
			BaseTopic:        "soyo",
			HADiscoveryTopic: "homeassistant",
		},
		Topics: config.TopicsConfig{
			Power: "emon/emonpi/power1",
			Solar: "emon/emonpi/pcm60x",
			SoC:   "emon/emonpi/soc",
		},
		Source: config.SourceConfig{Kind: kind},
	}
}

func TestSwitchCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/my_device/command"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "my_device", "device extract")
}

func TestSwitchCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	r := switchCommandExtractor(baseTopic)

	assert.Len(r.FindAllStringSubmatch("loremTopic/switch/my_device/state", 1), 0, "no matches")
	assert.Len(r.FindAllStringSubmatch("other/loremTopic/switch/my_device/command", 1), 0, "anchored")
}

func TestParseMQTTCommand(t *testing.T) {
	client := CreateMQTTClient(testConfig(config.SOURCE_KIND_MQTT), OptsFromConfig(testConfig(config.SOURCE_KIND_MQTT)), nil, nil)

	cmd, err := client.ParseMQTTCommand(fakeMessage{topic: "soyo/switch/power_mode/command", payload: []byte("off")})
	require.NoError(t, err)
	assert.Equal(t, ParsedMQTTCommand{DeviceId: domain.SWITCH_ID_POWER_MODE, Command: COMMAND_SWITCH, Payload: "off"}, *cmd)

	_, err = client.ParseMQTTCommand(fakeMessage{topic: "emon/emonpi/power1", payload: []byte("300")})
	assert.ErrorIs(t, err, ErrNotACommand)
}

func TestParseSwitchPayload(t *testing.T) {
	assert := assert.New(t)

	v, err := ParseSwitchPayload("ON")
	assert.NoError(err)
	assert.True(v)
	v, err = ParseSwitchPayload("off\n")
	assert.NoError(err)
	assert.False(v)
	_, err = ParseSwitchPayload("toggle")
	assert.Error(err)
}

func TestTelemetryChannels(t *testing.T) {
	assert := assert.New(t)

	client := CreateMQTTClient(testConfig(config.SOURCE_KIND_MQTT), OptsFromConfig(testConfig(config.SOURCE_KIND_MQTT)), nil, nil)
	ch, ok := client.TelemetryChannel("emon/emonpi/power1")
	assert.True(ok)
	assert.Equal(domain.CHANNEL_POWER, ch)
	ch, ok = client.TelemetryChannel("emon/emonpi/pcm60x")
	assert.True(ok)
	assert.Equal(domain.CHANNEL_SOLAR, ch)
	ch, ok = client.TelemetryChannel("emon/emonpi/soc")
	assert.True(ok)
	assert.Equal(domain.CHANNEL_SOC, ch)
	_, ok = client.TelemetryChannel("emon/emonpi/other")
	assert.False(ok)

	// polled primary channel is not subscribed
	polled := CreateMQTTClient(testConfig(config.SOURCE_KIND_HTTP), OptsFromConfig(testConfig(config.SOURCE_KIND_HTTP)), nil, nil)
	_, ok = polled.TelemetryChannel("emon/emonpi/power1")
	assert.False(ok)
}

func TestHADiscoveryMessages(t *testing.T) {
	assert := assert.New(t)

	cfg := testConfig(config.SOURCE_KIND_MQTT)
	client := CreateMQTTClient(cfg, OptsFromConfig(cfg), nil, nil)
	bridge := domain.BridgeDevice(cfg.MQTT.BaseTopic)

	sensors := append(domain.BridgeSensors(bridge), domain.ControlSensors(bridge)...)
	switches := domain.ControlSwitches(bridge)
	msgs := client.DiscoveryMessages(sensors, switches)
	require.Len(t, msgs, len(sensors)+len(switches))

	byId := map[string]DiscoveryMessage{}
	for _, m := range msgs {
		assert.Equal("soyo/bridge/state", m.Config.AvailabilityTopic)
		assert.Equal(HA_PLATFORM_MQTT, m.Config.Platform)
		assert.Equal([]string{bridge.Id}, m.Config.Device.Identifiers)
		assert.Equal("mqtt2soyo", m.Config.Origin.Name)
		byId[m.Config.UniqueId] = m
	}

	for _, s := range domain.ControlSensors(bridge) {
		m := byId[s.UniqueId]
		assert.Equal("homeassistant/"+s.SensorType+"/"+bridge.Id+"/"+s.Id+"/config", m.Topic)
		if s.SensorType == domain.SENSOR_TYPE_BINARY {
			assert.Equal("soyo/binary_sensor/"+s.Id+"/state", m.Config.StateTopic)
			assert.Equal(MQTT_PAYLOAD_ON, m.Config.PayloadOn)
			assert.Nil(m.Config.DisplayPrecision)
		} else {
			assert.Equal("soyo/sensor/"+s.Id+"/state", m.Config.StateTopic)
			require.NotNil(t, m.Config.DisplayPrecision)
			assert.Zero(*m.Config.DisplayPrecision)
		}
	}

	bridgeMsg := byId[domain.BridgeSensors(bridge)[0].UniqueId]
	assert.Equal("soyo/bridge/state", bridgeMsg.Config.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, bridgeMsg.Config.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, bridgeMsg.Config.PayloadOff)

	sw := switches[0]
	swMsg := byId[sw.UniqueId]
	assert.Equal("soyo/switch/power_mode/command", swMsg.Config.CommandTopic)
	assert.Equal("soyo/switch/power_mode/state", swMsg.Config.StateTopic)
	assert.Equal("homeassistant/switch/"+bridge.Id+"/power_mode/config", swMsg.Topic)
}
