package mqtt

import (
	"fmt"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"
)

const HA_PLATFORM_MQTT = "mqtt"

// HAEntityConfig is the retained config payload Home Assistant reads from
// <prefix>/<component>/<node>/<object>/config.
type HAEntityConfig struct {
	Device            HADevice `json:"device"`
	Origin            HAOrigin `json:"origin"`
	Platform          string   `json:"platform"`
	Name              string   `json:"name"`
	UniqueId          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic,omitempty"`
	AvailabilityTopic string   `json:"availability_topic,omitempty"`
	PayloadOn         string   `json:"payload_on,omitempty"`
	PayloadOff        string   `json:"payload_off,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	DisplayPrecision  *int     `json:"suggested_display_precision,omitempty"`
	EntityCategory    string   `json:"entity_category,omitempty"`
	EnabledByDefault  *bool    `json:"enabled_by_default,omitempty"`
	Icon              string   `json:"icon,omitempty"`
}

type HADevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	SwVersion    string   `json:"sw_version,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

type HAOrigin struct {
	Name      string `json:"name"`
	SwVersion string `json:"sw_version,omitempty"`
}

// DiscoveryMessage pairs a config payload with its discovery topic.
type DiscoveryMessage struct {
	Topic  string
	Config HAEntityConfig
}

// DiscoveryMessages builds the Home Assistant configs for every sensor and switch.
// All sensor values are whole numbers, so numeric sensors ask for no decimals.
func (c *MQTTClient) DiscoveryMessages(sensors []domain.GenericSensor, switches []domain.GenericSwitch) []DiscoveryMessage {
	noDecimals := 0
	msgs := make([]DiscoveryMessage, 0, len(sensors)+len(switches))

	for _, s := range sensors {
		cfg := c.entityConfig(s.Device, s.Name, s.UniqueId, s.Icon)
		cfg.StateClass = s.StateClass
		cfg.DeviceClass = s.DeviceClass
		cfg.UnitOfMeasurement = s.UnitOfMeasurement
		cfg.EntityCategory = s.EntityCategory
		cfg.EnabledByDefault = s.EnabledByDefault

		switch {
		case s.Id == domain.SENSOR_ID_BRIDGE_STATE:
			cfg.StateTopic = c.BridgeStateTopic()
			cfg.PayloadOn, cfg.PayloadOff = MQTT_PAYLOAD_ONLINE, MQTT_PAYLOAD_OFFLINE
		case s.SensorType == domain.SENSOR_TYPE_BINARY:
			cfg.StateTopic = c.BinarySensorStateTopic(s.Id)
			cfg.PayloadOn, cfg.PayloadOff = MQTT_PAYLOAD_ON, MQTT_PAYLOAD_OFF
		default:
			cfg.StateTopic = c.SensorStateTopic(s.Id)
			cfg.DisplayPrecision = &noDecimals
		}
		msgs = append(msgs, DiscoveryMessage{
			Topic:  discoveryTopic(c.DiscoveryPrefix(), s.SensorType, s.Device.Id, s.Id),
			Config: cfg,
		})
	}

	for _, sw := range switches {
		cfg := c.entityConfig(sw.Device, sw.Name, sw.UniqueId, sw.Icon)
		cfg.StateTopic = c.SwitchStateTopic(sw.Id)
		cfg.CommandTopic = c.SwitchCommandTopic(sw.Id)
		cfg.PayloadOn, cfg.PayloadOff = MQTT_PAYLOAD_ON, MQTT_PAYLOAD_OFF
		msgs = append(msgs, DiscoveryMessage{
			Topic:  discoveryTopic(c.DiscoveryPrefix(), "switch", sw.Device.Id, sw.Id),
			Config: cfg,
		})
	}
	return msgs
}

func (c *MQTTClient) entityConfig(d domain.Device, name, uniqueId, icon string) HAEntityConfig {
	return HAEntityConfig{
		Device: HADevice{
			Identifiers:  []string{d.Id},
			Name:         d.Name,
			Manufacturer: d.Manufacturer,
			Model:        d.Model,
			SwVersion:    d.Version,
			ViaDevice:    d.ViaDevice,
		},
		Origin:            HAOrigin{Name: d.Model, SwVersion: d.Version},
		Platform:          HA_PLATFORM_MQTT,
		Name:              name,
		UniqueId:          uniqueId,
		Icon:              icon,
		AvailabilityTopic: c.BridgeStateTopic(),
	}
}

func discoveryTopic(prefix, component, nodeId, objectId string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", prefix, component, nodeId, objectId)
}
