package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE    = "bridge"
	SENSOR_ID_SIGNAL_POWER    = "signal_power"
	SENSOR_ID_DEMAND          = "demand_per_unit"
	SENSOR_ID_CEILING         = "output_ceiling"
	SENSOR_ID_SOLAR_POWER     = "solar_power"
	SENSOR_ID_BATTERY_SOC     = "battery_soc"
	SENSOR_ID_HIGH_POWER      = "high_power"
	SENSOR_ID_OUTAGE          = "outage"
	SENSOR_ID_OUTAGE_COUNT    = "outage_count"
	SWITCH_ID_POWER_MODE      = "power_mode"
	STATE_CLASS_MEASUREMENT   = "measurement"
	STATE_CLASS_TOTAL         = "total_increasing"
	DEVICE_CLASS_BATTERY      = "battery"
	DEVICE_CLASS_POWER        = "power"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	DEVICE_CLASS_PROBLEM      = "problem"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	SENSOR_TYPE_SENSOR        = "sensor"
	SENSOR_TYPE_BINARY        = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("mqtt2soyo_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "gridtie",
		Model:        "mqtt2soyo",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Soyosource meter %s", md5HashShort(baseTopic)),
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Connection state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

// ControlSensors are the sensors fed by the control loop and the outage watchdog.
func ControlSensors(bridgeDevice Device) []GenericSensor {
	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:            bridgeDevice,
		Id:                SENSOR_ID_SIGNAL_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Grid power signal",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(bridgeDevice.Id, SENSOR_ID_SIGNAL_POWER),
	})
	sensors = append(sensors, GenericSensor{
		Device:            bridgeDevice,
		Id:                SENSOR_ID_DEMAND,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Demand per unit",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(bridgeDevice.Id, SENSOR_ID_DEMAND),
	})
	sensors = append(sensors, GenericSensor{
		Device:            bridgeDevice,
		Id:                SENSOR_ID_CEILING,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Output ceiling",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(bridgeDevice.Id, SENSOR_ID_CEILING),
		Icon:              "mdi:transmission-tower-import",
	})
	sensors = append(sensors, GenericSensor{
		Device:            bridgeDevice,
		Id:                SENSOR_ID_SOLAR_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Solar power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(bridgeDevice.Id, SENSOR_ID_SOLAR_POWER),
		EnabledByDefault:  optionalBool(false),
	})
	sensors = append(sensors, GenericSensor{
		Device:            bridgeDevice,
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(bridgeDevice.Id, SENSOR_ID_BATTERY_SOC),
		EnabledByDefault:  optionalBool(false),
	})
	sensors = append(sensors, GenericSensor{
		Device:     bridgeDevice,
		Id:         SENSOR_ID_HIGH_POWER,
		SensorType: SENSOR_TYPE_BINARY,
		Name:       "High power mode",
		UniqueId:   uniqueId(bridgeDevice.Id, SENSOR_ID_HIGH_POWER),
		Icon:       "mdi:solar-power-variant",
	})
	sensors = append(sensors, GenericSensor{
		Device:      bridgeDevice,
		Id:          SENSOR_ID_OUTAGE,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Telemetry outage",
		DeviceClass: DEVICE_CLASS_PROBLEM,
		UniqueId:    uniqueId(bridgeDevice.Id, SENSOR_ID_OUTAGE),
	})
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_OUTAGE_COUNT,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Telemetry outages",
		StateClass:     STATE_CLASS_TOTAL,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_OUTAGE_COUNT),
		Icon:           "mdi:lan-disconnect",
	})

	return sensors
}

func ControlSwitches(bridgeDevice Device) []GenericSwitch {
	return []GenericSwitch{
		{
			Device:   bridgeDevice,
			Id:       SWITCH_ID_POWER_MODE,
			Name:     "Adaptive power mode",
			UniqueId: uniqueId(bridgeDevice.Id, SWITCH_ID_POWER_MODE),
			Icon:     "mdi:flash-auto",
		},
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
