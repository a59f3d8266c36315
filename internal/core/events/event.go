package events

import (
	. "github.com/gridtie/mqtt2soyo/internal/core/domain"
)

func SignalUpdateEvents(signal, demand int) []any {
	var events []any

	// Grid power signal
	events = append(events, IntSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SIGNAL_POWER,
		},
		Value: int64(signal),
	})
	// Demand per unit
	events = append(events, IntSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_DEMAND,
		},
		Value: int64(demand),
	})

	return events
}

func AuxiliarySignalUpdateEvent(channel Channel, value int) any {
	id := SENSOR_ID_SOLAR_POWER
	if channel == CHANNEL_SOC {
		id = SENSOR_ID_BATTERY_SOC
	}
	return IntSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: id,
		},
		Value: int64(value),
	}
}

func CeilingUpdateEvents(ceiling int, highPower bool) []any {
	var events []any

	// Output ceiling
	events = append(events, IntSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CEILING,
		},
		Value: int64(ceiling),
	})
	// High power mode
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_HIGH_POWER,
		},
		Value: highPower,
	})

	return events
}

func OutageUpdateEvents(outage bool, count uint64) []any {
	var events []any

	// Outage state
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_OUTAGE,
		},
		Value: outage,
	})
	// Outage counter
	events = append(events, IntSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_OUTAGE_COUNT,
		},
		Value: int64(count),
	})

	return events
}

func PowerModeSwitchUpdateEvent(enabled bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_POWER_MODE,
		},
		Value: enabled,
	}
}
