package domain

import "fmt"

// SensorUpdateEvent is published on the event stream whenever a value shown
// on MQTT changes.
type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

type SensorUpdateEventMixIn struct {
	Id string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

// IntSensorUpdateEvent carries watts, percent and counters, all whole numbers.
type IntSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value int64
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// BridgeStateUpdateEvent reports the bridge availability, online or offline.
type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Online bool
}
