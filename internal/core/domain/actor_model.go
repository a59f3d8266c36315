package domain

import "time"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_SERIAL       = "serial"
	ACTOR_ID_CONTROL      = "control"
	ACTOR_ID_WATCHDOG     = "watchdog"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_POLL         = "poll"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

const (
	FRAME_ORIGIN_CONTROL  = "control"
	FRAME_ORIGIN_WATCHDOG = "watchdog"
)

type WriteFrameRequest struct {
	ActorRequestMixIn
	Frame  CommandFrame
	Origin string
}

type WriteFrameResponse struct {
	ActorResponseMixIn
	Frame CommandFrame
}

// TelemetrySeen tells the watchdog that a primary channel sample was accepted.
type TelemetrySeen struct {
	At time.Time
}

type GetControlStateRequest struct {
	ActorRequestMixIn
}

type GetControlStateResponse struct {
	ActorResponseMixIn
	Ceiling          int
	HighPower        bool
	PowerModeEnabled bool
	LastSignal       *TelemetrySample
	LastDemand       int
	LastFrame        *CommandFrame
}

type GetWatchdogStateRequest struct {
	ActorRequestMixIn
}

type GetWatchdogStateResponse struct {
	ActorResponseMixIn
	Outage      bool
	OutageCount uint64
	LastSeen    time.Time
	Bursting    bool
}

type GetStatusRequest struct {
	ActorRequestMixIn
}

type GetStatusResponse struct {
	ActorResponseMixIn
	Control  GetControlStateResponse
	Watchdog GetWatchdogStateResponse
}

// PublishStateRequest asks an actor to publish its current sensor values again.
type PublishStateRequest struct {
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors  []GenericSensor
	Switches []GenericSwitch
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
