package domain

import "fmt"

// ControlRequest

type ControlRequest interface {
	ActorRequest
	ControlCommand() string
}

type ControlRequestMixIn struct {
	ActorRequestMixIn
}

func (r ControlRequestMixIn) ControlCommand() string {
	return fmt.Sprintf("%T", r)
}

// Control commands

// PowerModeEnableRequest toggles adaptive power mode. When disabled the
// ceiling is pinned to the base ceiling regardless of solar and SoC signals.
type PowerModeEnableRequest struct {
	ControlRequestMixIn
	Enable bool
}

type PowerModeEnableResponse struct {
	ActorResponseMixIn
	Changed bool
}

// ensure interface compliance
var _ ControlRequest = (*PowerModeEnableRequest)(nil)
