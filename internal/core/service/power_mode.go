package service

import "github.com/gridtie/mqtt2soyo/internal/core/domain"

type PowerModePolicy string

const (
	POWER_MODE_POLICY_ALL PowerModePolicy = "all"
	POWER_MODE_POLICY_ANY PowerModePolicy = "any"
)

type PowerMode string

const (
	POWER_MODE_BASE PowerMode = "base"
	POWER_MODE_HIGH PowerMode = "high"
)

type PowerModeConfig struct {
	Enabled        bool
	Policy         PowerModePolicy
	BaseCeiling    int
	UnitCount      int
	PerUnitHighCap int
	SolarThreshold int
	SoCThreshold   int
}

// PowerModeController selects the fleet output ceiling from the solar
// production and battery state of charge signals. A signal that was never
// received counts as below its threshold.
type PowerModeController struct {
	cfg       PowerModeConfig
	enabled   bool
	solarHigh bool
	socHigh   bool
	ceiling   int
}

func NewPowerModeController(cfg PowerModeConfig) *PowerModeController {
	return &PowerModeController{
		cfg:     cfg,
		enabled: cfg.Enabled,
		ceiling: cfg.BaseCeiling,
	}
}

// Update routes an auxiliary sample to its signal. It reports whether the
// ceiling changed.
func (c *PowerModeController) Update(sample domain.TelemetrySample) bool {
	switch sample.Channel {
	case domain.CHANNEL_SOLAR:
		return c.UpdateSolar(sample.Value)
	case domain.CHANNEL_SOC:
		return c.UpdateSoC(sample.Value)
	}
	return false
}

func (c *PowerModeController) UpdateSolar(watts int) bool {
	c.solarHigh = watts >= c.cfg.SolarThreshold
	return c.recompute()
}

func (c *PowerModeController) UpdateSoC(percent int) bool {
	c.socHigh = percent >= c.cfg.SoCThreshold
	return c.recompute()
}

func (c *PowerModeController) SetEnabled(enabled bool) bool {
	c.enabled = enabled
	return c.recompute()
}

func (c *PowerModeController) recompute() bool {
	prev := c.ceiling
	if c.HighPower() {
		c.ceiling = c.HighCeiling()
	} else {
		c.ceiling = c.cfg.BaseCeiling
	}
	return prev != c.ceiling
}

func (c *PowerModeController) HighPower() bool {
	if !c.enabled {
		return false
	}
	if c.cfg.Policy == POWER_MODE_POLICY_ANY {
		return c.solarHigh || c.socHigh
	}
	return c.solarHigh && c.socHigh
}

func (c *PowerModeController) Mode() PowerMode {
	if c.HighPower() {
		return POWER_MODE_HIGH
	}
	return POWER_MODE_BASE
}

func (c *PowerModeController) HighCeiling() int {
	return c.cfg.UnitCount * c.cfg.PerUnitHighCap
}

func (c *PowerModeController) Ceiling() int {
	return c.ceiling
}

func (c *PowerModeController) Enabled() bool {
	return c.enabled
}
