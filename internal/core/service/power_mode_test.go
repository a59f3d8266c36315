package service

import (
	"testing"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func powerModeConfig(policy PowerModePolicy) PowerModeConfig {
	return PowerModeConfig{
		Enabled:        true,
		Policy:         policy,
		BaseCeiling:    400,
		UnitCount:      2,
		PerUnitHighCap: 800,
		SolarThreshold: 400,
		SoCThreshold:   82,
	}
}

func TestPowerModeAllPolicy(t *testing.T) {
	assert := assert.New(t)
	c := NewPowerModeController(powerModeConfig(POWER_MODE_POLICY_ALL))
	assert.Equal(400, c.Ceiling())
	assert.Equal(1600, c.HighCeiling())

	assert.False(c.UpdateSolar(500), "soc never received counts as low")
	assert.Equal(400, c.Ceiling())

	assert.True(c.UpdateSoC(82))
	assert.Equal(1600, c.Ceiling())
	assert.True(c.HighPower())
	assert.Equal(POWER_MODE_HIGH, c.Mode())

	assert.True(c.UpdateSolar(399))
	assert.Equal(400, c.Ceiling())
	assert.Equal(POWER_MODE_BASE, c.Mode())

	// order of arrival does not matter
	assert.True(c.Update(domain.TelemetrySample{Channel: domain.CHANNEL_SOLAR, Value: 400}))
	assert.False(c.UpdateSoC(90))
	assert.Equal(1600, c.Ceiling())
}

func TestPowerModeAnyPolicy(t *testing.T) {
	assert := assert.New(t)
	c := NewPowerModeController(powerModeConfig(POWER_MODE_POLICY_ANY))

	assert.True(c.UpdateSoC(85))
	assert.Equal(1600, c.Ceiling())

	assert.False(c.UpdateSolar(10), "soc still high")
	assert.Equal(1600, c.Ceiling())

	assert.True(c.UpdateSoC(50))
	assert.Equal(400, c.Ceiling())

	assert.True(c.Update(domain.TelemetrySample{Channel: domain.CHANNEL_SOLAR, Value: 1200}))
	assert.Equal(1600, c.Ceiling())
}

func TestPowerModeDisabled(t *testing.T) {
	assert := assert.New(t)
	cfg := powerModeConfig(POWER_MODE_POLICY_ANY)
	cfg.Enabled = false
	c := NewPowerModeController(cfg)

	assert.False(c.UpdateSolar(2000))
	assert.False(c.UpdateSoC(100))
	assert.Equal(400, c.Ceiling())
	assert.False(c.HighPower())

	assert.True(c.SetEnabled(true))
	assert.Equal(1600, c.Ceiling())
	assert.True(c.Enabled())

	assert.True(c.SetEnabled(false))
	assert.Equal(400, c.Ceiling())
}

func TestPowerModeIgnoresPrimaryChannel(t *testing.T) {
	c := NewPowerModeController(powerModeConfig(POWER_MODE_POLICY_ANY))
	assert.False(t, c.Update(domain.TelemetrySample{Channel: domain.CHANNEL_POWER, Value: 5000}))
	assert.Equal(t, 400, c.Ceiling())
}
