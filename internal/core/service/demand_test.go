package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemandBranches(t *testing.T) {
	tests := []struct {
		name     string
		signal   int
		ceiling  int
		buffer   int
		units    int
		expected int
	}{
		{"above ceiling and buffer", 600, 400, -90, 2, 200},
		{"negative buffer reaches full ceiling below ceiling", 350, 400, -90, 2, 200},
		{"above ceiling with positive buffer", 450, 400, 100, 2, 150},
		{"tracking", 200, 400, -90, 2, 145},
		{"tracking odd", 201, 400, -90, 2, 145},
		{"tracking single unit", 1, 400, -90, 1, 91},
		{"below positive buffer", 50, 400, 100, 2, 0},
		{"zero", 0, 400, -90, 2, 0},
		{"exporting", -500, 400, -90, 2, 0},
		{"high ceiling", 2000, 1600, -90, 2, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeDemand(tt.signal, tt.ceiling, tt.buffer, tt.units))
		})
	}
}

func TestDemandFullCeilingAboveBuffer(t *testing.T) {
	assert := assert.New(t)
	for units := 1; units <= 4; units++ {
		for signal := 310; signal < 5000; signal += 7 {
			assert.Equal(400/units, ComputeDemand(signal, 400, -90, units), "signal %d units %d", signal, units)
		}
	}
}

func TestDemandZeroBelowOne(t *testing.T) {
	assert := assert.New(t)
	for signal := -3000; signal < 1; signal += 13 {
		assert.Equal(0, ComputeDemand(signal, 400, -90, 2), "signal %d", signal)
	}
	assert.Equal(0, ComputeDemand(0, 400, -90, 2))
}

func TestDemandRectifierIdentity(t *testing.T) {
	assert := assert.New(t)
	buffer := -90
	ceiling := 400
	for units := 1; units <= 3; units++ {
		for signal := 1; signal <= ceiling+buffer; signal++ {
			assert.Equal((signal-buffer)/units, ComputeDemand(signal, ceiling, buffer, units), "signal %d units %d", signal, units)
		}
	}
	// positive buffer floors at zero below the buffer
	for signal := 1; signal < 100; signal++ {
		assert.Equal(0, ComputeDemand(signal, 400, 100, 2))
	}
}
