package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	gas, brake := Split(0.4)
	assert.Equal(t, 0.4, gas)
	assert.Zero(t, brake)

	gas, brake = Split(-0.25)
	assert.Zero(t, gas)
	assert.Equal(t, 0.25, brake)
}

func TestPIDController_Proportional(t *testing.T) {
	pid := NewPIDController(PIDConfig{TargetVelocityMPS: 10, Kp: 0.1, IntegralLimit: 1})

	assert.InDelta(t, 0.5, pid.Update(5, 0.01), 1e-12)
	assert.InDelta(t, -0.2, pid.Update(12, 0.01), 1e-12)
}

func TestPIDController_Saturates(t *testing.T) {
	pid := NewPIDController(PIDConfig{TargetVelocityMPS: 30, Kp: 1, Ki: 0.5, IntegralLimit: 100})

	for i := 0; i < 500; i++ {
		assert.Equal(t, 1.0, pid.Update(0, 0.01))
	}
	// Back-calculation keeps the integral from winding up while saturated.
	assert.LessOrEqual(t, pid.GetDiagnostics().Integral, 0.0)

	u := pid.Update(29.9, 0.01)
	assert.Less(t, u, 1.0)
}

func TestPIDController_IntegralLimit(t *testing.T) {
	pid := NewPIDController(PIDConfig{TargetVelocityMPS: 1, Ki: 0.1, IntegralLimit: 0.05})
	for i := 0; i < 100; i++ {
		pid.Update(0, 0.01)
	}
	assert.InDelta(t, 0.05, pid.GetDiagnostics().Integral, 1e-12)

	pid.Reset()
	diag := pid.GetDiagnostics()
	assert.Zero(t, diag.Integral)
	assert.Zero(t, diag.Error)
}
