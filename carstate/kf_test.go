package carstate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeedKF_ResetsOnLargeJump(t *testing.T) {
	f := NewSpeedKF()
	v, a := f.Update(10)
	assert.InDelta(t, 10.0, v, 1e-9)
	assert.InDelta(t, 0.0, a, 1e-9)
}

func TestSpeedKF_TracksConstantAcceleration(t *testing.T) {
	f := NewSpeedKF()
	f.Reset(5)

	var v, a float64
	speed := 5.0
	for i := 0; i < 2000; i++ {
		speed += 1.0 * 0.01
		v, a = f.Update(speed)
	}
	assert.InDelta(t, speed, v, 0.05)
	assert.InDelta(t, 1.0, a, 0.05)
}

func TestSpeedKF_IgnoresNaN(t *testing.T) {
	f := NewSpeedKF()
	f.Reset(3)
	v, _ := f.Update(math.NaN())
	assert.Equal(t, 3.0, v)
}
