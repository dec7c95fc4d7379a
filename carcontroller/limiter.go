package carcontroller

import (
	"math"

	"gm-can-core/values"
)

// Clip bounds v to [lo, hi]. NaN maps to whichever bound is closer to zero.
func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return Clip(0, lo, hi)
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApplySteerTorqueLimits bounds a desired steering torque by the driver
// override envelope and then by the per-command rate limit. Torques grow by
// at most SteerDeltaUp and shrink by at most SteerDeltaDown per command.
// The result is rounded to a whole raw torque.
func ApplySteerTorqueLimits(desired, last, driverTorque float64, p values.CarControllerParams) float64 {
	if math.IsNaN(driverTorque) || math.IsInf(driverTorque, 0) {
		driverTorque = 0
	}
	desired = Clip(desired, -p.SteerMax, p.SteerMax)

	// Driver torque against the command shrinks the allowed envelope.
	driverMax := p.SteerMax + (p.SteerDriverAllowance+driverTorque*p.SteerDriverFactor)*p.SteerDriverMultiplier
	driverMin := -p.SteerMax + (-p.SteerDriverAllowance+driverTorque*p.SteerDriverFactor)*p.SteerDriverMultiplier
	maxAllowed := math.Max(math.Min(p.SteerMax, driverMax), 0)
	minAllowed := math.Min(math.Max(-p.SteerMax, driverMin), 0)
	applied := Clip(desired, minAllowed, maxAllowed)

	if last > 0 {
		applied = Clip(applied,
			math.Max(last-p.SteerDeltaDown, -p.SteerDeltaUp),
			last+p.SteerDeltaUp)
	} else {
		applied = Clip(applied,
			last-p.SteerDeltaUp,
			math.Min(last+p.SteerDeltaDown, p.SteerDeltaUp))
	}

	return math.RoundToEven(applied)
}

// RateLimitSteer is ApplySteerTorqueLimits plus whether the request was
// changed by it.
func RateLimitSteer(desired, last, driverTorque float64, p values.CarControllerParams) (float64, bool) {
	applied := ApplySteerTorqueLimits(desired, last, driverTorque, p)
	return applied, applied != desired
}

// PedalHysteresis holds the pedal command still while the request moves
// within gap of the steady value. It returns the command and the new
// steady value, which are always equal.
func PedalHysteresis(finalPedal, steady, gap float64) (float64, float64) {
	switch {
	case finalPedal == 0:
		steady = 0
	case finalPedal > steady+gap:
		steady = finalPedal - gap
	case finalPedal < steady-gap:
		steady = finalPedal + gap
	}
	return steady, steady
}
