package values

import "fmt"

// CarControllerParams are the actuator limits and message periods. Steps are
// in control ticks (10 ms); torques are in raw LKASteeringCmd units.
type CarControllerParams struct {
	SteerMax       float64 `yaml:"steer_max"`
	SteerStep      uint64  `yaml:"steer_step"`
	SteerDeltaUp   float64 `yaml:"steer_delta_up"`   // ~0.75s to peak torque
	SteerDeltaDown float64 `yaml:"steer_delta_down"` // ~0.3s from peak torque to zero
	MinSteerSpeed  float64 `yaml:"min_steer_speed"`  // m/s

	SteerDriverAllowance  float64 `yaml:"steer_driver_allowance"` // driver torque before limiting starts
	SteerDriverMultiplier float64 `yaml:"steer_driver_multiplier"`
	SteerDriverFactor     float64 `yaml:"steer_driver_factor"` // Nm to raw units

	PedalStep     uint64 `yaml:"pedal_step"`
	DashboardStep uint64 `yaml:"dashboard_step"`

	AdasKeepaliveStep   uint64 `yaml:"adas_keepalive_step"`
	CameraKeepaliveStep uint64 `yaml:"camera_keepalive_step"`

	PedalHystGap float64 `yaml:"pedal_hyst_gap"`
	// PedalZero is the pedal value where the drivetrain neither accelerates
	// nor regens in L.
	PedalZero float64 `yaml:"pedal_zero"`
}

func DefaultCarControllerParams() CarControllerParams {
	return CarControllerParams{
		SteerMax:       300,
		SteerStep:      2,
		SteerDeltaUp:   7,
		SteerDeltaDown: 17,
		MinSteerSpeed:  3.0,

		SteerDriverAllowance:  50,
		SteerDriverMultiplier: 4,
		SteerDriverFactor:     100,

		PedalStep:     4,
		DashboardStep: 4,

		AdasKeepaliveStep:   100,
		CameraKeepaliveStep: 100,

		PedalHystGap: 0.01,
		PedalZero:    40.0 / 256.0,
	}
}

// MaxSteerDelta is the largest torque change allowed between two transmitted
// steering commands.
func (p CarControllerParams) MaxSteerDelta() float64 {
	if p.SteerDeltaDown > p.SteerDeltaUp {
		return p.SteerDeltaDown
	}
	return p.SteerDeltaUp
}

func (p CarControllerParams) Validate() error {
	if p.SteerMax <= 0 {
		return fmt.Errorf("steer_max must be positive, got %v", p.SteerMax)
	}
	if p.SteerDeltaUp <= 0 || p.SteerDeltaDown <= 0 {
		return fmt.Errorf("steer deltas must be positive, got up=%v down=%v", p.SteerDeltaUp, p.SteerDeltaDown)
	}
	if p.MinSteerSpeed < 0 {
		return fmt.Errorf("min_steer_speed must not be negative, got %v", p.MinSteerSpeed)
	}
	steps := map[string]uint64{
		"steer_step":            p.SteerStep,
		"pedal_step":            p.PedalStep,
		"dashboard_step":        p.DashboardStep,
		"adas_keepalive_step":   p.AdasKeepaliveStep,
		"camera_keepalive_step": p.CameraKeepaliveStep,
	}
	for name, v := range steps {
		if v == 0 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}
	if p.PedalHystGap < 0 || p.PedalHystGap >= 1 {
		return fmt.Errorf("pedal_hyst_gap must be in [0,1), got %v", p.PedalHystGap)
	}
	if p.PedalZero < 0 || p.PedalZero >= 1 {
		return fmt.Errorf("pedal_zero must be in [0,1), got %v", p.PedalZero)
	}
	return nil
}
