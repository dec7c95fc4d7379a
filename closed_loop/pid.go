package main

// PIDConfig holds the speed PID parameters
type PIDConfig struct {
	TargetVelocityMPS float64 `json:"target_velocity_mps"`
	Kp                float64 `json:"kp"`
	Ki                float64 `json:"ki"`
	Kd                float64 `json:"kd"`
	IntegralLimit     float64 `json:"integral_limit"`
}

// PIDController tracks a target speed and outputs a signed longitudinal
// request in [-1, 1]: positive is gas, negative is brake.
type PIDController struct {
	cfg PIDConfig

	integral    float64
	prevError   float64
	initialized bool
}

func NewPIDController(cfg PIDConfig) *PIDController {
	return &PIDController{cfg: cfg}
}

// Reset clears the PID state
func (pid *PIDController) Reset() {
	pid.integral = 0.0
	pid.prevError = 0.0
	pid.initialized = false
}

// Update computes the request for the current speed
func (pid *PIDController) Update(currentVelocity float64, dt float64) float64 {
	err := pid.cfg.TargetVelocityMPS - currentVelocity
	if !pid.initialized {
		pid.prevError = err
		pid.initialized = true
	}

	p := pid.cfg.Kp * err

	pid.integral += err * dt
	if pid.integral > pid.cfg.IntegralLimit {
		pid.integral = pid.cfg.IntegralLimit
	} else if pid.integral < -pid.cfg.IntegralLimit {
		pid.integral = -pid.cfg.IntegralLimit
	}
	i := pid.cfg.Ki * pid.integral

	var d float64
	if dt > 0 {
		d = pid.cfg.Kd * (err - pid.prevError) / dt
	}
	pid.prevError = err

	u := p + i + d
	if u > 1 {
		u = 1
		// Anti-windup: back-calculate integral
		if pid.cfg.Ki != 0 {
			pid.integral = (u - p - d) / pid.cfg.Ki
		}
	} else if u < -1 {
		u = -1
		if pid.cfg.Ki != 0 {
			pid.integral = (u - p - d) / pid.cfg.Ki
		}
	}
	return u
}

// Split turns a signed request into gas and brake fractions
func Split(u float64) (gas, brake float64) {
	if u >= 0 {
		return u, 0
	}
	return 0, -u
}

// PIDDiagnostics contains PID internal state for monitoring
type PIDDiagnostics struct {
	Error    float64
	Integral float64
	P        float64
	I        float64
}

// GetDiagnostics returns current PID state for logging/debugging
func (pid *PIDController) GetDiagnostics() PIDDiagnostics {
	return PIDDiagnostics{
		Error:    pid.prevError,
		Integral: pid.integral,
		P:        pid.cfg.Kp * pid.prevError,
		I:        pid.cfg.Ki * pid.integral,
	}
}
