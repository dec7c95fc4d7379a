// Package carcontroller turns actuator requests into the GM command frames
// of one control tick.
package carcontroller

import (
	"fmt"
	"math"

	"gm-can-core/carstate"
	"gm-can-core/utils"
	"gm-can-core/values"
)

// Actuators is the request of the external control loop for one tick.
type Actuators struct {
	Steer float64 // [-1, 1]
	Gas   float64 // [0, 1]
	Brake float64 // [0, 1]
}

// HUD is the dashboard information supplied by the caller.
type HUD struct {
	VCruise     float64 // m/s
	LeadVisible bool
	Alert       values.VisualAlert
}

// Session is the controller state carried across ticks.
type Session struct {
	ApplySteerLast   float64
	PedalSteady      float64
	LastIcon         IconStatus
	SteerRateLimited bool

	// LastPedal is the clipped pedal command of the most recent tick.
	LastPedal float64
}

// Controller runs once per control tick. It is not safe for concurrent use.
type Controller struct {
	profile values.VehicleProfile
	params  values.CarControllerParams
	sched   Schedule
	packer  Packer
	log     *utils.Logger

	session Session
}

func NewController(profile values.VehicleProfile, params values.CarControllerParams, packer Packer, log *utils.Logger) (*Controller, error) {
	if packer == nil {
		return nil, fmt.Errorf("controller needs a packer")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("controller params: %w", err)
	}
	return &Controller{
		profile: profile,
		params:  params,
		sched:   NewSchedule(params),
		packer:  packer,
		log:     log,
	}, nil
}

// Session returns a copy of the state carried across ticks.
func (c *Controller) Session() Session {
	return c.session
}

func sanitize(a Actuators) Actuators {
	return Actuators{
		Steer: Clip(a.Steer, -1, 1),
		Gas:   Clip(a.Gas, 0, 1),
		Brake: Clip(a.Brake, 0, 1),
	}
}

// Update builds the frames of one tick, ordered steering, pedal, dashboard,
// keep-alive, icon. A nil state is treated as disabled. On error nothing is
// returned and the session is left as it was.
func (c *Controller) Update(enabled bool, cs *carstate.VehicleState, frame uint64, actuators Actuators, hud HUD) ([]OutgoingFrame, error) {
	p := c.params
	next := c.session
	act := sanitize(actuators)

	if cs == nil {
		enabled = false
	}
	lkasEnabled := enabled && !cs.SteerWarning && cs.VEgo > p.MinSteerSpeed

	lkaActive := lkasEnabled
	icon := IconStatus{Active: lkaActive, Critical: lkaActive && math.Abs(act.Steer) > 0.9}
	withPedal := c.profile.SendsPedalCommand()
	plan := c.sched.Plan(frame, withPedal, icon, next.LastIcon)

	var sends []OutgoingFrame

	// STEER
	if plan.Steer {
		applySteer := 0.0
		if lkasEnabled {
			newSteer := act.Steer * p.SteerMax
			applySteer, next.SteerRateLimited = RateLimitSteer(newSteer, next.ApplySteerLast, cs.SteeringTorqueDriver, p)
			if next.SteerRateLimited {
				c.log.Trace("steer rate limited frame=%d desired=%.1f applied=%.0f last=%.0f",
					frame, newSteer, applySteer, next.ApplySteerLast)
			}
		} else {
			next.SteerRateLimited = false
		}
		next.ApplySteerLast = applySteer

		f, err := CreateSteeringControl(c.packer, values.BusPowertrain, int(applySteer), plan.SteerCounter, lkasEnabled)
		if err != nil {
			return nil, err
		}
		sends = append(sends, f)
	}

	// GAS/BRAKE, treated as one pedal
	if withPedal {
		// In L the drivetrain coasts at about 1/5 pedal: below that is regen,
		// above it acceleration.
		zero := p.PedalZero
		gas := (1-zero)*act.Gas + zero
		regen := Clip(act.Brake, 0, zero)
		finalPedal := gas - regen
		if !enabled {
			// A zero request maps to PedalZero, not 0; send 0 when disabled.
			finalPedal = 0
		}

		finalPedal, next.PedalSteady = PedalHysteresis(finalPedal, next.PedalSteady, p.PedalHystGap)
		pedalGas := Clip(finalPedal, 0, 1)
		next.LastPedal = pedalGas

		if plan.Pedal {
			f, err := CreateGasCommand(c.packer, c.profile, pedalGas, plan.PedalCounter)
			if err != nil {
				return nil, err
			}
			c.log.Trace("pedal frame=%d gas=%.3f", frame, pedalGas)
			sends = append(sends, f)
		}
	}

	// ACC status on the dash
	if plan.Dashboard {
		vCruise := 0.0
		if !math.IsNaN(hud.VCruise) {
			vCruise = hud.VCruise
		}
		f, err := CreateACCDashboardCommand(c.packer, values.BusPowertrain, enabled,
			vCruise*values.MsToKph, hud.LeadVisible, hud.Alert == values.AlertFCW)
		if err != nil {
			return nil, err
		}
		sends = append(sends, f)
	}

	if plan.Keepalive {
		sends = append(sends, CreateADASKeepalive(values.BusPowertrain)...)
	}

	// The icon disappears after about 5 s unless resent, so it doubles as
	// the camera keep-alive.
	if plan.Icon {
		steerAlert := hud.Alert == values.AlertSteerRequired
		sends = append(sends, CreateLKAIconCommand(values.BusSWGMLAN, icon.Active, icon.Critical, steerAlert))
		next.LastIcon = icon
	}

	c.session = next
	return sends, nil
}
