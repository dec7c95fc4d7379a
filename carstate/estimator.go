package carstate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"gm-can-core/utils"
	"gm-can-core/values"
)

// Signals holds the decoded values of one tick: message name -> signal
// name -> physical value. A message key is present only if that message
// (or the caller's default for it) is available.
type Signals map[string]map[string]float64

const (
	brakeFullScale  = 0xd0
	brakeNoiseFloor = 10.0 / brakeFullScale
	gasFullScale    = 254.0
	pressedEpsilon  = 1e-5
	standstillSpeed = 0.1
)

var requiredMessages = []string{
	values.MsgWheelSpdFront,
	values.MsgWheelSpdRear,
	values.MsgSteeringAngle,
	values.MsgPRNDL,
	values.MsgBrakePedal,
	values.MsgAcceleratorPedal,
	values.MsgPSCMStatus,
	values.MsgDoorBeltStatus,
	values.MsgTurnSignals,
	values.MsgEPBStatus,
	values.MsgEngineStatus,
	values.MsgESPStatus,
	values.MsgACCStatus,
	values.MsgSteeringButton,
}

// Estimator builds a VehicleState from the decoded powertrain signals.
// Everything the estimator carries between ticks (speed filter, previous
// cruise button) only advances when Update succeeds.
type Estimator struct {
	profile values.VehicleProfile
	speed   SpeedFilter
	log     *utils.Logger

	cruiseButtons values.CruiseButtons
	steerWarning  bool
}

// NewEstimator returns an estimator for profile. A nil speed filter selects
// the default SpeedKF.
func NewEstimator(profile values.VehicleProfile, speed SpeedFilter, log *utils.Logger) *Estimator {
	if speed == nil {
		speed = NewSpeedKF()
	}
	return &Estimator{
		profile:       profile,
		speed:         speed,
		log:           log,
		cruiseButtons: values.ButtonUnpress,
	}
}

// RequiredMessages lists what Update needs for this profile.
func (e *Estimator) RequiredMessages() []string {
	out := append([]string(nil), requiredMessages...)
	if e.profile.SupportsRegen {
		out = append(out, values.MsgRegenPaddle)
	}
	return out
}

// Update decodes one tick. It fails with *MissingSignalError when a required
// signal is absent and leaves the estimator untouched in that case.
func (e *Estimator) Update(sig Signals) (*VehicleState, error) {
	r := signalReader{sig: sig}
	for _, msg := range e.RequiredMessages() {
		r.require(msg)
	}

	ws := WheelSpeeds{
		FL: r.get(values.MsgWheelSpdFront, "FLWheelSpd") * values.KphToMs,
		FR: r.get(values.MsgWheelSpdFront, "FRWheelSpd") * values.KphToMs,
		RL: r.get(values.MsgWheelSpdRear, "RLWheelSpd") * values.KphToMs,
		RR: r.get(values.MsgWheelSpdRear, "RRWheelSpd") * values.KphToMs,
	}

	angle := r.get(values.MsgSteeringAngle, "SteeringWheelAngle")
	rate := r.get(values.MsgSteeringAngle, "SteeringWheelRate")
	prndl := r.get(values.MsgPRNDL, "PRNDL")
	brakeRaw := r.get(values.MsgBrakePedal, "BrakePedalPosition")
	gasRaw := r.get(values.MsgAcceleratorPedal, "AcceleratorPedal")

	driverTrq := r.get(values.MsgPSCMStatus, "LKADriverAppldTrq")
	epsTrq := r.get(values.MsgPSCMStatus, "LKATotalTorqueDelivered")
	lkasStatus := r.get(values.MsgPSCMStatus, "LKATorqueDeliveredStatus")

	doors := []float64{
		r.get(values.MsgDoorBeltStatus, "FrontLeftDoor"),
		r.get(values.MsgDoorBeltStatus, "FrontRightDoor"),
		r.get(values.MsgDoorBeltStatus, "RearLeftDoor"),
		r.get(values.MsgDoorBeltStatus, "RearRightDoor"),
	}
	leftBelt := r.get(values.MsgDoorBeltStatus, "LeftSeatBelt")
	turn := r.get(values.MsgTurnSignals, "TurnSignals")

	epb := r.get(values.MsgEPBStatus, "EPBClosed")
	mainOn := r.get(values.MsgEngineStatus, "CruiseMainOn")
	tcOn := r.get(values.MsgESPStatus, "TractionControlOn")
	acc := r.get(values.MsgACCStatus, "ACCCmdActive")
	buttons := r.get(values.MsgSteeringButton, "ACCButtons")

	var regen float64
	if e.profile.SupportsRegen {
		regen = r.get(values.MsgRegenPaddle, "RegenPaddle")
	}

	var hvPower float64
	if e.profile.HasHVBattery && r.has(values.MsgBatteryVoltageCur) {
		volts := r.get(values.MsgBatteryVoltageCur, "HVBatteryVoltage")
		amps := r.get(values.MsgBatteryVoltageCur, "HVBatteryCurrent")
		hvPower = volts * amps / 1000
	}

	if r.err != nil {
		return nil, r.err
	}

	// Nothing below can fail; estimator state is committed from here on.
	ret := &VehicleState{WheelSpeeds: ws}

	ret.VEgoRaw = stat.Mean([]float64{ws.FL, ws.FR, ws.RL, ws.RR}, nil)
	vEgo, aEgo := e.speed.Update(ret.VEgoRaw)
	ret.VEgo = math.Max(vEgo, 0)
	ret.AEgo = aEgo
	ret.Standstill = !(ret.VEgoRaw > standstillSpeed)

	ret.SteeringAngleDeg = angle
	ret.SteeringRateDeg = rate
	ret.GearShifter = values.GearFromPRNDL(int(prndl))

	ret.Brake = clip01(brakeRaw / brakeFullScale)
	// The brake potentiometer reads slightly above zero with the pedal released.
	if ret.Brake < brakeNoiseFloor {
		ret.Brake = 0
	}

	ret.Gas = clip01(gasRaw / gasFullScale)
	// With the interceptor the pedal signal mixes our command and the driver's.
	if !e.profile.PedalInterceptor {
		ret.GasPressed = ret.Gas > pressedEpsilon
	}

	ret.SteeringTorqueDriver = driverTrq
	ret.SteeringTorqueEps = epsTrq
	ret.SteeringPressed = math.Abs(driverTrq) > values.SteerThreshold

	for _, d := range doors {
		if d == 1 {
			ret.DoorOpen = true
		}
	}
	ret.SeatbeltUnlatched = leftBelt == 0
	ret.LeftBlinker = turn == 1
	ret.RightBlinker = turn == 2

	ret.ParkBrake = epb != 0
	ret.EspDisabled = tcOn != 1

	ret.MainOn = mainOn != 0
	// CruiseMainOn reads inverted behind the pedal interceptor.
	ret.CruiseAvailable = ret.MainOn != e.profile.InvertedCruiseAvailable
	ret.AccState = values.AccState(int(acc))
	ret.CruiseEnabled = ret.AccState != values.AccOff
	ret.CruiseStandstill = ret.AccState == values.AccStandstill

	ret.PrevCruiseButtons = e.cruiseButtons
	ret.CruiseButtons = values.CruiseButtons(int(buttons))
	e.cruiseButtons = ret.CruiseButtons

	ret.RegenPressed = regen != 0
	ret.BrakePressed = ret.Brake > pressedEpsilon || ret.RegenPressed

	accelLight := e.profile.BrakeLightAccelThreshold < 0 && ret.AEgo < e.profile.BrakeLightAccelThreshold
	ret.BrakeLights = ret.BrakePressed || ret.RegenPressed || accelLight

	// 0 inactive, 1 active, 2 temporarily limited, 3 failed
	status := int(lkasStatus)
	ret.SteerWarning = status != 0 && status != 1
	if ret.SteerWarning != e.steerWarning {
		e.log.Debug("steer warning %v (LKATorqueDeliveredStatus=%d)", ret.SteerWarning, status)
		e.steerWarning = ret.SteerWarning
	}

	ret.HVBatteryPowerKW = hvPower

	return ret, nil
}

// signalReader keeps the first missing signal.
type signalReader struct {
	sig Signals
	err error
}

func (r *signalReader) has(msg string) bool {
	_, ok := r.sig[msg]
	return ok
}

func (r *signalReader) require(msg string) {
	if r.err == nil && !r.has(msg) {
		r.err = &MissingSignalError{Message: msg}
	}
}

func (r *signalReader) get(msg, name string) float64 {
	vals, ok := r.sig[msg]
	if !ok {
		if r.err == nil {
			r.err = &MissingSignalError{Message: msg, Signal: name}
		}
		return 0
	}
	v, ok := vals[name]
	if !ok {
		if r.err == nil {
			r.err = &MissingSignalError{Message: msg, Signal: name}
		}
		return 0
	}
	return v
}

func clip01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
