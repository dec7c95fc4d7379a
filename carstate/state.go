package carstate

import "gm-can-core/values"

// WheelSpeeds are in m/s.
type WheelSpeeds struct {
	FL, FR, RL, RR float64
}

// VehicleState is the normalized snapshot of one control tick.
type VehicleState struct {
	WheelSpeeds WheelSpeeds

	VEgoRaw    float64
	VEgo       float64
	AEgo       float64
	Standstill bool

	SteeringAngleDeg     float64
	SteeringRateDeg      float64
	SteeringTorqueDriver float64
	SteeringTorqueEps    float64
	SteeringPressed      bool
	SteerWarning         bool

	Gas          float64
	GasPressed   bool
	Brake        float64
	BrakePressed bool
	RegenPressed bool
	BrakeLights  bool

	GearShifter values.GearShifter

	DoorOpen          bool
	SeatbeltUnlatched bool
	LeftBlinker       bool
	RightBlinker      bool
	ParkBrake         bool
	EspDisabled       bool

	MainOn           bool
	AccState         values.AccState
	CruiseAvailable  bool
	CruiseEnabled    bool
	CruiseStandstill bool

	CruiseButtons     values.CruiseButtons
	PrevCruiseButtons values.CruiseButtons

	HVBatteryPowerKW float64
}
