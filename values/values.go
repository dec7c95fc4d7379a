// Package values holds the GM vehicle constants: fingerprints, bus numbers,
// message names, discrete signal enums and the controller limits.
package values

// Control loop period and unit conversions.
const (
	DtCtrl  = 0.01 // 100 Hz
	KphToMs = 1 / 3.6
	MsToKph = 3.6
)

// SteerThreshold is the driver torque (Nm) above which the wheel counts as pressed.
const SteerThreshold = 1.0

// CanBus numbers of the harness.
type CanBus uint8

const (
	BusPowertrain CanBus = 0
	BusObstacle   CanBus = 1
	BusChassis    CanBus = 2
	BusSWGMLAN    CanBus = 3
)

func (b CanBus) String() string {
	switch b {
	case BusPowertrain:
		return "powertrain"
	case BusObstacle:
		return "obstacle"
	case BusChassis:
		return "chassis"
	case BusSWGMLAN:
		return "sw_gmlan"
	default:
		return "unknown"
	}
}

// Powertrain message names as they appear in the signal dictionary.
const (
	MsgWheelSpdFront     = "EBCMWheelSpdFront"
	MsgWheelSpdRear      = "EBCMWheelSpdRear"
	MsgSteeringAngle     = "PSCMSteeringAngle"
	MsgPRNDL             = "ECMPRDNL"
	MsgBrakePedal        = "EBCMBrakePedalPosition"
	MsgAcceleratorPedal  = "AcceleratorPedal"
	MsgPSCMStatus        = "PSCMStatus"
	MsgDoorBeltStatus    = "BCMDoorBeltStatus"
	MsgTurnSignals       = "BCMTurnSignals"
	MsgEPBStatus         = "EPBStatus"
	MsgEngineStatus      = "ECMEngineStatus"
	MsgESPStatus         = "ESPStatus"
	MsgACCStatus         = "ASCMActiveCruiseControlStatus"
	MsgSteeringButton    = "ASCMSteeringButton"
	MsgRegenPaddle       = "EBCMRegenPaddle"
	MsgBatteryVoltageCur = "BECMBatteryVoltageCurrent"

	MsgLKASteeringCmd = "ASCMLKASteeringCmd"
	MsgGasCommand     = "GAS_COMMAND"
)

// Raw frames that do not go through the signal dictionary.
const (
	KeepaliveID1 uint32 = 0x409
	KeepaliveID2 uint32 = 0x40a
	LKAIconID    uint32 = 0x104c006c
)

// AccState is the ACCCmdActive status reported by the ASCM.
type AccState int

const (
	AccOff        AccState = 0
	AccActive     AccState = 1
	AccFaulted    AccState = 3
	AccStandstill AccState = 4
)

// CruiseButtons is the ACCButtons value of the steering wheel.
type CruiseButtons int

const (
	ButtonInit     CruiseButtons = 0
	ButtonUnpress  CruiseButtons = 1
	ButtonResAccel CruiseButtons = 2
	ButtonDecelSet CruiseButtons = 3
	ButtonMain     CruiseButtons = 5
	ButtonCancel   CruiseButtons = 6
)

type GearShifter int

const (
	GearUnknown GearShifter = iota
	GearPark
	GearReverse
	GearNeutral
	GearDrive
	GearLow
)

func (g GearShifter) String() string {
	switch g {
	case GearPark:
		return "park"
	case GearReverse:
		return "reverse"
	case GearNeutral:
		return "neutral"
	case GearDrive:
		return "drive"
	case GearLow:
		return "low"
	default:
		return "unknown"
	}
}

// GearFromPRNDL maps the ECMPRDNL raw value.
func GearFromPRNDL(raw int) GearShifter {
	switch raw {
	case 1:
		return GearPark
	case 2:
		return GearReverse
	case 3:
		return GearNeutral
	case 4:
		return GearDrive
	case 6:
		return GearLow
	default:
		return GearUnknown
	}
}

// VisualAlert is the HUD alert requested by the caller.
type VisualAlert int

const (
	AlertNone VisualAlert = iota
	AlertFCW
	AlertSteerRequired
	AlertLDW
)

func (a VisualAlert) String() string {
	switch a {
	case AlertNone:
		return "none"
	case AlertFCW:
		return "fcw"
	case AlertSteerRequired:
		return "steerRequired"
	case AlertLDW:
		return "ldw"
	default:
		return "unknown"
	}
}
