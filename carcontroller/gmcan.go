package carcontroller

import (
	"fmt"
	"math"

	"go.einride.tech/can"

	"gm-can-core/utils"
	"gm-can-core/values"
)

// Packer encodes named signal values into a frame payload. *utils.CANMap
// satisfies it.
type Packer interface {
	EncodeFrame(frameName string, values map[string]float64) ([]byte, uint32, error)
}

// OutgoingFrame is one frame handed to the transport.
type OutgoingFrame struct {
	ID   uint32
	Data []byte
	Bus  values.CanBus
}

// CANFrame converts to an einride frame for transmission.
func (f OutgoingFrame) CANFrame() can.Frame {
	return utils.RawFrame(f.ID, f.Data)
}

func (f OutgoingFrame) String() string {
	return fmt.Sprintf("0x%X@%s [% X]", f.ID, f.Bus, f.Data)
}

func packFrame(packer Packer, name string, bus values.CanBus, vals map[string]float64) (OutgoingFrame, error) {
	data, id, err := packer.EncodeFrame(name, vals)
	if err != nil {
		return OutgoingFrame{}, fmt.Errorf("encode %s: %w", name, err)
	}
	return OutgoingFrame{ID: id, Data: data, Bus: bus}, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// SteeringChecksum is the LKASteeringCmd checksum over the raw fields.
func SteeringChecksum(applySteer int, idx uint8, active bool) int {
	a := 0
	if active {
		a = 1
	}
	return (0x1000 - (a << 11) - (applySteer & 0x7ff) - int(idx)) & 0x3ff
}

func CreateSteeringControl(packer Packer, bus values.CanBus, applySteer int, idx uint8, lkasActive bool) (OutgoingFrame, error) {
	return packFrame(packer, values.MsgLKASteeringCmd, bus, map[string]float64{
		"LKASteeringCmdActive":   boolToFloat(lkasActive),
		"LKASteeringCmd":         float64(applySteer),
		"RollingCounter":         float64(idx),
		"LKASteeringCmdChecksum": float64(SteeringChecksum(applySteer, idx, lkasActive)),
	})
}

// CreateGasCommand builds the pedal interceptor command. A gas amount at or
// below 0.001 disables the interceptor and leaves the command fields at zero,
// so the interceptor passes the driver's pedal through unscaled.
func CreateGasCommand(packer Packer, profile values.VehicleProfile, gasAmount float64, idx uint8) (OutgoingFrame, error) {
	if !profile.PedalInterceptor {
		return OutgoingFrame{}, &UnsupportedVariantError{Fingerprint: profile.Fingerprint, Feature: "pedal interceptor command"}
	}

	enable := gasAmount > 0.001
	vals := map[string]float64{
		"ENABLE":        boolToFloat(enable),
		"COUNTER_PEDAL": float64(idx & 0xF),
	}
	if enable {
		vals["GAS_COMMAND"] = gasAmount * 255.0
		vals["GAS_COMMAND2"] = gasAmount * 255.0
	}

	f, err := packFrame(packer, values.MsgGasCommand, values.BusPowertrain, vals)
	if err != nil {
		return OutgoingFrame{}, err
	}
	if len(f.Data) < 2 {
		return OutgoingFrame{}, fmt.Errorf("encode %s: payload too short for checksum", values.MsgGasCommand)
	}
	vals["CHECKSUM_PEDAL"] = float64(crc8Pedal(f.Data[:len(f.Data)-1]))
	return packFrame(packer, values.MsgGasCommand, values.BusPowertrain, vals)
}

// crc8Pedal is CRC-8 with polynomial 0xD5 (x8+x7+x6+x4+x2+1), init 0xFF,
// walking the bytes from last to first.
func crc8Pedal(data []byte) uint8 {
	crc := uint8(0xFF)
	const poly = 0xD5
	for i := len(data) - 1; i >= 0; i-- {
		crc ^= data[i]
		for b := 0; b < 8; b++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func CreateACCDashboardCommand(packer Packer, bus values.CanBus, accEngaged bool, targetSpeedKph float64, leadCarInSight, fcw bool) (OutgoingFrame, error) {
	// Not a bit shift: the dash rounds up on the low 4 bits.
	var target int
	if !math.IsNaN(targetSpeedKph) && targetSpeedKph > 0 {
		target = int(math.Min(targetSpeedKph*16, 0xfff)) & 0xfff
	}
	fcwAlert := 0.0
	if fcw {
		fcwAlert = 0x3
	}
	return packFrame(packer, values.MsgACCStatus, bus, map[string]float64{
		"ACCAlwaysOne":     1,
		"ACCResumeButton":  0,
		"ACCSpeedSetpoint": float64(target),
		"ACCGapLevel":      3 * boolToFloat(accEngaged), // 3 far, 0 inactive
		"ACCCmdActive":     boolToFloat(accEngaged),
		"ACCAlwaysOne2":    1,
		"ACCLeadCar":       boolToFloat(leadCarInSight),
		"FCWAlert":         fcwAlert,
	})
}

// CreateADASKeepalive returns the two frames that keep the ADAS modules from
// timing out.
func CreateADASKeepalive(bus values.CanBus) []OutgoingFrame {
	return []OutgoingFrame{
		{ID: values.KeepaliveID1, Data: make([]byte, 7), Bus: bus},
		{ID: values.KeepaliveID2, Data: make([]byte, 7), Bus: bus},
	}
}

// CreateLKAIconCommand selects the dash icon payload: green when torque is
// applied, orange when close to the limit, with the steer-required chime bit
// when the driver has to take over.
func CreateLKAIconCommand(bus values.CanBus, active, critical, steer bool) OutgoingFrame {
	var dat []byte
	switch {
	case active && steer && critical:
		dat = []byte{0x50, 0xc0, 0x14}
	case active && steer:
		dat = []byte{0x50, 0x40, 0x18}
	case active && critical:
		dat = []byte{0x40, 0xc0, 0x14}
	case active:
		dat = []byte{0x40, 0x40, 0x18}
	default:
		dat = []byte{0x00, 0x00, 0x00}
	}
	return OutgoingFrame{ID: values.LKAIconID, Data: dat, Bus: bus}
}
